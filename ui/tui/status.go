package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	statusHold = 2 * time.Second
	statusFade = 200 * time.Millisecond
)

var statusPhrases = []string{
	"Querying models...",
	"Comparing perspectives...",
	"Synthesizing consensus...",
	"Analyzing data patterns...",
	"Finalizing report...",
}

// statusLane names the activity a caption rotation belongs to. Each lane
// starts and stops on its own.
type statusLane int

const (
	laneAsk statusLane = iota
	laneResynth
	laneWorkflow
	statusLanes
)

// statusRotation cycles the busy caption. Every start or stop bumps gen,
// so ticks scheduled by an earlier rotation are dropped.
type statusRotation struct {
	lane   statusLane
	gen    int
	active bool
	index  int
	fading bool
}

type statusPhase int

const (
	phaseFade statusPhase = iota
	phaseAdvance
)

type statusTickMsg struct {
	lane  statusLane
	gen   int
	phase statusPhase
}

func (s statusRotation) tick(phase statusPhase, d time.Duration) tea.Cmd {
	lane, gen := s.lane, s.gen
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusTickMsg{lane: lane, gen: gen, phase: phase}
	})
}

func (s statusRotation) start() (statusRotation, tea.Cmd) {
	s.gen++
	s.active = true
	s.index = 0
	s.fading = false
	return s, s.tick(phaseFade, statusHold)
}

func (s statusRotation) stop() statusRotation {
	s.gen++
	s.active = false
	s.index = 0
	s.fading = false
	return s
}

func (s statusRotation) update(msg statusTickMsg) (statusRotation, tea.Cmd) {
	if !s.active || msg.gen != s.gen {
		return s, nil
	}
	switch msg.phase {
	case phaseFade:
		s.fading = true
		return s, s.tick(phaseAdvance, statusFade)
	default:
		s.fading = false
		s.index = (s.index + 1) % len(statusPhrases)
		return s, s.tick(phaseFade, statusHold)
	}
}

// statusBoard holds one caption rotation per lane.
type statusBoard [statusLanes]statusRotation

func newStatusBoard() statusBoard {
	var b statusBoard
	for l := range b {
		b[l].lane = statusLane(l)
	}
	return b
}

func (b statusBoard) start(l statusLane) (statusBoard, tea.Cmd) {
	var cmd tea.Cmd
	b[l], cmd = b[l].start()
	return b, cmd
}

func (b statusBoard) stop(l statusLane) statusBoard {
	b[l] = b[l].stop()
	return b
}

func (b statusBoard) update(msg statusTickMsg) (statusBoard, tea.Cmd) {
	if msg.lane < 0 || msg.lane >= statusLanes {
		return b, nil
	}
	var cmd tea.Cmd
	b[msg.lane], cmd = b[msg.lane].update(msg)
	return b, cmd
}

// current returns the first active rotation, asks before re-synthesis
// before workflows.
func (b statusBoard) current() statusRotation {
	for _, s := range b {
		if s.active {
			return s
		}
	}
	return statusRotation{}
}

func (s statusRotation) text() string {
	if !s.active {
		return ""
	}
	return statusPhrases[s.index]
}
