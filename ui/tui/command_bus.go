package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type busCommand struct {
	Version int    `json:"version"`
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Keys    string `json:"keys,omitempty"`
	Source  string `json:"source,omitempty"` // cli|tui|system
}

// initCommandBus creates the bus file and returns its current size, so
// commands written before this session started are not replayed.
func initCommandBus(path string) int64 {
	if strings.TrimSpace(path) == "" {
		return 0
	}
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	st, err := os.Stat(path)
	if err != nil {
		_ = os.WriteFile(path, []byte{}, 0o644)
		return 0
	}
	return st.Size()
}

func (m appModel) consumeCommandBus() (appModel, tea.Cmd) {
	if strings.TrimSpace(m.commandBusPath) == "" {
		return m, nil
	}
	cmds, newOffset := readBusCommands(m.commandBusPath, m.commandBusOffset)
	m.commandBusOffset = newOffset
	var outCmds []tea.Cmd
	for _, c := range cmds {
		var cmd tea.Cmd
		m, cmd = m.applyBusCommand(c)
		if cmd != nil {
			outCmds = append(outCmds, cmd)
		}
		if m.quitRequested {
			break
		}
	}
	if len(outCmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(outCmds...)
}

func readBusCommands(path string, offset int64) ([]busCommand, int64) {
	f, err := os.Open(path)
	if err != nil {
		return nil, offset
	}
	defer f.Close()

	st, err := f.Stat()
	if err == nil && offset > st.Size() {
		offset = st.Size()
	}

	if offset > 0 {
		if _, err := f.Seek(offset, 0); err != nil {
			return nil, offset
		}
	}

	var cmds []busCommand
	reader := bufio.NewReader(f)
	cur := offset
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			cur += int64(len(line))
			txt := strings.TrimSpace(line)
			if txt != "" {
				var c busCommand
				if json.Unmarshal([]byte(txt), &c) == nil && c.Version == 1 && strings.TrimSpace(c.Type) != "" {
					cmds = append(cmds, c)
				}
			}
		}
		if err != nil {
			break
		}
	}
	return cmds, cur
}

func (m appModel) applyBusCommand(c busCommand) (out appModel, cmd tea.Cmd) {
	src := strings.TrimSpace(c.Source)
	if src == "" {
		src = "cli"
	}
	prevSource := m.actionSource
	m.actionSource = src
	defer func() { out.actionSource = prevSource }()

	switch strings.TrimSpace(strings.ToLower(c.Type)) {
	case "stop":
		m.systemAlert(alertInfo, "session.stop", "Stop requested", map[string]any{"source": src})
		m = m.closeAllOverlays()
		m = m.shutdown()
		m.quitRequested = true
		return m, tea.Quit
	case "send", "ask":
		txt := strings.TrimSpace(c.Text)
		if txt == "" {
			return m, nil
		}
		m.input.SetValue(txt)
		return m.submitAsk(false)
	case "cmd":
		return m.executeCommandText(strings.TrimSpace(c.Text))
	case "key":
		keys := splitKeys(c.Keys)
		var cmds []tea.Cmd
		for _, k := range keys {
			if m.quitRequested {
				break
			}
			var kc tea.Cmd
			m, kc = m.applySyntheticKey(k)
			if kc != nil {
				cmds = append(cmds, kc)
			}
		}
		if len(cmds) == 0 {
			return m, nil
		}
		return m, tea.Batch(cmds...)
	default:
		m.systemAlert(alertWarn, "command.unknown", "Unknown bus command type", map[string]any{"type": c.Type})
		return m, nil
	}
}

func splitKeys(keys string) []string {
	raw := strings.FieldsFunc(keys, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		s := strings.TrimSpace(t)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (m appModel) applySyntheticKey(token string) (appModel, tea.Cmd) {
	t := strings.TrimSpace(token)
	if t == "" {
		return m, nil
	}
	lt := strings.ToLower(t)

	var msg tea.KeyMsg
	switch lt {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc", "escape":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "pgup":
		msg = tea.KeyMsg{Type: tea.KeyPgUp}
	case "pgdown":
		msg = tea.KeyMsg{Type: tea.KeyPgDown}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		// Single rune fallthrough.
		rs := []rune(t)
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: rs}
	}

	next, cmd := m.Update(msg)
	if am, ok := next.(appModel); ok {
		m = am
	}
	return m, cmd
}

func (m appModel) executeCommandText(text string) (appModel, tea.Cmd) {
	txt := strings.TrimSpace(text)
	if txt == "" {
		return m, nil
	}
	ns := "/"
	cmdText := txt
	if strings.HasPrefix(cmdText, "//") {
		ns = "//"
		cmdText = strings.TrimPrefix(cmdText, "//")
	} else if strings.HasPrefix(cmdText, "/") {
		cmdText = strings.TrimPrefix(cmdText, "/")
	} else {
		m.systemAlert(alertWarn, "command.invalid", "Command must start with / or //", map[string]any{"text": txt})
		return m, nil
	}

	fields := strings.Fields(cmdText)
	if len(fields) == 0 {
		m.systemAlert(alertWarn, "command.invalid", "Empty command", map[string]any{"text": txt})
		return m, nil
	}

	item, found, ok := findPaletteItem(ns, fields[0])
	if !ok {
		m.systemAlert(alertError, "command.not_found", "Command not found", map[string]any{"namespace": ns, "cmd": fields[0]})
		return m, nil
	}
	m.commandPaletteNamespace = found
	args := fields[1:]
	if len(args) == 0 && item.needsArgs() {
		m.systemAlert(alertWarn, "command.invalid", fmt.Sprintf("Usage: %s%s %s", found, item.cmd, item.args), nil)
		return m, nil
	}
	return m.applyCommandPalette(found, item, args)
}
