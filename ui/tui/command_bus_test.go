package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcccaz/TRIAI/internal/session"
)

func appendBus(t *testing.T, path string, cmds ...busCommand) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	for _, c := range cmds {
		b, err := json.Marshal(c)
		require.NoError(t, err)
		_, err = f.Write(append(b, '\n'))
		require.NoError(t, err)
	}
}

func newBusModel(t *testing.T, path string) appModel {
	t.Helper()
	return newAppModel(appConfig{
		stateDir:     t.TempDir(),
		sessionID:    "sess_bus",
		version:      "test",
		commandsPath: path,
		exportDir:    t.TempDir(),
		plain:        true,
	}, newFakeAPI(), nil)
}

func TestCommandBusSkipsEarlierCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	appendBus(t, path, busCommand{Version: 1, Type: "stop"})

	m := newBusModel(t, path)
	m, _ = m.onTick(time.Now())
	assert.False(t, m.quitRequested)

	appendBus(t, path, busCommand{Version: 1, Type: "cmd", Text: "//toggle council"})
	m, _ = m.onTick(time.Now())
	assert.False(t, m.sess.Option(session.ToggleCouncil))
	assert.Equal(t, "tui", m.actionSource)
}

func TestCommandBusKeysAndStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	m := newBusModel(t, path)

	appendBus(t, path,
		busCommand{Version: 1, Type: "key", Keys: "/ /"},
		busCommand{Version: 2, Type: "stop"},
		busCommand{Version: 1, Type: ""},
	)
	m, _ = m.onTick(time.Now())
	assert.Equal(t, overlayCommandPalette, m.currentOverlay())
	assert.Equal(t, "//", m.commandPaletteNamespace)
	assert.False(t, m.quitRequested)

	appendBus(t, path, busCommand{Version: 1, Type: "stop", Source: "cli"})
	m, cmd := m.onTick(time.Now())
	require.NotNil(t, cmd)
	assert.True(t, m.quitRequested)
	assert.Equal(t, overlayNone, m.currentOverlay())
	assert.True(t, hasAlert(m, "session.stop"))
}

func TestCommandBusUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commands.jsonl")
	m := newBusModel(t, path)

	appendBus(t, path, busCommand{Version: 1, Type: "dance"})
	m, _ = m.onTick(time.Now())

	assert.True(t, hasAlert(m, "command.unknown"))
}

func TestSplitKeys(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"enter", []string{"enter"}},
		{"/, /\tdown\nenter", []string{"/", "/", "down", "enter"}},
		{" , ,esc", []string{"esc"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitKeys(tt.in), tt.in)
	}
}
