package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "triai.log")
	l, err := New(path, false)
	require.NoError(t, err)

	l.Debug("workflow", "hidden at info level", nil)
	l.Info("workflow", "poll started", map[string]any{"job_id": "j1"})
	l.Error("council", "ask failed", map[string]any{"error": errors.New("boom")})
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "poll started", entries[0]["message"])
	assert.Equal(t, "workflow", entries[0]["module"])
	assert.Equal(t, "boom", entries[1]["error"])
	assert.Equal(t, path, l.Path())
}

func TestNilAndNopLoggersAreSafe(t *testing.T) {
	var l *Logger
	l.Info("x", "y", nil)
	assert.NoError(t, l.Sync())
	assert.Equal(t, "", l.Path())

	n := Nop()
	n.Warn("x", "y", map[string]any{"k": 1})
	assert.Equal(t, "", n.Path())
}
