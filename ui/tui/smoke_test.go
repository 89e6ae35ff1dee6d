package main

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokePasses(t *testing.T) {
	for _, disabled := range []bool{true, false} {
		api := newFakeAPI()
		m := newTestModel(t, api)
		m.cfg.disableNetwork = disabled

		report := runSmoke(m)

		assert.True(t, report.ok, report.json)
		assert.Zero(t, report.final.netCalls)
		assert.Zero(t, api.count("ask"))

		var summary map[string]any
		require.NoError(t, json.Unmarshal([]byte(report.json), &summary))
		assert.Equal(t, true, summary["zeroProviderBlocked"])
		assert.Equal(t, "deck", summary["screen"])
		assert.NotEmpty(t, report.view)
	}
}

func TestSessionSummaryAndEvents(t *testing.T) {
	m := newTestModel(t, newFakeAPI())
	m, _ = m.executeCommandText("//toggle hard")
	m = m.pushScreen(screenHistory)

	writeSessionSummary(m)

	dir := filepath.Join(m.cfg.stateDir, m.sessionID)
	raw, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, "sess_test", summary["sessionId"])
	assert.Equal(t, "history", summary["screen"])
	assert.Equal(t, "idle", summary["workflowState"])

	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	var types []string
	var lastSeq float64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		seq, _ := rec["seq"].(float64)
		assert.Greater(t, seq, lastSeq)
		lastSeq = seq
		types = append(types, rec["type"].(string))
	}
	require.NoError(t, sc.Err())
	assert.Contains(t, types, "system.alert")
	assert.Contains(t, types, "command.submitted")
	assert.Contains(t, types, "ui.nav.push")
}
