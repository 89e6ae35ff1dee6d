package main

type alertSeverity string

const (
	alertInfo     alertSeverity = "INFO"
	alertWarn     alertSeverity = "WARN"
	alertError    alertSeverity = "ERROR"
	alertCritical alertSeverity = "CRITICAL"
)

// systemAlert is one line of the cockpit's alert feed. The newest 50 are
// kept in memory; every alert is also written to the event trail.
type systemAlert struct {
	At            string         `json:"at"`
	Severity      alertSeverity  `json:"severity"`
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Context       map[string]any `json:"context,omitempty"`
	CorrelationID string         `json:"correlation_id"`
}
