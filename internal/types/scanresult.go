package types

import "time"

type QuarantineState string

const (
	QuarantineStateNone       QuarantineState = ""
	QuarantineStateComplete   QuarantineState = "complete"
	QuarantineStateIncomplete QuarantineState = "incomplete"
)

// ScanResult is the authoritative verdict for the current record version.
// Re-scans overwrite the whole value, they never append.
type ScanResult struct {
	IsClean         bool            `json:"is_clean"`
	Threats         []string        `json:"threats,omitempty"`
	Message         string          `json:"message,omitempty"`
	Scanner         string          `json:"scanner,omitempty"`
	ScanID          string          `json:"scan_id,omitempty"`
	ScannedAt       time.Time       `json:"scanned_at"`
	QuarantineState QuarantineState `json:"quarantine_state,omitempty"`
	QuarantineKey   string          `json:"quarantine_key,omitempty"`
}
