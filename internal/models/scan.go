package models

import "time"

// ScanOutcome is the terminal state of a scan attempt. Exactly one outcome
// is delivered per attempt.
type ScanOutcome string

const (
	OutcomeMarked          ScanOutcome = "marked"
	OutcomeNetworkRejected ScanOutcome = "network_rejected"
	OutcomeInvalidToken    ScanOutcome = "invalid_token"
	OutcomeSessionInactive ScanOutcome = "session_inactive"
	OutcomeDuplicateMark   ScanOutcome = "duplicate_mark"
	OutcomeCameraError     ScanOutcome = "camera_error"
	OutcomeCancelled       ScanOutcome = "cancelled"
	OutcomeError           ScanOutcome = "error"
)

// Terminal reports whether the outcome ends an attempt. All defined
// outcomes are terminal; the zero value is not.
func (o ScanOutcome) Terminal() bool {
	return o != ""
}

// ScanResult carries the terminal outcome of an attempt back to the caller
// together with a single user-facing message.
type ScanResult struct {
	Outcome   ScanOutcome `json:"outcome"`
	Message   string      `json:"message"`
	SubjectID *int64      `json:"subject_id,omitempty"`
	MarkedAt  *time.Time  `json:"marked_at,omitempty"`
}

// ScanStatus describes an attempt as seen by polling clients.
type ScanStatus struct {
	AttemptID string      `json:"attempt_id"`
	StudentID int64       `json:"student_id"`
	StartedAt time.Time   `json:"started_at"`
	Done      bool        `json:"done"`
	Result    *ScanResult `json:"result,omitempty"`
}

// Messages surfaced for each outcome. Every terminal state maps to exactly
// one user-visible message.
var outcomeMessages = map[ScanOutcome]string{
	OutcomeMarked:          "Attendance marked successfully",
	OutcomeNetworkRejected: "Please connect to the expected network",
	OutcomeInvalidToken:    "Invalid attendance token",
	OutcomeSessionInactive: "Class not active or time expired",
	OutcomeDuplicateMark:   "Attendance already marked for this hour",
	OutcomeCameraError:     "Unable to read from the capture device",
	OutcomeCancelled:       "Scan cancelled",
	OutcomeError:           "Scan failed",
}

// NewScanResult builds a result with the canonical message for the outcome.
func NewScanResult(outcome ScanOutcome) ScanResult {
	return ScanResult{Outcome: outcome, Message: outcomeMessages[outcome]}
}
