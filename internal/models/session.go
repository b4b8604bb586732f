package models

import "time"

// SessionWindow is the period after a session is (re)marked during which
// scans for that subject are accepted. The same duration bounds the
// duplicate-mark suppression window on attendance rows.
const SessionWindow = time.Hour

// OngoingClass is the singleton slot describing the currently active
// subject session. SubjectID and LastMarked are NULL until the first
// session is started.
type OngoingClass struct {
	SlotID         int        `db:"slot_id" json:"slot_id"`
	SubjectID      *int64     `db:"subject_id" json:"subject_id,omitempty"`
	LastMarked     *time.Time `db:"last_marked" json:"last_marked,omitempty"`
	CompletedCount int        `db:"completed_count" json:"completed_count"`
}

// ActiveFor reports whether the slot currently holds subjectID and `at`
// falls inside the closed session window. Both endpoints are accepted.
func (o *OngoingClass) ActiveFor(subjectID int64, at time.Time) bool {
	if o == nil || o.SubjectID == nil || o.LastMarked == nil {
		return false
	}
	if *o.SubjectID != subjectID {
		return false
	}
	start := *o.LastMarked
	end := start.Add(SessionWindow)
	return !at.Before(start) && !at.After(end)
}
