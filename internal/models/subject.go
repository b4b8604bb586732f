package models

// Subject represents a course unit attendance is tracked against. HeldCount
// is bumped every time a session is started for the subject.
type Subject struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	TeacherID int64  `db:"teacher_id" json:"teacher_id"`
	HeldCount int    `db:"held_count" json:"held_count"`
}
