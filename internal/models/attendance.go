package models

import "time"

// AttendanceMark is a single accepted attendance event. Rows are inserted
// by the decision engine only and never updated or deleted.
type AttendanceMark struct {
	ID        string    `db:"id" json:"id"`
	SubjectID int64     `db:"subject_id" json:"subject_id"`
	StudentID int64     `db:"student_id" json:"student_id"`
	MarkedAt  time.Time `db:"marked_at" json:"marked_at"`
}

// StudentSubjectSummary is one row of a student's per-subject attendance
// view: number of marks and percentage against classes held.
type StudentSubjectSummary struct {
	SubjectID   int64   `db:"subject_id" json:"subject_id"`
	SubjectName string  `db:"subject_name" json:"subject_name"`
	Attended    int     `db:"attended" json:"attended"`
	Percentage  float64 `db:"percentage" json:"percentage"`
}

// SubjectStudentSummary is one row of the teacher's roster view for the
// active subject: per-student mark count and percentage.
type SubjectStudentSummary struct {
	StudentID   int64   `db:"student_id" json:"student_id"`
	StudentName string  `db:"student_name" json:"student_name"`
	Attended    int     `db:"attended" json:"attended"`
	Percentage  float64 `db:"percentage" json:"percentage"`
}
