package models

// Student represents a learner. Rows are seeded out of band and read-only
// to this service.
type Student struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
}
