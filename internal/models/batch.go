package models

import "time"

// Batch represents a coaching group students are assigned to.
type Batch struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ClassTime *string   `db:"class_time" json:"class_time,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Student represents a learner registered at the center. GuardianPhone is the
// recipient number for result notification SMS.
type Student struct {
	ID            string    `db:"id" json:"id"`
	BatchID       string    `db:"batch_id" json:"batch_id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Roll          int       `db:"roll" json:"roll"`
	GuardianPhone string    `db:"guardian_phone" json:"guardian_phone"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	BatchID  string
	Search   string
	Active   *bool
	Page     int
	PageSize int
}
