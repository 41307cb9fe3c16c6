package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
	AttendanceStatusLate    AttendanceStatus = "late"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate:
		return true
	default:
		return false
	}
}

// Attendance represents a single attendance row. Unique per (student_id, date).
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	BatchID   string           `db:"batch_id" json:"batch_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// PresentCount aggregates present days per student for a month window.
type PresentCount struct {
	StudentID string `db:"student_id" json:"student_id"`
	Days      int    `db:"days" json:"days"`
}

// AttendanceSummary summarises counts for a student within a month.
type AttendanceSummary struct {
	StudentID string  `json:"student_id"`
	Month     int     `json:"month"`
	Year      int     `json:"year"`
	Present   int     `json:"present"`
	Absent    int     `json:"absent"`
	Late      int     `json:"late"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}
