package models

import "time"

// MonthlyExam is a batch-scoped grading period composed of individual exams.
// Unique per (batch_id, month, year).
type MonthlyExam struct {
	ID          string    `db:"id" json:"id"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	Title       string    `db:"title" json:"title"`
	Month       int       `db:"month" json:"month"`
	Year        int       `db:"year" json:"year"`
	IsFinalized bool      `db:"is_finalized" json:"is_finalized"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// MonthWindow returns the first and last instant of the exam's calendar month.
func (e MonthlyExam) MonthWindow() (time.Time, time.Time) {
	start := time.Date(e.Year, time.Month(e.Month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// IndividualExam is one graded component within a monthly exam.
type IndividualExam struct {
	ID            string    `db:"id" json:"id"`
	MonthlyExamID string    `db:"monthly_exam_id" json:"monthly_exam_id"`
	Name          string    `db:"name" json:"name"`
	Subject       string    `db:"subject" json:"subject"`
	TotalMarks    int       `db:"total_marks" json:"total_marks"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// MonthlyMark stores obtained marks for one student on one individual exam.
// Unique per (monthly_exam_id, individual_exam_id, student_id).
type MonthlyMark struct {
	ID               string    `db:"id" json:"id"`
	MonthlyExamID    string    `db:"monthly_exam_id" json:"monthly_exam_id"`
	IndividualExamID string    `db:"individual_exam_id" json:"individual_exam_id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	ObtainedMarks    int       `db:"obtained_marks" json:"obtained_marks"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// MonthlyResult is the materialized ranking row for one student in one
// monthly exam. Rebuilt wholesale by ranking generation; bonus marks survive
// regeneration.
type MonthlyResult struct {
	ID              string    `db:"id" json:"id"`
	MonthlyExamID   string    `db:"monthly_exam_id" json:"monthly_exam_id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	TotalExamMarks  int       `db:"total_exam_marks" json:"total_exam_marks"`
	AttendanceMarks int       `db:"attendance_marks" json:"attendance_marks"`
	BonusMarks      int       `db:"bonus_marks" json:"bonus_marks"`
	FinalTotal      int       `db:"final_total" json:"final_total"`
	Percentage      float64   `db:"percentage" json:"percentage"`
	GPA             float64   `db:"gpa" json:"gpa"`
	Rank            int       `db:"rank" json:"rank"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// MonthlyResultRow extends the result with student metadata for reporting.
type MonthlyResultRow struct {
	MonthlyResult
	StudentName   string `db:"student_name" json:"student_name"`
	Roll          int    `db:"roll" json:"roll"`
	GuardianPhone string `db:"guardian_phone" json:"guardian_phone"`
}
