package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
)

func newExamMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMonthlyExamRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewMonthlyExamRepository(db)

	mock.ExpectExec("INSERT INTO monthly_exams").
		WillReturnResult(sqlmock.NewResult(0, 1))

	exam := &models.MonthlyExam{BatchID: "batch1", Title: "June Monthly", Month: 6, Year: 2025}
	err := repo.Create(context.Background(), exam)
	require.NoError(t, err)
	assert.NotEmpty(t, exam.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyExamRepositorySetFinalized(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewMonthlyExamRepository(db)

	mock.ExpectExec("UPDATE monthly_exams SET is_finalized").
		WithArgs("exam1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetFinalized(context.Background(), "exam1", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyExamRepositorySetFinalizedUnknownExam(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewMonthlyExamRepository(db)

	mock.ExpectExec("UPDATE monthly_exams SET is_finalized").
		WithArgs("missing", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetFinalized(context.Background(), "missing", true)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthlyExamRepositoryListIndividualExams(t *testing.T) {
	db, mock, cleanup := newExamMock(t)
	defer cleanup()
	repo := NewMonthlyExamRepository(db)

	rows := sqlmock.NewRows([]string{"id", "monthly_exam_id", "name", "subject", "total_marks", "created_at"}).
		AddRow("ie1", "exam1", "Physics CT", "Physics", 50, time.Now()).
		AddRow("ie2", "exam1", "Math CT", "Math", 50, time.Now())
	mock.ExpectQuery("SELECT id, monthly_exam_id, name, subject, total_marks, created_at").
		WithArgs("exam1").
		WillReturnRows(rows)

	exams, err := repo.ListIndividualExams(context.Background(), "exam1")
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, 50, exams[0].TotalMarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}
