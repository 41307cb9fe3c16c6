package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/service"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/response"
)

type examRepoMock struct {
	exam *models.MonthlyExam
}

func (m *examRepoMock) FindByID(ctx context.Context, id string) (*models.MonthlyExam, error) {
	if m.exam != nil && m.exam.ID == id {
		copy := *m.exam
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *examRepoMock) ListIndividualExams(ctx context.Context, monthlyExamID string) ([]models.IndividualExam, error) {
	return []models.IndividualExam{{ID: "ie1", MonthlyExamID: monthlyExamID, TotalMarks: 100}}, nil
}

func (m *examRepoMock) SetFinalized(ctx context.Context, id string, finalized bool) error {
	m.exam.IsFinalized = finalized
	return nil
}

type markReaderMock struct{}

func (m *markReaderMock) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyMark, error) {
	return []models.MonthlyMark{{StudentID: "stu1", ObtainedMarks: 90}}, nil
}

type resultRepoMock struct {
	rows []models.MonthlyResultRow
}

func (m *resultRepoMock) FetchByExam(ctx context.Context, monthlyExamID string) (map[string]models.MonthlyResult, error) {
	return map[string]models.MonthlyResult{}, nil
}

func (m *resultRepoMock) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error) {
	return m.rows, nil
}

func (m *resultRepoMock) ReplaceRanking(ctx context.Context, results []models.MonthlyResult) error {
	m.rows = m.rows[:0]
	for _, result := range results {
		m.rows = append(m.rows, models.MonthlyResultRow{MonthlyResult: result})
	}
	return nil
}

func (m *resultRepoMock) UpsertBonus(ctx context.Context, monthlyExamID, studentID string, bonusMarks int) error {
	return nil
}

type attendanceCounterMock struct{}

func (m *attendanceCounterMock) CountPresentByStudent(ctx context.Context, batchID string, from, to time.Time) ([]models.PresentCount, error) {
	return nil, nil
}

type rosterMock struct{}

func (m *rosterMock) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, BatchID: "batch1"}, nil
}

func (m *rosterMock) ListByBatch(ctx context.Context, batchID string) ([]models.Student, error) {
	return []models.Student{{ID: "stu1", BatchID: batchID, FullName: "Alpha", Roll: 1}}, nil
}

func newExamHandlerFixture(finalized bool) (*ExamHandler, *examRepoMock) {
	exams := &examRepoMock{exam: &models.MonthlyExam{
		ID: "exam1", BatchID: "batch1", Title: "June Monthly", Month: 6, Year: 2025, IsFinalized: finalized,
	}}
	ranking := service.NewRankingService(exams, &markReaderMock{}, &resultRepoMock{}, &attendanceCounterMock{}, &rosterMock{}, nil, nil, validator.New(), zap.NewNop())
	return NewExamHandler(nil, ranking, nil, nil), exams
}

func TestExamHandlerGenerateRankingFinalizedConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newExamHandlerFixture(true)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/monthly-exams/exam1/ranking", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam1"}}

	handler.GenerateRanking(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ALREADY_FINALIZED", envelope.Error.Code)
}

func TestExamHandlerGenerateRankingSucceeds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newExamHandlerFixture(false)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/monthly-exams/exam1/ranking", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam1"}}

	handler.GenerateRanking(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestExamHandlerGenerateRankingUnknownExam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newExamHandlerFixture(false)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/monthly-exams/missing/ranking", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.GenerateRanking(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExamHandlerNotifyDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newExamHandlerFixture(true)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/monthly-exams/exam1/notify", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "exam1"}}

	handler.Notify(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
