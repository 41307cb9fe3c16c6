package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type mockExamRepo struct {
	exams      map[string]*models.MonthlyExam
	components []models.IndividualExam
}

func (m *mockExamRepo) FindByID(ctx context.Context, id string) (*models.MonthlyExam, error) {
	if exam, ok := m.exams[id]; ok {
		copy := *exam
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) ListIndividualExams(ctx context.Context, monthlyExamID string) ([]models.IndividualExam, error) {
	return m.components, nil
}

func (m *mockExamRepo) SetFinalized(ctx context.Context, id string, finalized bool) error {
	exam, ok := m.exams[id]
	if !ok {
		return sql.ErrNoRows
	}
	exam.IsFinalized = finalized
	return nil
}

type mockMarkReader struct {
	marks []models.MonthlyMark
}

func (m *mockMarkReader) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyMark, error) {
	return m.marks, nil
}

type mockResultRepo struct {
	stored map[string]models.MonthlyResult
	rows   []models.MonthlyResultRow
}

func (m *mockResultRepo) FetchByExam(ctx context.Context, monthlyExamID string) (map[string]models.MonthlyResult, error) {
	out := make(map[string]models.MonthlyResult, len(m.stored))
	for k, v := range m.stored {
		out[k] = v
	}
	return out, nil
}

func (m *mockResultRepo) ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error) {
	return m.rows, nil
}

func (m *mockResultRepo) ReplaceRanking(ctx context.Context, results []models.MonthlyResult) error {
	if m.stored == nil {
		m.stored = make(map[string]models.MonthlyResult)
	}
	m.rows = m.rows[:0]
	for _, result := range results {
		m.stored[result.StudentID] = result
		m.rows = append(m.rows, models.MonthlyResultRow{MonthlyResult: result})
	}
	return nil
}

func (m *mockResultRepo) UpsertBonus(ctx context.Context, monthlyExamID, studentID string, bonusMarks int) error {
	if m.stored == nil {
		m.stored = make(map[string]models.MonthlyResult)
	}
	row := m.stored[studentID]
	row.MonthlyExamID = monthlyExamID
	row.StudentID = studentID
	row.BonusMarks = bonusMarks
	m.stored[studentID] = row
	return nil
}

type mockAttendanceCounter struct {
	counts []models.PresentCount
}

func (m *mockAttendanceCounter) CountPresentByStudent(ctx context.Context, batchID string, from, to time.Time) ([]models.PresentCount, error) {
	return m.counts, nil
}

type mockRoster struct {
	students map[string]*models.Student
}

func (m *mockRoster) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoster) ListByBatch(ctx context.Context, batchID string) ([]models.Student, error) {
	var list []models.Student
	for _, s := range m.students {
		if s.BatchID == batchID {
			list = append(list, *s)
		}
	}
	return list, nil
}

func newRankingFixture() (*RankingService, *mockExamRepo, *mockMarkReader, *mockResultRepo, *mockAttendanceCounter) {
	exams := &mockExamRepo{
		exams: map[string]*models.MonthlyExam{
			"exam1": {ID: "exam1", BatchID: "batch1", Title: "June Monthly", Month: 6, Year: 2025},
		},
		components: []models.IndividualExam{
			{ID: "ie1", MonthlyExamID: "exam1", Name: "Physics CT", Subject: "Physics", TotalMarks: 50},
			{ID: "ie2", MonthlyExamID: "exam1", Name: "Math CT", Subject: "Math", TotalMarks: 50},
		},
	}
	marks := &mockMarkReader{marks: []models.MonthlyMark{
		{MonthlyExamID: "exam1", IndividualExamID: "ie1", StudentID: "stu-a", ObtainedMarks: 40},
		{MonthlyExamID: "exam1", IndividualExamID: "ie2", StudentID: "stu-a", ObtainedMarks: 40},
		{MonthlyExamID: "exam1", IndividualExamID: "ie1", StudentID: "stu-b", ObtainedMarks: 30},
		{MonthlyExamID: "exam1", IndividualExamID: "ie2", StudentID: "stu-b", ObtainedMarks: 30},
	}}
	results := &mockResultRepo{}
	attendance := &mockAttendanceCounter{counts: []models.PresentCount{
		{StudentID: "stu-a", Days: 20},
		{StudentID: "stu-b", Days: 22},
	}}
	roster := &mockRoster{students: map[string]*models.Student{
		"stu-a": {ID: "stu-a", BatchID: "batch1", FullName: "Alpha", Roll: 1},
		"stu-b": {ID: "stu-b", BatchID: "batch1", FullName: "Bravo", Roll: 2},
		"stu-c": {ID: "stu-c", BatchID: "batch1", FullName: "Charlie", Roll: 3},
	}}
	svc := NewRankingService(exams, marks, results, attendance, roster, nil, nil, validator.New(), zap.NewNop())
	return svc, exams, marks, results, attendance
}

func TestGenerateRankingOrdersAndCoversRoster(t *testing.T) {
	svc, _, _, results, _ := newRankingFixture()

	_, err := svc.GenerateRanking(context.Background(), "exam1")
	require.NoError(t, err)

	// Every active student gets a row, marks or not.
	require.Len(t, results.stored, 3)

	a := results.stored["stu-a"]
	assert.Equal(t, 80, a.TotalExamMarks)
	assert.Equal(t, 20, a.AttendanceMarks)
	assert.Equal(t, 100, a.FinalTotal)
	assert.Equal(t, 1, a.Rank)
	assert.InDelta(t, 80.0, a.Percentage, 0.001)
	assert.InDelta(t, 5.0, a.GPA, 0.001)

	b := results.stored["stu-b"]
	assert.Equal(t, 82, b.FinalTotal)
	assert.Equal(t, 2, b.Rank)
	assert.InDelta(t, 60.0, b.Percentage, 0.001)
	assert.InDelta(t, 3.5, b.GPA, 0.001)

	c := results.stored["stu-c"]
	assert.Equal(t, 0, c.TotalExamMarks)
	assert.Equal(t, 0, c.FinalTotal)
	assert.Equal(t, 3, c.Rank)
	assert.InDelta(t, 0.0, c.GPA, 0.001)
}

func TestGenerateRankingTieBreaksByStudentID(t *testing.T) {
	svc, _, marks, results, attendance := newRankingFixture()
	marks.marks = []models.MonthlyMark{
		{MonthlyExamID: "exam1", IndividualExamID: "ie1", StudentID: "stu-a", ObtainedMarks: 50},
		{MonthlyExamID: "exam1", IndividualExamID: "ie1", StudentID: "stu-b", ObtainedMarks: 50},
		{MonthlyExamID: "exam1", IndividualExamID: "ie1", StudentID: "stu-c", ObtainedMarks: 50},
	}
	attendance.counts = nil

	_, err := svc.GenerateRanking(context.Background(), "exam1")
	require.NoError(t, err)

	assert.Equal(t, 1, results.stored["stu-a"].Rank)
	assert.Equal(t, 2, results.stored["stu-b"].Rank)
	assert.Equal(t, 3, results.stored["stu-c"].Rank)
}

func TestGenerateRankingIsIdempotentAndPreservesBonus(t *testing.T) {
	svc, _, _, results, _ := newRankingFixture()

	_, err := svc.GenerateRanking(context.Background(), "exam1")
	require.NoError(t, err)

	err = svc.UpdateBonus(context.Background(), "exam1", UpdateBonusRequest{StudentID: "stu-c", BonusMarks: 5})
	require.NoError(t, err)

	priorA := results.stored["stu-a"]
	_, err = svc.GenerateRanking(context.Background(), "exam1")
	require.NoError(t, err)

	assert.Equal(t, 5, results.stored["stu-c"].BonusMarks)
	assert.Equal(t, 5, results.stored["stu-c"].FinalTotal)
	assert.Equal(t, priorA.FinalTotal, results.stored["stu-a"].FinalTotal)
	assert.Equal(t, priorA.Rank, results.stored["stu-a"].Rank)
}

func TestGenerateRankingRejectsFinalizedExam(t *testing.T) {
	svc, exams, _, _, _ := newRankingFixture()
	exams.exams["exam1"].IsFinalized = true

	_, err := svc.GenerateRanking(context.Background(), "exam1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyFinalized.Code, appErr.Code)
}

func TestUpdateBonusGuards(t *testing.T) {
	svc, exams, _, _, _ := newRankingFixture()

	err := svc.UpdateBonus(context.Background(), "exam1", UpdateBonusRequest{StudentID: "missing", BonusMarks: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	exams.exams["exam1"].IsFinalized = true
	err = svc.UpdateBonus(context.Background(), "exam1", UpdateBonusRequest{StudentID: "stu-a", BonusMarks: 2})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFinalized.Code, appErrors.FromError(err).Code)
}

func TestFinalizeLocksAndUnfinalizeReopens(t *testing.T) {
	svc, exams, _, results, _ := newRankingFixture()

	err := svc.Finalize(context.Background(), "exam1")
	require.NoError(t, err)
	assert.True(t, exams.exams["exam1"].IsFinalized)
	assert.Len(t, results.stored, 3)

	// Finalize reruns ranking before locking, so results are fresh.
	err = svc.Finalize(context.Background(), "exam1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyFinalized.Code, appErrors.FromError(err).Code)

	err = svc.Unfinalize(context.Background(), "exam1")
	require.NoError(t, err)
	assert.False(t, exams.exams["exam1"].IsFinalized)

	err = svc.UpdateBonus(context.Background(), "exam1", UpdateBonusRequest{StudentID: "stu-a", BonusMarks: 3})
	require.NoError(t, err)
}

func TestGpaFromPercentageBands(t *testing.T) {
	cases := []struct {
		percentage float64
		gpa        float64
	}{
		{100, 5.0},
		{80, 5.0},
		{79.99, 4.0},
		{70, 4.0},
		{60, 3.5},
		{50, 3.0},
		{40, 2.0},
		{33, 1.0},
		{32.99, 0.0},
		{0, 0.0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.gpa, gpaFromPercentage(tc.percentage), 0.001, "percentage %.2f", tc.percentage)
	}
}

func TestGenerateRankingZeroTotalPossible(t *testing.T) {
	svc, exams, marks, results, _ := newRankingFixture()
	exams.components = nil
	marks.marks = nil

	_, err := svc.GenerateRanking(context.Background(), "exam1")
	require.NoError(t, err)
	for _, row := range results.stored {
		assert.InDelta(t, 0.0, row.Percentage, 0.001)
		assert.InDelta(t, 0.0, row.GPA, 0.001)
	}
}
