package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
)

type monthlyExamReader interface {
	FindByID(ctx context.Context, id string) (*models.MonthlyExam, error)
	ListIndividualExams(ctx context.Context, monthlyExamID string) ([]models.IndividualExam, error)
	SetFinalized(ctx context.Context, id string, finalized bool) error
}

type markReader interface {
	ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyMark, error)
}

type resultRepo interface {
	FetchByExam(ctx context.Context, monthlyExamID string) (map[string]models.MonthlyResult, error)
	ListByExam(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error)
	ReplaceRanking(ctx context.Context, results []models.MonthlyResult) error
	UpsertBonus(ctx context.Context, monthlyExamID, studentID string, bonusMarks int) error
}

type attendanceCounter interface {
	CountPresentByStudent(ctx context.Context, batchID string, from, to time.Time) ([]models.PresentCount, error)
}

type batchRoster interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.Student, error)
}

// UpdateBonusRequest carries a discretionary bonus assignment.
type UpdateBonusRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	BonusMarks int    `json:"bonus_marks" validate:"gte=0"`
}

// RankingService combines marks, attendance and bonus into ranked monthly
// results and governs the finalize state machine.
type RankingService struct {
	exams      monthlyExamReader
	marks      markReader
	results    resultRepo
	attendance attendanceCounter
	students   batchRoster
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewRankingService constructs RankingService.
func NewRankingService(exams monthlyExamReader, marks markReader, results resultRepo, attendance attendanceCounter, students batchRoster, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RankingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		exams:      exams,
		marks:      marks,
		results:    results,
		attendance: attendance,
		students:   students,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// GenerateRanking rebuilds the full result set for a monthly exam. Bonus
// marks stored on existing rows survive the rebuild; every student in the
// batch receives a row even without marks or attendance.
func (s *RankingService) GenerateRanking(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error) {
	exam, err := s.loadExam(ctx, monthlyExamID)
	if err != nil {
		return nil, err
	}
	if exam.IsFinalized {
		return nil, appErrors.Clone(appErrors.ErrAlreadyFinalized, "cannot regenerate ranking for a finalized exam")
	}
	if err := s.generate(ctx, exam); err != nil {
		return nil, err
	}
	return s.Results(ctx, monthlyExamID)
}

// UpdateBonus upserts bonus marks for one student, creating a placeholder
// result row when ranking has not run yet. Only the bonus column is written.
func (s *RankingService) UpdateBonus(ctx context.Context, monthlyExamID string, req UpdateBonusRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bonus payload")
	}
	exam, err := s.loadExam(ctx, monthlyExamID)
	if err != nil {
		return err
	}
	if exam.IsFinalized {
		return appErrors.Clone(appErrors.ErrAlreadyFinalized, "cannot edit bonus marks on a finalized exam")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.BatchID != exam.BatchID {
		return appErrors.Clone(appErrors.ErrValidation, "student does not belong to the exam's batch")
	}
	if err := s.results.UpsertBonus(ctx, monthlyExamID, req.StudentID, req.BonusMarks); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store bonus marks")
	}
	s.invalidate(ctx, monthlyExamID)
	return nil
}

// Finalize re-runs ranking so the locked rows reflect the latest edits, then
// flips the exam to finalized. A finalized exam rejects a second finalize,
// mirroring the guards on ranking and bonus edits.
func (s *RankingService) Finalize(ctx context.Context, monthlyExamID string) error {
	exam, err := s.loadExam(ctx, monthlyExamID)
	if err != nil {
		return err
	}
	if exam.IsFinalized {
		return appErrors.Clone(appErrors.ErrAlreadyFinalized, "monthly exam is already finalized")
	}
	if err := s.generate(ctx, exam); err != nil {
		return err
	}
	if err := s.exams.SetFinalized(ctx, monthlyExamID, true); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize exam")
	}
	s.invalidate(ctx, monthlyExamID)
	return nil
}

// Unfinalize re-opens the exam for edits. Result rows are left untouched; the
// caller is expected to regenerate ranking after corrections.
func (s *RankingService) Unfinalize(ctx context.Context, monthlyExamID string) error {
	if _, err := s.loadExam(ctx, monthlyExamID); err != nil {
		return err
	}
	if err := s.exams.SetFinalized(ctx, monthlyExamID, false); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unfinalize exam")
	}
	s.invalidate(ctx, monthlyExamID)
	return nil
}

// Results returns the ranked rows for an exam, served from cache when warm.
func (s *RankingService) Results(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error) {
	key := resultsCacheKey(monthlyExamID)
	var cached []models.MonthlyResultRow
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}
	rows, err := s.results.ListByExam(ctx, monthlyExamID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list results")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, rows, 0)
	}
	return rows, nil
}

func (s *RankingService) loadExam(ctx context.Context, monthlyExamID string) (*models.MonthlyExam, error) {
	exam, err := s.exams.FindByID(ctx, monthlyExamID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "monthly exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly exam")
	}
	return exam, nil
}

func (s *RankingService) generate(ctx context.Context, exam *models.MonthlyExam) error {
	start := time.Now()

	students, err := s.students.ListByBatch(ctx, exam.BatchID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batch students")
	}
	if len(students) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "batch has no students to rank")
	}

	marks, err := s.marks.ListByExam(ctx, exam.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	examTotals := make(map[string]int, len(students))
	for _, mark := range marks {
		examTotals[mark.StudentID] += mark.ObtainedMarks
	}

	individualExams, err := s.exams.ListIndividualExams(ctx, exam.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list individual exams")
	}
	totalPossible := 0
	for _, ie := range individualExams {
		totalPossible += ie.TotalMarks
	}

	from, to := exam.MonthWindow()
	presentCounts, err := s.attendance.CountPresentByStudent(ctx, exam.BatchID, from, to)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	presentByStudent := make(map[string]int, len(presentCounts))
	for _, pc := range presentCounts {
		presentByStudent[pc.StudentID] = pc.Days
	}

	existing, err := s.results.FetchByExam(ctx, exam.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing results")
	}

	results := make([]models.MonthlyResult, 0, len(students))
	for _, student := range students {
		totalExam := examTotals[student.ID]
		attendanceMarks := presentByStudent[student.ID]
		bonus := 0
		prior, ok := existing[student.ID]
		if ok {
			bonus = prior.BonusMarks
		}
		percentage := 0.0
		if totalPossible > 0 {
			percentage = round2(float64(totalExam) / float64(totalPossible) * 100)
		}
		results = append(results, models.MonthlyResult{
			ID:              prior.ID,
			MonthlyExamID:   exam.ID,
			StudentID:       student.ID,
			TotalExamMarks:  totalExam,
			AttendanceMarks: attendanceMarks,
			BonusMarks:      bonus,
			FinalTotal:      totalExam + attendanceMarks + bonus,
			Percentage:      percentage,
			GPA:             gpaFromPercentage(percentage),
			CreatedAt:       prior.CreatedAt,
		})
	}

	// Ties on finalTotal are ordered by student ID so repeated runs are
	// deterministic.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalTotal != results[j].FinalTotal {
			return results[i].FinalTotal > results[j].FinalTotal
		}
		return results[i].StudentID < results[j].StudentID
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	if err := s.results.ReplaceRanking(ctx, results); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store ranking")
	}

	s.invalidate(ctx, exam.ID)
	if s.metrics != nil {
		s.metrics.ObserveRankingGeneration(time.Since(start))
	}
	s.logger.Info("ranking generated",
		zap.String("monthly_exam_id", exam.ID),
		zap.Int("students", len(results)),
		zap.Int("total_possible_marks", totalPossible),
	)
	return nil
}

func (s *RankingService) invalidate(ctx context.Context, monthlyExamID string) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, resultsCacheKey(monthlyExamID))
	}
}

func resultsCacheKey(monthlyExamID string) string {
	return fmt.Sprintf("results:%s", monthlyExamID)
}

// gpaFromPercentage bands the raw exam percentage. Attendance and bonus
// deliberately do not influence GPA, only the rank total.
func gpaFromPercentage(percentage float64) float64 {
	switch {
	case percentage >= 80:
		return 5.0
	case percentage >= 70:
		return 4.0
	case percentage >= 60:
		return 3.5
	case percentage >= 50:
		return 3.0
	case percentage >= 40:
		return 2.0
	case percentage >= 33:
		return 1.0
	default:
		return 0.0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
