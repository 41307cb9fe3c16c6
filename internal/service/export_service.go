package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/export"
)

type rankedResultsReader interface {
	Results(ctx context.Context, monthlyExamID string) ([]models.MonthlyResultRow, error)
}

type examFinder interface {
	FindByID(ctx context.Context, id string) (*models.MonthlyExam, error)
}

type sheetRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

// ExportFile is a rendered result sheet ready to stream to the client.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders ranked result sheets as CSV or PDF downloads.
type ExportService struct {
	results rankedResultsReader
	exams   examFinder
	csv     sheetRenderer
	pdf     sheetRenderer
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(results rankedResultsReader, exams examFinder, csv, pdf sheetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{results: results, exams: exams, csv: csv, pdf: pdf, logger: logger}
}

// ExportResults renders the exam's ranked rows in the requested format.
func (s *ExportService) ExportResults(ctx context.Context, monthlyExamID, format string) (*ExportFile, error) {
	exam, err := s.exams.FindByID(ctx, monthlyExamID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "monthly exam not found")
	}
	rows, err := s.results.Results(ctx, monthlyExamID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no results generated for this exam yet")
	}

	sheet := buildResultSheet(exam, rows)

	switch format {
	case "csv", "":
		content, err := s.csv.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "text/csv",
			Filename:    exportFilename(exam, "csv"),
		}, nil
	case "pdf":
		content, err := s.pdf.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    exportFilename(exam, "pdf"),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func buildResultSheet(exam *models.MonthlyExam, rows []models.MonthlyResultRow) export.Sheet {
	sheet := export.Sheet{
		Title:   fmt.Sprintf("%s - %s %d", exam.Title, time.Month(exam.Month), exam.Year),
		Headers: []string{"Rank", "Roll", "Student", "Exam Marks", "Attendance", "Bonus", "Total", "Percentage", "GPA"},
	}
	for _, row := range rows {
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(row.Rank),
			strconv.Itoa(row.Roll),
			row.StudentName,
			strconv.Itoa(row.TotalExamMarks),
			strconv.Itoa(row.AttendanceMarks),
			strconv.Itoa(row.BonusMarks),
			strconv.Itoa(row.FinalTotal),
			fmt.Sprintf("%.2f", row.Percentage),
			fmt.Sprintf("%.2f", row.GPA),
		})
	}
	status := "draft"
	if exam.IsFinalized {
		status = "final"
	}
	sheet.Footer = []string{
		fmt.Sprintf("Students: %d", len(rows)),
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 UTC")),
	}
	return sheet
}

func exportFilename(exam *models.MonthlyExam, ext string) string {
	return fmt.Sprintf("results_%d_%02d_%s.%s", exam.Year, exam.Month, exam.BatchID, ext)
}
