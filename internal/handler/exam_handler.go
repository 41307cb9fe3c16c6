package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yryryerhyrhytr/coachdesk-api/internal/service"
	appErrors "github.com/yryryerhyrhytr/coachdesk-api/pkg/errors"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/response"
)

// ExamHandler exposes monthly exam, ranking and export endpoints.
type ExamHandler struct {
	exams   *service.ExamService
	ranking *service.RankingService
	export  *service.ExportService
	notify  *service.NotifyService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams *service.ExamService, ranking *service.RankingService, export *service.ExportService, notify *service.NotifyService) *ExamHandler {
	return &ExamHandler{exams: exams, ranking: ranking, export: export, notify: notify}
}

// Create godoc
// @Summary Create monthly exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateMonthlyExamRequest true "Monthly exam payload"
// @Success 201 {object} response.Envelope
// @Router /monthly-exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req service.CreateMonthlyExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.exams.CreateMonthlyExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Get godoc
// @Summary Get monthly exam with its components
// @Tags Exams
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, components, err := h.exams.GetMonthlyExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"exam": exam, "individual_exams": components}, nil)
}

// ListByBatch godoc
// @Summary List a batch's monthly exams
// @Tags Exams
// @Produce json
// @Param batchId query string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams [get]
func (h *ExamHandler) ListByBatch(c *gin.Context) {
	batchID := c.Query("batchId")
	if batchID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batchId query parameter is required"))
		return
	}
	exams, err := h.exams.ListByBatch(c.Request.Context(), batchID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// AddIndividualExam godoc
// @Summary Add a graded component to a monthly exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Param payload body service.CreateIndividualExamRequest true "Individual exam payload"
// @Success 201 {object} response.Envelope
// @Router /monthly-exams/{id}/exams [post]
func (h *ExamHandler) AddIndividualExam(c *gin.Context) {
	var req service.CreateIndividualExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	component, err := h.exams.AddIndividualExam(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, component)
}

// GenerateRanking godoc
// @Summary Rebuild ranked results for a monthly exam
// @Tags Ranking
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams/{id}/ranking [post]
func (h *ExamHandler) GenerateRanking(c *gin.Context) {
	rows, err := h.ranking.GenerateRanking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpdateBonus godoc
// @Summary Set bonus marks for one student
// @Tags Ranking
// @Accept json
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Param payload body service.UpdateBonusRequest true "Bonus payload"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams/{id}/bonus [put]
func (h *ExamHandler) UpdateBonus(c *gin.Context) {
	var req service.UpdateBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.ranking.UpdateBonus(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "bonus updated"}, nil)
}

// Finalize godoc
// @Summary Finalize a monthly exam
// @Tags Ranking
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams/{id}/finalize [post]
func (h *ExamHandler) Finalize(c *gin.Context) {
	if err := h.ranking.Finalize(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "finalized"}, nil)
}

// Unfinalize godoc
// @Summary Re-open a finalized monthly exam
// @Tags Ranking
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams/{id}/unfinalize [post]
func (h *ExamHandler) Unfinalize(c *gin.Context) {
	if err := h.ranking.Unfinalize(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "unfinalized"}, nil)
}

// Results godoc
// @Summary Get ranked results
// @Tags Ranking
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Success 200 {object} response.Envelope
// @Router /monthly-exams/{id}/results [get]
func (h *ExamHandler) Results(c *gin.Context) {
	rows, err := h.ranking.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Download the result sheet as CSV or PDF
// @Tags Ranking
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Monthly exam ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /monthly-exams/{id}/results/export [get]
func (h *ExamHandler) Export(c *gin.Context) {
	file, err := h.export.ExportResults(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Notify godoc
// @Summary Queue result SMS notifications to guardians
// @Tags Ranking
// @Produce json
// @Param id path string true "Monthly exam ID"
// @Success 202 {object} response.Envelope
// @Router /monthly-exams/{id}/notify [post]
func (h *ExamHandler) Notify(c *gin.Context) {
	if h.notify == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "result notifications are disabled"))
		return
	}
	if err := h.notify.NotifyResults(c.Request.Context(), c.Param("id"), actorIDFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "queued"}, nil)
}
