package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/services"
)

type WorkLogHandler struct {
	workLogService *services.WorkLogService
}

func NewWorkLogHandler(workLogService *services.WorkLogService) *WorkLogHandler {
	return &WorkLogHandler{workLogService: workLogService}
}

// WorkLogRequest is the wire form of a work log; date may be YYYY-MM-DD
type WorkLogRequest struct {
	ProjectID   uint    `json:"project_id"`
	Date        Date    `json:"date" swaggertype:"string" example:"2026-03-10"`
	Hours       float64 `json:"hours" example:"2.5"`
	Description string  `json:"description"`
	Billable    *bool   `json:"billable"`
}

func (r WorkLogRequest) input() services.WorkLogInput {
	return services.WorkLogInput{
		ProjectID:   r.ProjectID,
		Date:        r.Date.Time,
		Hours:       r.Hours,
		Description: r.Description,
		Billable:    r.Billable,
	}
}

// @Summary List Work Logs
// @Description Get a paginated list of work logs, newest first
// @Tags WorkLogs
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param project_id query int false "Filter by project"
// @Param client_id query int false "Filter by client"
// @Param invoiced query bool false "Only invoiced (true) or unbilled (false) entries"
// @Param billable query bool false "Filter by billable flag"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /work-logs [get]
func (h *WorkLogHandler) Index(c *gin.Context) {
	query := listQuery(c, "project_id", "client_id", "invoiced", "billable", "start_date", "end_date")
	logs, total, err := h.workLogService.List(c.Request.Context(), principal(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_logs": logs, "pagination": pagination(query, total)})
}

// @Summary Create Work Log
// @Description Record hours against a project. billable_amount is priced from the project's hourly rate
// @Tags WorkLogs
// @Accept json
// @Produce json
// @Param request body WorkLogRequest true "Work Log Data"
// @Success 201 {object} models.WorkLog
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /work-logs [post]
func (h *WorkLogHandler) Create(c *gin.Context) {
	var req WorkLogRequest
	if err := BindNestedOrFlat(c, "work_log", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	log, err := h.workLogService.Create(c.Request.Context(), principal(c), req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"work_log": log})
}

// @Summary Update Work Log
// @Description Replace a work log that has not been invoiced yet
// @Tags WorkLogs
// @Accept json
// @Produce json
// @Param id path int true "Work Log ID"
// @Param request body WorkLogRequest true "Work Log Data"
// @Success 200 {object} models.WorkLog
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /work-logs/{id} [put]
func (h *WorkLogHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req WorkLogRequest
	if err := BindNestedOrFlat(c, "work_log", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	log, err := h.workLogService.Update(c.Request.Context(), principal(c), id, req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_log": log})
}

// @Summary Delete Work Log
// @Description Delete a work log that has not been invoiced yet
// @Tags WorkLogs
// @Produce json
// @Param id path int true "Work Log ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /work-logs/{id} [delete]
func (h *WorkLogHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.workLogService.Delete(c.Request.Context(), principal(c), id, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work log deleted"})
}
