package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/services"
)

type ExpenseHandler struct {
	expenseService *services.ExpenseService
}

func NewExpenseHandler(expenseService *services.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// ExpenseRequest is the wire form of an expense; date may be YYYY-MM-DD
type ExpenseRequest struct {
	ProjectID     *uint    `json:"project_id"`
	Category      string   `json:"category" enums:"software,hardware,labor,utilities,office-supplies,travel,marketing,hosting,subscription,maintenance,other"`
	Description   string   `json:"description"`
	Amount        float64  `json:"amount" example:"49.99"`
	Vendor        string   `json:"vendor"`
	Date          *Date    `json:"date" swaggertype:"string" example:"2026-03-10"`
	Status        string   `json:"status" enums:"pending,approved,rejected,paid"`
	PaymentMethod string   `json:"payment_method" enums:"cash,credit-card,bank-transfer,check,other"`
	Receipt       string   `json:"receipt"`
	Notes         string   `json:"notes"`
	Tags          []string `json:"tags"`
	Currency      string   `json:"currency" example:"USD"`
	TaxDeductible bool     `json:"tax_deductible"`
}

func (r ExpenseRequest) input() services.ExpenseInput {
	return services.ExpenseInput{
		ProjectID:     r.ProjectID,
		Category:      r.Category,
		Description:   r.Description,
		Amount:        r.Amount,
		Vendor:        r.Vendor,
		Date:          r.Date.Ptr(),
		Status:        r.Status,
		PaymentMethod: r.PaymentMethod,
		Receipt:       r.Receipt,
		Notes:         r.Notes,
		Tags:          r.Tags,
		Currency:      r.Currency,
		TaxDeductible: r.TaxDeductible,
	}
}

// dateRange reads start_date and end_date. A calendar end date covers the
// whole day.
func dateRange(c *gin.Context) (services.DateRange, bool) {
	var r services.DateRange
	if raw := c.Query("start_date"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			badRequest(c, err.Error())
			return r, false
		}
		r.From = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			badRequest(c, err.Error())
			return r, false
		}
		if len(raw) == len(dateLayout) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		r.To = &t
	}
	return r, true
}

// @Summary List Expenses
// @Description Get a paginated list of expenses, newest first
// @Tags Expenses
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param category query string false "Filter by category"
// @Param status query string false "Filter by status"
// @Param project_id query int false "Filter by project"
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /expenses [get]
func (h *ExpenseHandler) Index(c *gin.Context) {
	query := listQuery(c, "category", "status", "project_id", "start_date", "end_date")
	expenses, total, err := h.expenseService.List(c.Request.Context(), principal(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses, "pagination": pagination(query, total)})
}

// @Summary Get Expense
// @Tags Expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} models.Expense
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /expenses/{id} [get]
func (h *ExpenseHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	expense, err := h.expenseService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// @Summary Create Expense
// @Description Record an expense, optionally against a project. Status defaults to pending
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body ExpenseRequest true "Expense Data"
// @Success 201 {object} models.Expense
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /expenses [post]
func (h *ExpenseHandler) Create(c *gin.Context) {
	var req ExpenseRequest
	if err := BindNestedOrFlat(c, "expense", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	expense, err := h.expenseService.Create(c.Request.Context(), principal(c), req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// @Summary Update Expense
// @Tags Expenses
// @Accept json
// @Produce json
// @Param id path int true "Expense ID"
// @Param request body ExpenseRequest true "Expense Data"
// @Success 200 {object} models.Expense
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /expenses/{id} [put]
func (h *ExpenseHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ExpenseRequest
	if err := BindNestedOrFlat(c, "expense", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	expense, err := h.expenseService.Update(c.Request.Context(), principal(c), id, req.input(), requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

// @Summary Delete Expense
// @Tags Expenses
// @Produce json
// @Param id path int true "Expense ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /expenses/{id} [delete]
func (h *ExpenseHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.expenseService.Delete(c.Request.Context(), principal(c), id, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

// @Summary Bulk Update Expense Status
// @Description Move several expenses to one status. Expenses of other tenants are skipped
// @Tags Expenses
// @Accept json
// @Produce json
// @Param request body services.BulkExpenseStatusInput true "Expense IDs and target status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /expenses/bulk/status [patch]
func (h *ExpenseHandler) BulkUpdateStatus(c *gin.Context) {
	var in services.BulkExpenseStatusInput
	if err := BindNestedOrFlat(c, "expense", &in); err != nil {
		badRequest(c, err.Error())
		return
	}
	n, err := h.expenseService.BulkUpdateStatus(c.Request.Context(), principal(c), in, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modified_count": n})
}

// @Summary Expense Summary
// @Description Totals by status over an optional date range
// @Tags Expenses
// @Produce json
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} services.ExpenseSummary
// @Security BearerAuth
// @Router /expenses/summary [get]
func (h *ExpenseHandler) Summary(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}
	summary, err := h.expenseService.Summary(c.Request.Context(), principal(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Expenses By Category
// @Description Every expense in the range grouped by category, largest first
// @Tags Expenses
// @Produce json
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {array} services.CategoryTotal
// @Security BearerAuth
// @Router /expenses/analytics/by-category [get]
func (h *ExpenseHandler) ByCategory(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}
	totals, err := h.expenseService.ByCategory(c.Request.Context(), principal(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// @Summary Expenses By Month
// @Description Every expense in the range grouped by calendar month, oldest first
// @Tags Expenses
// @Produce json
// @Param start_date query string false "From date (YYYY-MM-DD)"
// @Param end_date query string false "To date (YYYY-MM-DD)"
// @Success 200 {array} services.MonthTotal
// @Security BearerAuth
// @Router /expenses/analytics/by-month [get]
func (h *ExpenseHandler) ByMonth(c *gin.Context) {
	r, ok := dateRange(c)
	if !ok {
		return
	}
	totals, err := h.expenseService.ByMonth(c.Request.Context(), principal(c), r)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}
