package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/services"
)

type InvoiceHandler struct {
	billingService *services.BillingService
	invoiceService *services.InvoiceService
	exportService  *services.ExportService
	now            func() time.Time
}

func NewInvoiceHandler(billing *services.BillingService, invoices *services.InvoiceService, export *services.ExportService, now func() time.Time) *InvoiceHandler {
	return &InvoiceHandler{billingService: billing, invoiceService: invoices, exportService: export, now: now}
}

// GenerateInvoiceRequest bills a set of work logs for one client
type GenerateInvoiceRequest struct {
	ClientID      uint    `json:"client_id"`
	ProjectID     *uint   `json:"project_id"`
	WorkLogIDs    []uint  `json:"work_log_ids"`
	TaxPercentage float64 `json:"tax_percentage" example:"15"`
	TaxEnabled    bool    `json:"tax_enabled"`
	DueDate       *Date   `json:"due_date" swaggertype:"string" example:"2026-04-15"`
	Notes         string  `json:"notes"`
}

// UpdateInvoiceRequest changes notes, due date, tax or status. Absent fields are left alone.
type UpdateInvoiceRequest struct {
	Notes         *string        `json:"notes"`
	DueDate       *Date          `json:"due_date" swaggertype:"string" example:"2026-04-15"`
	TaxEnabled    *bool          `json:"tax_enabled"`
	TaxPercentage *float64       `json:"tax_percentage"`
	Status        *ledger.Status `json:"status" swaggertype:"string" enums:"draft,sent,partially-paid,overdue,paid"`
}

// RecordPaymentRequest applies money straight to an invoice
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" example:"150"`
}

func (h *InvoiceHandler) respond(c *gin.Context, status int, invoice *models.Invoice) {
	c.JSON(status, gin.H{"invoice": invoice.ToResponse(h.now())})
}

// @Summary Generate Invoice
// @Description Create a draft invoice from billable, unbilled work logs. Ids that are not eligible are skipped
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body GenerateInvoiceRequest true "Invoice Data"
// @Success 201 {object} models.InvoiceResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req GenerateInvoiceRequest
	if err := BindNestedOrFlat(c, "invoice", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := services.GenerateInvoiceInput{
		ClientID:      req.ClientID,
		ProjectID:     req.ProjectID,
		WorkLogIDs:    req.WorkLogIDs,
		TaxPercentage: req.TaxPercentage,
		TaxEnabled:    req.TaxEnabled,
		DueDate:       req.DueDate.Ptr(),
		Notes:         req.Notes,
	}
	invoice, err := h.billingService.GenerateInvoice(c.Request.Context(), principal(c), in, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, invoice)
}

// @Summary List Invoices
// @Description Get a paginated list of invoices, newest issue date first. Client users only see their own
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param client_id query int false "Filter by client"
// @Param status query string false "Filter by status"
// @Param start_date query string false "Issued on or after (YYYY-MM-DD)"
// @Param end_date query string false "Issued on or before (YYYY-MM-DD)"
// @Param sort query string false "field-direction, e.g. total-desc"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) Index(c *gin.Context) {
	query := listQuery(c, "client_id", "status", "start_date", "end_date")
	invoices, total, err := h.invoiceService.List(c.Request.Context(), principal(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	responses := make([]models.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, invoices[i].ToResponse(now))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": responses, "pagination": pagination(query, total)})
}

// @Summary Get Invoice
// @Description Get an invoice with reconciled amounts and its current status
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} models.InvoiceResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, invoice)
}

// @Summary Update Invoice
// @Description Edit notes, due date or tax, or move the invoice to another status
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body UpdateInvoiceRequest true "Fields to change"
// @Success 200 {object} models.InvoiceResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Security BearerAuth
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if err := BindNestedOrFlat(c, "invoice", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := services.UpdateInvoiceInput{
		Notes:         req.Notes,
		DueDate:       req.DueDate.Ptr(),
		TaxEnabled:    req.TaxEnabled,
		TaxPercentage: req.TaxPercentage,
		Status:        req.Status,
	}
	invoice, err := h.invoiceService.Update(c.Request.Context(), principal(c), id, in, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, invoice)
}

// @Summary Delete Invoice
// @Description Delete an invoice and release its work logs. Staff may only delete drafts
// @Tags Invoices
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), principal(c), id, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}

// @Summary Record Invoice Payment
// @Description Apply an amount to the invoice's balance. Fails if it exceeds the amount due
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path int true "Invoice ID"
// @Param request body RecordPaymentRequest true "Amount"
// @Success 200 {object} models.InvoiceResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /invoices/{id}/payment [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	invoice, err := h.billingService.RecordPayment(c.Request.Context(), principal(c), id, req.Amount, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respond(c, http.StatusOK, invoice)
}

// @Summary Invoice PDF
// @Description Download the invoice as a PDF
// @Tags Invoices
// @Produce application/pdf
// @Param id path int true "Invoice ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	buf, filename, err := h.exportService.InvoicePDF(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/pdf", buf)
}

// @Summary Client Invoice Stats
// @Description Totals invoiced, paid and due for one client
// @Tags Invoices
// @Produce json
// @Param clientId path int true "Client ID"
// @Success 200 {object} services.InvoiceStats
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /invoices/client/{clientId}/stats [get]
func (h *InvoiceHandler) ClientStats(c *gin.Context) {
	clientID, ok := paramID(c, "clientId")
	if !ok {
		return
	}
	stats, err := h.invoiceService.ClientStats(c.Request.Context(), principal(c), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
