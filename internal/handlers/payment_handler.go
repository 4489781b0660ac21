package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest records money received against an invoice
type CreatePaymentRequest struct {
	InvoiceID     uint    `json:"invoice_id"`
	ClientID      uint    `json:"client_id"`
	Amount        float64 `json:"amount" example:"150"`
	PaymentMethod string  `json:"payment_method" enums:"cash,bank-transfer,credit-card,check,other"`
	PaymentDate   *Date   `json:"payment_date" swaggertype:"string" example:"2026-03-12"`
	Reference     string  `json:"reference"`
	Notes         string  `json:"notes"`
	Status        string  `json:"status" enums:"pending,completed,failed"`
}

// @Summary List Payments
// @Description Get a paginated list of payments
// @Tags Payments
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param invoice_id query int false "Filter by invoice"
// @Param client_id query int false "Filter by client"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := listQuery(c, "invoice_id", "client_id", "status")
	payments, total, err := h.paymentService.List(c.Request.Context(), principal(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "pagination": pagination(query, total)})
}

// @Summary Get Payment
// @Description Get a payment by ID
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} models.Payment
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	payment, err := h.paymentService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// @Summary Create Payment
// @Description Record a payment. A completed payment is applied to the invoice immediately; pending ones wait until completed
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body CreatePaymentRequest true "Payment Data"
// @Success 201 {object} models.Payment
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := services.CreatePaymentInput{
		InvoiceID:     req.InvoiceID,
		ClientID:      req.ClientID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		PaymentDate:   req.PaymentDate.Ptr(),
		Reference:     req.Reference,
		Notes:         req.Notes,
		Status:        req.Status,
	}
	payment, err := h.paymentService.Create(c.Request.Context(), principal(c), in, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// @Summary Update Payment
// @Description Change status or bookkeeping fields. Completing a pending payment applies it to the invoice once
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param request body services.UpdatePaymentInput true "Fields to change"
// @Success 200 {object} models.Payment
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.UpdatePaymentInput
	if err := BindNestedOrFlat(c, "payment", &in); err != nil {
		badRequest(c, err.Error())
		return
	}
	payment, err := h.paymentService.Update(c.Request.Context(), principal(c), id, in, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

// @Summary Delete Payment
// @Description Delete a payment record. The invoice ledger is not reversed
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.paymentService.Delete(c.Request.Context(), principal(c), id, requestMeta(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}

// @Summary Payments By Client
// @Description Every payment of one client with the completed total received
// @Tags Payments
// @Produce json
// @Param clientId path int true "Client ID"
// @Success 200 {object} services.ClientPayments
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/client/{clientId} [get]
func (h *PaymentHandler) ByClient(c *gin.Context) {
	clientID, ok := paramID(c, "clientId")
	if !ok {
		return
	}
	result, err := h.paymentService.ListByClient(c.Request.Context(), principal(c), clientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
