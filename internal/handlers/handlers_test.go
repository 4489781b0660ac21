package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/config"
	"github.com/sjperalta/billtrack-api/internal/database"
	"github.com/sjperalta/billtrack-api/internal/jobs"
	"github.com/sjperalta/billtrack-api/internal/middleware"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	headerUser   = "X-Test-User"
	headerRole   = "X-Test-Role"
	headerClient = "X-Test-Client"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	repos  *repository.Repositories
}

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAuth stands in for the JWT middleware: the caller is taken from test headers
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := strconv.Atoi(c.GetHeader(headerUser))
		clientID, _ := strconv.Atoi(c.GetHeader(headerClient))
		middleware.SetPrincipal(c, models.Principal{
			UserID:   uint(userID),
			Role:     c.GetHeader(headerRole),
			ClientID: uint(clientID),
		})
		c.Next()
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Connect("sqlite://:memory:", database.Options{Production: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	worker := jobs.NewWorker(1)
	t.Cleanup(worker.Shutdown)

	repos := repository.NewRepositories(db)
	svcs := services.NewServices(repos, worker, numbering.NewDatabaseSequencer(), &config.Config{InvoiceNumberRetries: 3})
	h := NewHandlers(svcs)

	r := gin.New()
	api := r.Group("/api/v1", fakeAuth())
	api.GET("/health", h.Health.Index)
	api.GET("/clients", h.Client.Index)
	api.POST("/clients", h.Client.Create)
	api.GET("/clients/:id", h.Client.Show)
	api.POST("/clients/:id/recompute", h.Client.Recompute)
	api.GET("/clients/:id/statement.xlsx", h.Client.Statement)
	api.GET("/projects", h.Project.Index)
	api.POST("/projects", h.Project.Create)
	api.GET("/work-logs", h.WorkLog.Index)
	api.POST("/work-logs", h.WorkLog.Create)
	api.PUT("/work-logs/:id", h.WorkLog.Update)
	api.DELETE("/work-logs/:id", h.WorkLog.Delete)
	api.POST("/invoices", h.Invoice.Create)
	api.GET("/invoices", h.Invoice.Index)
	api.GET("/invoices/:id", h.Invoice.Show)
	api.PUT("/invoices/:id", h.Invoice.Update)
	api.DELETE("/invoices/:id", h.Invoice.Delete)
	api.POST("/invoices/:id/payment", h.Invoice.RecordPayment)
	api.GET("/invoices/:id/pdf", h.Invoice.PDF)
	api.GET("/invoices/client/:clientId/stats", h.Invoice.ClientStats)
	api.GET("/payments", h.Payment.Index)
	api.POST("/payments", h.Payment.Create)
	api.GET("/payments/:id", h.Payment.Show)
	api.PUT("/payments/:id", h.Payment.Update)
	api.DELETE("/payments/:id", h.Payment.Delete)
	api.GET("/payments/client/:clientId", h.Payment.ByClient)
	api.GET("/expenses", h.Expense.Index)
	api.POST("/expenses", h.Expense.Create)
	api.GET("/expenses/summary", h.Expense.Summary)
	api.GET("/expenses/analytics/by-category", h.Expense.ByCategory)
	api.GET("/expenses/analytics/by-month", h.Expense.ByMonth)
	api.PATCH("/expenses/bulk/status", h.Expense.BulkUpdateStatus)
	api.GET("/expenses/:id", h.Expense.Show)
	api.PUT("/expenses/:id", h.Expense.Update)
	api.DELETE("/expenses/:id", h.Expense.Delete)
	api.GET("/dashboard/summary", h.Dashboard.Summary)
	api.GET("/dashboard/status-breakdown", h.Dashboard.StatusBreakdown)
	api.GET("/dashboard/revenue-trend", h.Dashboard.RevenueTrend)
	api.GET("/dashboard/top-clients", h.Dashboard.TopClients)
	api.GET("/dashboard/profit", h.Dashboard.TenantProfit)
	api.GET("/dashboard/profit/projects/:projectId", h.Dashboard.ProjectProfit)
	api.GET("/dashboard/project-profitability", h.Dashboard.ProjectProfitability)
	api.GET("/dashboard/expenses/monthly", h.Dashboard.MonthlyExpenses)
	api.GET("/dashboard/expense-trend", h.Dashboard.ExpensesTrend)
	api.GET("/dashboard/expenses-by-category", h.Dashboard.ExpensesByCategory)
	api.GET("/audit-logs", h.Audit.Index)
	api.GET("/jobs/status", h.Job.Status)

	return &testServer{t: t, router: r, repos: repos}
}

type caller struct {
	userID   uint
	role     string
	clientID uint
}

var (
	staffCaller = caller{userID: 1, role: models.RoleStaff}
	adminCaller = caller{userID: 1, role: models.RoleAdmin}
)

func (s *testServer) do(who caller, method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerUser, strconv.Itoa(int(who.userID)))
	req.Header.Set(headerRole, who.role)
	req.Header.Set(headerClient, strconv.Itoa(int(who.clientID)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func idOf(t *testing.T, w *httptest.ResponseRecorder, key string) uint {
	t.Helper()
	obj, ok := decode(t, w)[key].(map[string]interface{})
	require.True(t, ok, "missing %q in %s", key, w.Body.String())
	return uint(obj["id"].(float64))
}

// seedBillable creates a client, a project at 50/h and one 2h work log
func (s *testServer) seedBillable() (clientID, workLogID uint) {
	t := s.t
	t.Helper()
	w := s.do(staffCaller, http.MethodPost, "/clients", gin.H{"client": gin.H{"name": "Acme", "email": "billing@acme.test", "billing_rate": 50}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clientID = idOf(t, w, "client")

	w = s.do(staffCaller, http.MethodPost, "/projects", gin.H{"client_id": clientID, "name": "Website"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	projectID := idOf(t, w, "project")

	w = s.do(staffCaller, http.MethodPost, "/work-logs", gin.H{"project_id": projectID, "date": "2026-03-10", "hours": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 100.0, decode(t, w)["work_log"].(map[string]interface{})["billable_amount"])
	return clientID, idOf(t, w, "work_log")
}

func TestBillingFlow(t *testing.T) {
	s := newTestServer(t)
	clientID, workLogID := s.seedBillable()

	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decode(t, w)["invoice"].(map[string]interface{})
	assert.Equal(t, "INV-1001", invoice["invoice_number"])
	assert.Equal(t, 100.0, invoice["total"])
	assert.Equal(t, "draft", invoice["status"])
	assert.Equal(t, []interface{}{float64(workLogID)}, invoice["work_log_ids"])
	invoiceID := uint(invoice["id"].(float64))

	// the same work log cannot be billed twice
	w = s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(staffCaller, http.MethodPost, fmt.Sprintf("/invoices/%d/payment", invoiceID), gin.H{"amount": 150})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "payment amount exceeds due amount", decode(t, w)["error"])

	w = s.do(staffCaller, http.MethodPost, fmt.Sprintf("/invoices/%d/payment", invoiceID), gin.H{"amount": 40})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	invoice = decode(t, w)["invoice"].(map[string]interface{})
	assert.Equal(t, 40.0, invoice["amount_paid"])
	assert.Equal(t, 60.0, invoice["due_amount"])
	assert.Equal(t, "partially-paid", invoice["status"])

	w = s.do(staffCaller, http.MethodGet, "/invoices?status=partially-paid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["invoices"], 1)
	assert.Equal(t, 1.0, body["pagination"].(map[string]interface{})["total"])

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/invoices/client/%d/stats", clientID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)
	assert.Equal(t, 100.0, stats["total_invoiced"])
	assert.Equal(t, 60.0, stats["total_due"])

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/clients/%d", clientID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60.0, decode(t, w)["client"].(map[string]interface{})["outstanding_balance"])

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/invoices/%d/pdf", invoiceID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=INV-1001.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/clients/%d/statement.xlsx", clientID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("statement_client_%d_", clientID))
}

func TestInvoiceHandler_IllegalTransitionListsAllowed(t *testing.T) {
	s := newTestServer(t)
	clientID, workLogID := s.seedBillable()
	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	require.Equal(t, http.StatusCreated, w.Code)
	invoiceID := idOf(t, w, "invoice")

	w = s.do(staffCaller, http.MethodPut, fmt.Sprintf("/invoices/%d", invoiceID), gin.H{"status": "paid"})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, []interface{}{"draft", "sent"}, decode(t, w)["allowed_transitions"])

	w = s.do(staffCaller, http.MethodPut, fmt.Sprintf("/invoices/%d", invoiceID), gin.H{"invoice": gin.H{"status": "sent", "due_date": "2099-01-31"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	invoice := decode(t, w)["invoice"].(map[string]interface{})
	assert.Equal(t, "sent", invoice["status"])

	// staff may only delete drafts
	w = s.do(staffCaller, http.MethodDelete, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(adminCaller, http.MethodDelete, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandler_ValidationDetails(t *testing.T) {
	s := newTestServer(t)

	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": 1, "work_log_ids": []uint{}, "tax_percentage": 150})
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Contains(t, details, "work_log_ids")
	assert.Equal(t, "must be at most 100", details["tax_percentage"])

	w = s.do(staffCaller, http.MethodPost, "/invoices", `{"client_id": "one"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(staffCaller, http.MethodGet, "/invoices/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid id", decode(t, w)["error"])
}

func TestPaymentHandler_PendingThenCompleted(t *testing.T) {
	s := newTestServer(t)
	clientID, workLogID := s.seedBillable()
	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	require.Equal(t, http.StatusCreated, w.Code)
	invoiceID := idOf(t, w, "invoice")

	w = s.do(staffCaller, http.MethodPost, "/payments", gin.H{
		"invoice_id":   invoiceID,
		"client_id":    clientID,
		"amount":       100,
		"status":       "pending",
		"payment_date": "2026-03-12",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := decode(t, w)["payment"].(map[string]interface{})
	assert.Equal(t, "pending", payment["status"])
	assert.Regexp(t, `^PAY-[0-9A-F]{12}$`, payment["reference"])
	paymentID := uint(payment["id"].(float64))

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	assert.Equal(t, 0.0, decode(t, w)["invoice"].(map[string]interface{})["amount_paid"])

	w = s.do(adminCaller, http.MethodPut, fmt.Sprintf("/payments/%d", paymentID), gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	invoice := decode(t, w)["invoice"].(map[string]interface{})
	assert.Equal(t, 100.0, invoice["amount_paid"])
	assert.Equal(t, "paid", invoice["status"])

	w = s.do(adminCaller, http.MethodPut, fmt.Sprintf("/payments/%d", paymentID), gin.H{"status": "failed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/payments?invoice_id=%d", invoiceID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["payments"], 1)
}

func TestClientPortalScope(t *testing.T) {
	s := newTestServer(t)
	clientID, workLogID := s.seedBillable()
	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	require.Equal(t, http.StatusCreated, w.Code)
	invoiceID := idOf(t, w, "invoice")

	own := caller{role: models.RoleClient, clientID: clientID}
	other := caller{role: models.RoleClient, clientID: clientID + 1}

	w = s.do(own, http.MethodGet, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(other, http.MethodGet, fmt.Sprintf("/invoices/%d", invoiceID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(other, http.MethodGet, "/invoices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["invoices"])
}

func TestWorkLogHandler_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	_, workLogID := s.seedBillable()

	w := s.do(staffCaller, http.MethodGet, "/work-logs?invoiced=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["work_logs"], 1)

	w = s.do(staffCaller, http.MethodPut, fmt.Sprintf("/work-logs/%d", workLogID), gin.H{"project_id": 1, "date": "2026-03-11", "hours": 0.1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "must be at least 0.25", decode(t, w)["details"].(map[string]interface{})["hours"])

	w = s.do(staffCaller, http.MethodDelete, fmt.Sprintf("/work-logs/%d", workLogID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(staffCaller, http.MethodDelete, fmt.Sprintf("/work-logs/%d", workLogID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardAndSystemHandlers(t *testing.T) {
	s := newTestServer(t)
	clientID, workLogID := s.seedBillable()
	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(staffCaller, http.MethodGet, "/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)
	assert.Equal(t, 1.0, summary["client_count"])
	assert.Equal(t, 100.0, summary["total_outstanding"])

	w = s.do(staffCaller, http.MethodGet, "/dashboard/status-breakdown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["draft"].(map[string]interface{})["count"])

	w = s.do(staffCaller, http.MethodGet, "/dashboard/revenue-trend?months=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trend []services.RevenuePoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trend))
	assert.Len(t, trend, 3)

	w = s.do(staffCaller, http.MethodGet, "/dashboard/top-clients?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var top []services.ClientRevenue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "Acme", top[0].Name)

	w = s.do(adminCaller, http.MethodGet, "/audit-logs?per_page=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	audits := decode(t, w)
	assert.NotEmpty(t, audits["audits"])
	assert.Equal(t, 10.0, audits["pagination"].(map[string]interface{})["per_page"])

	w = s.do(adminCaller, http.MethodGet, "/jobs/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "max_concurrent")

	w = s.do(caller{}, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "billtrack-api", decode(t, w)["service"])
}

func TestExpenseHandler_LifecycleAndReports(t *testing.T) {
	s := newTestServer(t)
	s.seedBillable()

	w := s.do(staffCaller, http.MethodPost, "/expenses", gin.H{"expense": gin.H{
		"project_id":  1,
		"category":    "hosting",
		"description": "VPS",
		"amount":      30,
		"date":        "2026-03-05",
		"status":      "approved",
		"tags":        []string{"infra"},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	hostingID := idOf(t, w, "expense")
	expense := decode(t, w)["expense"].(map[string]interface{})
	assert.Equal(t, "USD", expense["currency"])
	assert.Equal(t, []interface{}{"infra"}, expense["tags"])

	w = s.do(staffCaller, http.MethodPost, "/expenses", gin.H{"category": "travel", "description": "Train", "amount": 12.5, "date": "2026-03-06"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	travelID := idOf(t, w, "expense")
	assert.Equal(t, "pending", decode(t, w)["expense"].(map[string]interface{})["status"])

	w = s.do(staffCaller, http.MethodPost, "/expenses", gin.H{"category": "snacks", "description": "Chips", "amount": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]interface{})
	assert.Contains(t, details, "category")
	assert.Equal(t, "must be greater than 0", details["amount"])

	w = s.do(staffCaller, http.MethodGet, "/expenses?category=travel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["expenses"], 1)

	w = s.do(staffCaller, http.MethodGet, "/expenses/summary?start_date=2026-03-01&end_date=2026-03-06", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	summary := decode(t, w)
	assert.Equal(t, 42.5, summary["total_expenses"])
	assert.Equal(t, 30.0, summary["approved"])
	assert.Equal(t, 12.5, summary["pending"])

	w = s.do(staffCaller, http.MethodGet, "/expenses/summary?start_date=march", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(staffCaller, http.MethodGet, "/expenses/analytics/by-category", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byCategory []services.CategoryTotal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byCategory))
	require.Len(t, byCategory, 2)
	assert.Equal(t, "hosting", byCategory[0].Category)

	w = s.do(staffCaller, http.MethodGet, "/expenses/analytics/by-month", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var byMonth []services.MonthTotal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byMonth))
	require.Len(t, byMonth, 1)
	assert.Equal(t, services.MonthTotal{Year: 2026, Month: 3, Total: 42.5, Count: 2}, byMonth[0])

	w = s.do(staffCaller, http.MethodPatch, "/expenses/bulk/status", gin.H{"expense_ids": []uint{travelID, 999}, "status": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1.0, decode(t, w)["modified_count"])

	w = s.do(staffCaller, http.MethodGet, "/dashboard/profit/projects/1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	project := decode(t, w)
	assert.Equal(t, 100.0, project["earnings"])
	assert.Equal(t, 30.0, project["expenses"])
	assert.Equal(t, 70.0, project["profit"])
	assert.Equal(t, 70.0, project["profit_margin"])

	w = s.do(staffCaller, http.MethodGet, "/dashboard/expenses-by-category", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byCategory))
	assert.Len(t, byCategory, 2)

	w = s.do(staffCaller, http.MethodGet, "/dashboard/expenses/monthly?year=2026&month=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	monthly := decode(t, w)
	assert.Equal(t, 42.5, monthly["total"])
	assert.Equal(t, 12.5, monthly["paid"])

	w = s.do(staffCaller, http.MethodGet, "/dashboard/profit/projects/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(staffCaller, http.MethodPut, fmt.Sprintf("/expenses/%d", hostingID), gin.H{"category": "hosting", "description": "VPS", "amount": 35})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	expense = decode(t, w)["expense"].(map[string]interface{})
	assert.Equal(t, 35.0, expense["amount"])
	assert.Equal(t, "approved", expense["status"])

	w = s.do(staffCaller, http.MethodDelete, fmt.Sprintf("/expenses/%d", hostingID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(staffCaller, http.MethodGet, fmt.Sprintf("/expenses/%d", hostingID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandler_ByClient(t *testing.T) {
	s := newTestServer(t)
	clientID, workLogID := s.seedBillable()
	w := s.do(staffCaller, http.MethodPost, "/invoices", gin.H{"client_id": clientID, "work_log_ids": []uint{workLogID}})
	require.Equal(t, http.StatusCreated, w.Code)
	invoiceID := idOf(t, w, "invoice")

	for _, p := range []gin.H{
		{"invoice_id": invoiceID, "client_id": clientID, "amount": 40},
		{"invoice_id": invoiceID, "client_id": clientID, "amount": 25, "status": "pending"},
	} {
		w = s.do(staffCaller, http.MethodPost, "/payments", p)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	path := fmt.Sprintf("/payments/client/%d", clientID)
	w = s.do(staffCaller, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Len(t, body["payments"], 2)
	assert.Equal(t, map[string]interface{}{"total_received": 40.0, "payment_count": 2.0}, body["summary"])

	w = s.do(caller{role: models.RoleClient, clientID: clientID}, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(caller{role: models.RoleClient, clientID: clientID + 1}, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(caller{userID: 2, role: models.RoleStaff}, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
