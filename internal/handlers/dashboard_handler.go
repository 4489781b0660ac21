package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// @Summary Dashboard Summary
// @Description Tenant-wide counts and money totals plus the current month
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.DashboardSummary
// @Security BearerAuth
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboardService.Summary(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Invoice Status Breakdown
// @Description Invoice count and amount per status. Pending covers sent and partially paid invoices
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.StatusBreakdown
// @Security BearerAuth
// @Router /dashboard/status-breakdown [get]
func (h *DashboardHandler) StatusBreakdown(c *gin.Context) {
	breakdown, err := h.dashboardService.StatusBreakdown(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// @Summary Revenue Trend
// @Description Revenue, paid and due per calendar month, oldest first
// @Tags Dashboard
// @Produce json
// @Param months query int false "Number of months (1-36)" default(12)
// @Success 200 {array} services.RevenuePoint
// @Security BearerAuth
// @Router /dashboard/revenue-trend [get]
func (h *DashboardHandler) RevenueTrend(c *gin.Context) {
	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))
	points, err := h.dashboardService.RevenueTrend(c.Request.Context(), principal(c), months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// @Summary Top Clients
// @Description Clients ranked by total invoiced
// @Tags Dashboard
// @Produce json
// @Param limit query int false "How many clients" default(5)
// @Success 200 {array} services.ClientRevenue
// @Security BearerAuth
// @Router /dashboard/top-clients [get]
func (h *DashboardHandler) TopClients(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	clients, err := h.dashboardService.TopClients(c.Request.Context(), principal(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// @Summary Tenant Profit
// @Description Total invoiced less approved and paid expenses
// @Tags Dashboard
// @Produce json
// @Success 200 {object} services.TenantProfit
// @Security BearerAuth
// @Router /dashboard/profit [get]
func (h *DashboardHandler) TenantProfit(c *gin.Context) {
	profit, err := h.dashboardService.TenantProfit(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profit)
}

// @Summary Project Profit
// @Description Billable work on a project less its approved and paid expenses
// @Tags Dashboard
// @Produce json
// @Param projectId path int true "Project ID"
// @Success 200 {object} services.ProjectProfit
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /dashboard/profit/projects/{projectId} [get]
func (h *DashboardHandler) ProjectProfit(c *gin.Context) {
	id, ok := paramID(c, "projectId")
	if !ok {
		return
	}
	profit, err := h.dashboardService.ProjectProfit(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profit)
}

// @Summary Project Profitability
// @Description Projects ranked by profit, best first
// @Tags Dashboard
// @Produce json
// @Param limit query int false "How many projects" default(10)
// @Success 200 {array} services.ProjectProfit
// @Security BearerAuth
// @Router /dashboard/project-profitability [get]
func (h *DashboardHandler) ProjectProfitability(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	projects, err := h.dashboardService.ProjectProfitability(c.Request.Context(), principal(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// @Summary Monthly Expenses
// @Description Approved and paid expenses dated in one month. Defaults to the current month
// @Tags Dashboard
// @Produce json
// @Param year query int false "Year"
// @Param month query int false "Month (1-12)"
// @Success 200 {object} services.MonthlyExpenses
// @Security BearerAuth
// @Router /dashboard/expenses/monthly [get]
func (h *DashboardHandler) MonthlyExpenses(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	totals, err := h.dashboardService.MonthlyExpenses(c.Request.Context(), principal(c), year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// @Summary Expense Trend
// @Description Approved and paid expenses per calendar month, oldest first
// @Tags Dashboard
// @Produce json
// @Param months query int false "Number of months (1-36)" default(12)
// @Success 200 {array} services.ExpensePoint
// @Security BearerAuth
// @Router /dashboard/expense-trend [get]
func (h *DashboardHandler) ExpensesTrend(c *gin.Context) {
	months, _ := strconv.Atoi(c.DefaultQuery("months", "12"))
	points, err := h.dashboardService.ExpensesTrend(c.Request.Context(), principal(c), months)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// @Summary Expenses By Category
// @Description Approved and paid expenses grouped by category, largest first
// @Tags Dashboard
// @Produce json
// @Success 200 {array} services.CategoryTotal
// @Security BearerAuth
// @Router /dashboard/expenses-by-category [get]
func (h *DashboardHandler) ExpensesByCategory(c *gin.Context) {
	totals, err := h.dashboardService.ExpensesByCategory(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}
