package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ClientHandler struct {
	clientService *services.ClientService
	exportService *services.ExportService
}

func NewClientHandler(clientService *services.ClientService, exportService *services.ExportService) *ClientHandler {
	return &ClientHandler{clientService: clientService, exportService: exportService}
}

// @Summary List Clients
// @Description Get a paginated list of the caller's clients
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status (active, inactive)"
// @Param search query string false "Match name, email or company"
// @Param sort query string false "field-direction, e.g. name-asc"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) Index(c *gin.Context) {
	query := listQuery(c, "status", "search")
	clients, total, err := h.clientService.List(c.Request.Context(), principal(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "pagination": pagination(query, total)})
}

// @Summary Get Client
// @Description Get a client with its cached balances
// @Tags Clients
// @Produce json
// @Param id path int true "Client ID"
// @Success 200 {object} models.Client
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) Show(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

// @Summary Create Client
// @Description Create a client. The body may be wrapped as {"client": {...}}
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body services.CreateClientInput true "Client Data"
// @Success 201 {object} models.Client
// @Failure 400 {object} map[string]interface{}
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	var in services.CreateClientInput
	if err := BindNestedOrFlat(c, "client", &in); err != nil {
		badRequest(c, err.Error())
		return
	}
	client, err := h.clientService.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

// @Summary Recompute Client Balance
// @Description Rebuild outstanding_balance and total_billed from the client's invoices
// @Tags Clients
// @Produce json
// @Param id path int true "Client ID"
// @Success 200 {object} models.Client
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /clients/{id}/recompute [post]
func (h *ClientHandler) Recompute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.Recompute(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

// @Summary Client Statement
// @Description Download every invoice of a client as an Excel statement
// @Tags Clients
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Client ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /clients/{id}/statement.xlsx [get]
func (h *ClientHandler) Statement(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	buf, filename, err := h.exportService.ClientStatementXLSX(c.Request.Context(), principal(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, buf)
}

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// @Summary List Projects
// @Description Get a paginated list of projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param client_id query int false "Filter by client"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /projects [get]
func (h *ProjectHandler) Index(c *gin.Context) {
	query := listQuery(c, "client_id", "status")
	projects, total, err := h.projectService.List(c.Request.Context(), principal(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "pagination": pagination(query, total)})
}

// @Summary Create Project
// @Description Create a project for one of the caller's clients. hourly_rate defaults to the client's billing rate
// @Tags Projects
// @Accept json
// @Produce json
// @Param request body services.CreateProjectInput true "Project Data"
// @Success 201 {object} models.Project
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	var in services.CreateProjectInput
	if err := BindNestedOrFlat(c, "project", &in); err != nil {
		badRequest(c, err.Error())
		return
	}
	project, err := h.projectService.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": project})
}
