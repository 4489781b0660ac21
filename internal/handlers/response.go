package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sjperalta/billtrack-api/internal/middleware"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/internal/services"
	"github.com/sjperalta/billtrack-api/internal/statemachine"
	"github.com/sjperalta/billtrack-api/pkg/logger"
)

// respondError maps a service error onto its HTTP status. Anything that is
// not one of the service error kinds is a 500 and is reported.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	var terr *statemachine.TransitionError

	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		if len(verr.Details) > 0 {
			body["details"] = verr.Details
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &terr):
		c.JSON(http.StatusConflict, gin.H{
			"error":               err.Error(),
			"allowed_transitions": terr.Allowed,
		})
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrUnknownStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrIllegalTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logger.FromContext(c.Request.Context()).Error("request failed", "error", err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// paramID parses a positive numeric path parameter, writing a 400 if it is not one
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func principal(c *gin.Context) models.Principal {
	return middleware.GetPrincipal(c)
}

// listQuery reads page, per_page, sort and the given filter keys
func listQuery(c *gin.Context, filters ...string) *repository.ListQuery {
	query := repository.NewListQuery()
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		query.Page = page
	}
	if perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20")); err == nil && perPage > 0 {
		if perPage > 100 {
			perPage = 100
		}
		query.PerPage = perPage
	}
	for _, key := range filters {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			query.Filters[key] = v
		}
	}

	// format: field-direction
	if sort := c.Query("sort"); sort != "" {
		parts := strings.SplitN(sort, "-", 2)
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}
	return query
}

func pagination(query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		"page":        query.Page,
		"per_page":    query.PerPage,
		"total":       total,
		"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
	}
}
