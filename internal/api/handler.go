// Package api exposes the aggregation engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/topic-repo-search/pkg/logging"
	"github.com/Sternrassler/topic-repo-search/pkg/search"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Searcher runs one aggregated search. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) *search.Result
}

// Handler serves the repository endpoints.
type Handler struct {
	searcher Searcher
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewHandler creates a handler. timeout bounds one search; zero means no
// limit beyond the client's own.
func NewHandler(searcher Searcher, timeout time.Duration) *Handler {
	return &Handler{
		searcher: searcher,
		timeout:  timeout,
		logger:   logging.NewLogger("api"),
	}
}

// ListRepositoriesRequest holds the query parameters of GET /api/repos.
type ListRepositoriesRequest struct {
	Topic   string `form:"topic"`
	Search  string `form:"search"`
	Sort    string `form:"sort" binding:"omitempty,oneof=name popularity activity"`
	Order   string `form:"order" binding:"omitempty,oneof=asc desc"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Page    int    `form:"page" binding:"omitempty,min=1,max=10000"`
}

// ListRepositories handles GET /api/repos
// @Summary List GitHub repositories
// @Description Aggregates up to 500 repositories for a topic and returns one locally sorted page
// @Tags Repositories
// @Produce json
// @Param topic query string false "Topic" default(php)
// @Param search query string false "Search term matched against name and description"
// @Param sort query string false "Sort field" Enums(name, popularity, activity)
// @Param order query string false "Sort order" Enums(asc, desc)
// @Param per_page query int false "Items per page" default(10)
// @Param page query int false "Page number" default(1)
// @Success 200 {object} ListRepositoriesResponse
// @Failure 422 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/repos [get]
func (h *Handler) ListRepositories(c *gin.Context) {
	var req ListRepositoriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, newErrorResponse(err.Error()))
		return
	}

	q, err := search.NewQuery(req.Topic, req.Search, req.Sort, req.Order, req.PerPage, req.Page)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, newErrorResponse(err.Error()))
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result := h.searcher.Search(ctx, q)

	switch result.Status {
	case search.StatusOK:
		c.JSON(http.StatusOK, newListResponse(result))
	case search.StatusEmpty:
		// An empty search is a normal answer for the browser client
		c.JSON(http.StatusOK, newErrorResponse(result.Message))
	default:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.JSON(http.StatusGatewayTimeout, newErrorResponse(result.Message))
			return
		}
		c.JSON(http.StatusBadGateway, newErrorResponse(result.Message))
	}
}

// Health handles GET /health
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}
