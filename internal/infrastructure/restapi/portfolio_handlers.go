package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// APIPortfolioResponse is the body of GET /api/v1/portfolio.
type APIPortfolioResponse struct {
	Data          *entity.PortfolioReport     `json:"data,omitempty"`
	Warnings      []entity.PortfolioErrorView `json:"warnings,omitempty"`
	Error         *entity.PortfolioErrorView  `json:"error,omitempty"`
	StatusMessage string                      `json:"status_message"`
}

// APISnapshotsResponse is the body of GET /api/v1/snapshots.
type APISnapshotsResponse struct {
	Batches       []entity.SnapshotBatch      `json:"batches"`
	Warnings      []entity.PortfolioErrorView `json:"warnings,omitempty"`
	StatusMessage string                      `json:"status_message"`
}

// PortfolioHandler handles portfolio HTTP requests.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	logger           port.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(ps port.PortfolioService, l port.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: ps, logger: l}
}

// GetPortfolioHandler runs one valuation cycle and returns its report. An
// invariant violation is a 500 naming the violated invariant; a primary
// source failure is a 503. Degraded sources still give a 200 with warnings.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	report, err := h.portfolioService.RunCycle(c.Request.Context())
	if err != nil {
		view := errorView(err)
		status := http.StatusInternalServerError
		msg := "Valuation halted: " + view.Message
		if errors.Is(err, entity.ErrSourceUnavailable) {
			status = http.StatusServiceUnavailable
			msg = "Primary balance source unavailable."
		}
		c.JSON(status, APIPortfolioResponse{Error: &view, StatusMessage: msg})
		return
	}

	response := APIPortfolioResponse{Data: report, Warnings: warningViews(report.Warnings)}
	switch {
	case len(response.Warnings) > 0:
		response.StatusMessage = "Portfolio valued. Some sources or prices were unavailable."
	case len(report.Valuation.Assets) == 0:
		response.StatusMessage = "No holdings found. Check wallet and asset configuration."
	default:
		response.StatusMessage = "Portfolio valued successfully."
	}
	c.JSON(http.StatusOK, response)
}

// GetSnapshotsHandler returns the recorded snapshot batches, oldest first.
// An unreadable store is reported as an empty history with a warning.
func (h *PortfolioHandler) GetSnapshotsHandler(c *gin.Context) {
	history, err := h.portfolioService.History(c.Request.Context())
	if err != nil {
		h.logger.Warn("Snapshot history unavailable", "error", err)
		c.JSON(http.StatusOK, APISnapshotsResponse{
			Batches:       []entity.SnapshotBatch{},
			Warnings:      []entity.PortfolioErrorView{errorView(err)},
			StatusMessage: "Snapshot history unavailable.",
		})
		return
	}

	batches := history.Batches
	if batches == nil {
		batches = []entity.SnapshotBatch{}
	}
	c.JSON(http.StatusOK, APISnapshotsResponse{Batches: batches, StatusMessage: "ok"})
}

// HealthHandler reports liveness.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errorView(err error) entity.PortfolioErrorView {
	var pe *entity.PortfolioError
	if errors.As(err, &pe) {
		return pe.View()
	}
	return entity.PortfolioErrorView{Kind: "unknown", Message: err.Error()}
}

func warningViews(warnings []entity.PortfolioError) []entity.PortfolioErrorView {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]entity.PortfolioErrorView, len(warnings))
	for i := range warnings {
		out[i] = warnings[i].View()
	}
	return out
}
