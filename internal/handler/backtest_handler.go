package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LyceumX/equant/internal/event"
	"github.com/LyceumX/equant/internal/middleware"
	"github.com/LyceumX/equant/internal/model"
	"github.com/LyceumX/equant/internal/repository"
	"github.com/LyceumX/equant/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BacktestHandler handles backtest HTTP requests
type BacktestHandler struct {
	backtestService *service.BacktestService
	backtestRepo    *repository.BacktestRepository
	events          *event.Producer
	backtestTopic   string
	logger          *zap.Logger
}

// NewBacktestHandler creates a new backtest handler. Repository and event
// producer are optional; nil disables persistence and usage events.
func NewBacktestHandler(
	backtestService *service.BacktestService,
	backtestRepo *repository.BacktestRepository,
	events *event.Producer,
	backtestTopic string,
	logger *zap.Logger,
) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
		backtestRepo:    backtestRepo,
		events:          events,
		backtestTopic:   backtestTopic,
		logger:          logger,
	}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req model.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	userID := 0
	if id, exists := c.Get(middleware.ContextUserID); exists {
		userID, _ = id.(int)
	}

	result, err := h.backtestService.RunBacktest(c.Request.Context(), &req)
	if err != nil {
		var validationErr *service.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": validationErr.Message,
				"field": validationErr.Field,
			})
			return
		}

		h.logger.Error("Backtest simulation failed",
			zap.Error(err),
			zap.String("symbol", req.Symbol),
			zap.Int("userID", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Backtest simulation failed"})
		return
	}

	h.persistRun(c.Request.Context(), userID, &req, result)
	go h.publishUsage(userID, result)

	c.JSON(http.StatusOK, result)
}

// History handles GET /api/v1/backtest/history
func (h *BacktestHandler) History(c *gin.Context) {
	if h.backtestRepo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backtest history is not enabled"})
		return
	}

	userID, exists := c.Get(middleware.ContextUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.backtestRepo.ListRuns(c.Request.Context(), userID.(int), limit)
	if err != nil {
		h.logger.Error("Failed to list backtest runs",
			zap.Error(err),
			zap.Int("userID", userID.(int)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve backtest history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// persistRun saves the completed run when persistence is enabled.
// A storage failure degrades to a log entry, not a failed request.
func (h *BacktestHandler) persistRun(ctx context.Context, userID int, req *model.BacktestRequest, result *model.BacktestResponse) {
	if h.backtestRepo == nil {
		return
	}
	if _, err := h.backtestRepo.SaveRun(ctx, userID, req, result); err != nil {
		h.logger.Warn("Failed to persist backtest run",
			zap.Error(err),
			zap.String("symbol", req.Symbol),
			zap.Int("userID", userID))
	}
}

// publishUsage emits the backtest usage event when a producer is configured.
// Runs off the request path so a slow broker never delays the response.
func (h *BacktestHandler) publishUsage(userID int, result *model.BacktestResponse) {
	if h.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_ = h.events.Publish(ctx, h.backtestTopic, result.Symbol, event.BacktestCompleted{
		Symbol:         result.Symbol,
		UserID:         userID,
		Strategy:       result.Strategy,
		NumTrades:      result.Metrics.NumTrades,
		TotalReturnPct: result.Metrics.TotalReturnPct,
		At:             time.Now().UTC().Format(time.RFC3339),
	})
}
