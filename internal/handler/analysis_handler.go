package handler

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/LyceumX/equant/internal/event"
	"github.com/LyceumX/equant/internal/middleware"
	"github.com/LyceumX/equant/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Symbols are tickers with an optional exchange suffix, e.g. "2330.TW"
var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-]{0,11}$`)

// AnalysisHandler handles analysis HTTP requests
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	events          *event.Producer
	analysisTopic   string
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analysisService *service.AnalysisService, events *event.Producer, analysisTopic string, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		events:          events,
		analysisTopic:   analysisTopic,
		logger:          logger,
	}
}

// Analyze handles GET /api/v1/analyze/:symbol
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	symbol := c.Param("symbol")
	if !symbolPattern.MatchString(symbol) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Invalid symbol format",
			"field": "symbol",
		})
		return
	}

	isPremium := false
	if premium, exists := c.Get(middleware.ContextIsPremium); exists {
		isPremium, _ = premium.(bool)
	}

	result := h.analysisService.Analyze(c.Request.Context(), symbol, isPremium)

	userID := 0
	if id, exists := c.Get(middleware.ContextUserID); exists {
		userID, _ = id.(int)
	}
	go h.publishUsage(symbol, userID, isPremium)

	c.JSON(http.StatusOK, result)
}

// publishUsage emits the analysis usage event when a producer is configured.
// Runs off the request path so a slow broker never delays the response.
func (h *AnalysisHandler) publishUsage(symbol string, userID int, isPremium bool) {
	if h.events == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Best-effort: failure is logged by the producer, never surfaced
	_ = h.events.Publish(ctx, h.analysisTopic, symbol, event.AnalysisCompleted{
		Symbol:  symbol,
		UserID:  userID,
		Premium: isPremium,
		At:      time.Now().UTC().Format(time.RFC3339),
	})
}
