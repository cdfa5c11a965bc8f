package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsleuth/opsleuth/internal/metrics"
	"github.com/opsleuth/opsleuth/internal/models"
	"github.com/opsleuth/opsleuth/internal/utils"
)

// Analyzer runs one incident analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (models.AnalyzeResponse, error)
}

// Handler exposes the analysis pipeline over HTTP.
type Handler struct {
	logger    *slog.Logger
	analyzer  Analyzer
	latencies *utils.LatencyTracker
}

// NewHandler constructs the HTTP handler facade.
func NewHandler(logger *slog.Logger, analyzer Analyzer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		analyzer:  analyzer,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Routes builds the gin engine with all endpoints registered.
func (h *Handler) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)
	router.POST("/api/v1/analyze", h.analyze)

	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) analyze(c *gin.Context) {
	if h.analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analyzer not configured"})
		return
	}

	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	resp, err := h.analyzer.Analyze(c.Request.Context(), req)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		h.logger.Error("analysis failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	h.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := h.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := h.latencies.Percentile(95)
		h.logger.Info("analysis latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	c.JSON(http.StatusOK, resp)
}

// LatencyP95 returns the current p95 analysis latency.
func (h *Handler) LatencyP95() time.Duration {
	if h.latencies == nil {
		return 0
	}
	return h.latencies.Percentile(95)
}
