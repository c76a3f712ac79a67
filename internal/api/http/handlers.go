package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/frames"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/relay"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/upgrade"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	relay    *relay.Relay
	frames   *frames.Directory
	upgrader *upgrade.Upgrader
	pagesDir string
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(
	r *relay.Relay,
	dir *frames.Directory,
	upgrader *upgrade.Upgrader,
	pagesDir string,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		relay:    r,
		frames:   dir,
		upgrader: upgrader,
		pagesDir: pagesDir,
		logger:   logger,
	}
}

// WithMetrics adds metrics tracking to the handlers
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "widget relay",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	reg := h.relay.Registry()
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"relay": gin.H{
			"topics":        len(reg.Topics()),
			"subscriptions": reg.Subscriptions(),
		},
		"frames": len(h.frames.List("")),
	})
}

// Topics lists every known topic with its subscriber count
func (h *Handlers) Topics(c *gin.Context) {
	topics := h.relay.Registry().Topics()
	c.JSON(http.StatusOK, gin.H{
		"topics": topics,
		"count":  len(topics),
	})
}

// Frames lists registered frames, optionally filtered by page
func (h *Handlers) Frames(c *gin.Context) {
	list := h.frames.List(c.Query("page"))
	c.JSON(http.StatusOK, gin.H{
		"frames": list,
		"count":  len(list),
	})
}

// Stats returns a JSON snapshot of relay metrics
func (h *Handlers) Stats(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
