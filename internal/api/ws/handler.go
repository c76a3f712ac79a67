package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/envelope"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/frames"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/relay"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

const (
	roleWidget = "widget"
	roleHost   = "host"
)

// Handler manages widget and host WebSocket connections
type Handler struct {
	relay    *relay.Relay
	frames   *frames.Directory
	cfg      config.RelayConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(r *relay.Relay, dir *frames.Directory, cfg config.RelayConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = config.Default().Relay.SendBuffer
	}
	h := &Handler{
		relay:  r,
		frames: dir,
		cfg:    cfg,
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// WithMetrics adds metrics tracking to the handler
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// checkOrigin applies the configured allow-list. Sandboxed frames without
// allow-same-origin report the origin "null".
func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.cfg.AllowsAnyOrigin() {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	h.logger.Debug("rejected socket origin", zap.String("origin", origin))
	return false
}

// HandleWidget upgrades a widget connection and feeds its frames to the relay
func (h *Handler) HandleWidget(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("widget upgrade failed", zap.Error(err))
		return
	}

	ep := newConnection(conn, h.cfg.SendBuffer, h.logger, h.metrics)
	h.connected(roleWidget)
	defer h.disconnected(roleWidget)

	if frameID := c.Query("frame"); frameID != "" && h.frames != nil {
		if !id.HasPrefix(frameID, id.FramePrefix) {
			ep.logger.Debug("ignoring malformed frame id", zap.String("frame", frameID))
		} else if err := h.frames.Bind(id.FrameID(frameID), ep.ID()); err != nil {
			ep.logger.Debug("widget frame not bound", zap.String("frame", frameID), zap.Error(err))
		}
	}

	go ep.writePump()

	ep.readLoop(h.cfg.MaxMessageBytes, func(data []byte) {
		h.relay.HandleRaw(data, ep)
	})

	h.relay.Disconnect(ep)
	if h.frames != nil {
		h.frames.Unbind(ep.ID())
	}
	ep.Close()
}

// HandleHost upgrades a host observer connection and streams frame resizes to it
func (h *Handler) HandleHost(c *gin.Context) {
	if h.frames == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "frame directory unavailable"})
		return
	}

	// watch before the handshake completes so no resize is missed
	updates, cancel := h.frames.Watch(h.cfg.SendBuffer)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		h.logger.Debug("host upgrade failed", zap.Error(err))
		return
	}

	host := newConnection(conn, h.cfg.SendBuffer, h.logger, h.metrics)
	h.connected(roleHost)
	defer h.disconnected(roleHost)

	page := c.Query("page")

	// current sizes first so a late host starts in sync
	for _, f := range h.frames.List(page) {
		if f.Width == 0 && f.Height == 0 {
			continue
		}
		if err := host.Post(frameSize(f)); err != nil {
			host.logger.Debug("host snapshot dropped", zap.String("frame", f.ID.String()), zap.Error(err))
		}
	}

	go host.writePump()
	go func() {
		for f := range updates {
			if page != "" && f.Page != page {
				continue
			}
			if err := host.Post(frameSize(f)); err != nil {
				host.logger.Debug("host update dropped", zap.Error(err))
			}
		}
	}()

	// hosts only listen; inbound frames are discarded
	host.readLoop(h.cfg.MaxMessageBytes, func([]byte) {})

	cancel()
	host.Close()
}

func frameSize(f frames.Frame) envelope.Envelope {
	return envelope.NewFrameSize(envelope.FrameSize{
		Frame:  string(f.ID),
		Page:   f.Page,
		Width:  f.Width,
		Height: f.Height,
	})
}

func (h *Handler) connected(role string) {
	if h.metrics != nil {
		h.metrics.IncWSConnections(role)
	}
}

func (h *Handler) disconnected(role string) {
	if h.metrics != nil {
		h.metrics.DecWSConnections(role)
	}
}
