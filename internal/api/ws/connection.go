package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/widgetrelay/backend/internal/domain/envelope"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/widgetrelay/backend/internal/shared/id"
)

var (
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Connection is one WebSocket peer. Widget connections are relay endpoints.
type Connection struct {
	id      id.EndpointID
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func newConnection(conn *websocket.Conn, buffer int, logger *zap.Logger, metrics *monitoring.Metrics) *Connection {
	epID := id.NewEndpointID()
	return &Connection{
		id:      epID,
		conn:    conn,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
		logger:  logger.With(zap.String("endpoint", epID.String())),
		metrics: metrics,
	}
}

// ID returns the endpoint identity
func (c *Connection) ID() id.EndpointID {
	return c.id
}

// Post queues an envelope for delivery without blocking
func (c *Connection) Post(env envelope.Envelope) error {
	data, err := envelope.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer and closes the socket
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// writePump is the only goroutine writing to the socket
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				c.Close()
				return
			}
			if c.metrics != nil {
				c.metrics.RecordWSMessage("out")
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readLoop calls handle for every data frame until the peer goes away
func (c *Connection) readLoop(maxBytes int64, handle func([]byte)) {
	if maxBytes > 0 {
		c.conn.SetReadLimit(maxBytes)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.metrics != nil {
			c.metrics.RecordWSMessage("in")
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		handle(data)
	}
}
