package inspect

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// maxClientMessage limits what a watching client may send. Clients only
// send close frames and pongs.
const maxClientMessage = 512

// watchConn streams the updates of one watch to a WebSocket client.
type watchConn struct {
	conn    *websocket.Conn
	send    chan Update
	done    chan struct{}
	once    sync.Once
	config  *Config
	metrics *serverMetrics
	logger  *slog.Logger
}

func newWatchConn(conn *websocket.Conn, cfg *Config, metrics *serverMetrics, logger *slog.Logger) *watchConn {
	return &watchConn{
		conn:    conn,
		send:    make(chan Update, cfg.SendQueueSize),
		done:    make(chan struct{}),
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// enqueue queues u without blocking. It runs on the hub goroutine; a client
// too slow to keep up is disconnected.
func (c *watchConn) enqueue(u Update) {
	select {
	case c.send <- u:
	case <-c.done:
	default:
		c.logger.Warn("watch queue full, closing", "queue", cap(c.send))
		c.metrics.recordWebSocketError("overflow")
		c.close()
	}
}

func (c *watchConn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readLoop discards client messages until the connection fails or closes.
func (c *watchConn) readLoop() {
	defer c.close()

	c.conn.SetReadLimit(maxClientMessage)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
				c.metrics.recordWebSocketError("read")
			}
			return
		}
	}
}

// writeLoop writes queued updates and heartbeats until the watch closes.
func (c *watchConn) writeLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	defer c.conn.Close()
	defer c.close()

	for {
		select {
		case u := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteJSON(u); err != nil {
				c.logger.Error("write error", "error", err)
				c.metrics.recordWebSocketError("write")
				return
			}
			c.metrics.updateSent()

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout)); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return
		}
	}
}

// handleWatch upgrades to a WebSocket and streams a watch on the path query
// parameter until either side closes.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	path, ok := s.pathParam(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.Error("websocket upgrade failed", "error", err)
		s.metrics.recordWebSocketError("upgrade")
		return
	}

	wc := newWatchConn(conn, s.config, s.metrics, s.logger)
	id, err := s.hub.Watch(r.Context(), path, wc.enqueue)
	if err != nil {
		s.logger.Error("watch failed", "error", err)
		conn.Close()
		return
	}

	logger := s.logger.With("watch_id", id, "path", path.String())
	logger.Info("watch opened")
	s.metrics.watchOpened()
	s.mu.Lock()
	s.watches[wc] = struct{}{}
	s.mu.Unlock()

	go wc.readLoop()
	wc.writeLoop()

	s.mu.Lock()
	delete(s.watches, wc)
	s.mu.Unlock()
	s.metrics.watchClosed()
	if err := s.hub.Unwatch(context.Background(), id); err != nil && !errors.Is(err, ErrClosed) {
		logger.Warn("unwatch failed", "error", err)
	}
	logger.Info("watch closed")
}
