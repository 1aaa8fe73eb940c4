// Package stream broadcasts render frames to websocket viewers.
//
// Hub implements render.Renderer. Every flushed frame is a complete redraw,
// so frames can be dropped freely: the hub throttles to a maximum frame rate
// and skips clients whose send buffer is full instead of blocking the
// simulation.
package stream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/zeusync/robsim/internal/core/observability/log"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/render"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	sendBuffer      = 16
	writeWait       = time.Second
	shutdownTimeout = 2 * time.Second
)

var _ render.Renderer = (*Hub)(nil)

type Option func(*Hub)

// WithMaxFPS caps the broadcast rate. Zero or less means unlimited.
func WithMaxFPS(fps float64) Option {
	return func(h *Hub) {
		if fps > 0 {
			h.limiter = rate.NewLimiter(rate.Limit(fps), 1)
		} else {
			h.limiter = nil
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(h *Hub) { h.logger = l }
}

type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	pending []render.Command
	seq     uint64
	hello   []byte
	closed  bool
	dropped uint64

	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	logger   log.Log
}

func New(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open records the surface size. Viewers receive it as frame 0 on connect.
func (h *Hub) Open(width, height float64) error {
	msg, err := json.Marshal(render.Frame{Commands: []render.Command{{Op: render.OpOpen, X: width, Y: height}}})
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hello = msg
	h.broadcastLocked(msg)
	return nil
}

func (h *Hub) Remove(id string) {
	h.add(render.Command{Op: render.OpRemove, ID: id})
}

func (h *Hub) DrawPoint(id string, at physics.Vec2, radius float64, style string) {
	h.add(render.Command{Op: render.OpPoint, ID: id, X: at.X, Y: at.Y, Radius: radius, Style: style})
}

func (h *Hub) DrawVehicle(id string, at physics.Vec2, headingDeg, length float64, style string) {
	h.add(render.Command{Op: render.OpVehicle, ID: id, X: at.X, Y: at.Y, Heading: headingDeg, Length: length, Style: style})
}

func (h *Hub) DrawBox(id string, min, max physics.Vec2, style string) {
	h.add(render.Command{Op: render.OpBox, ID: id, X: min.X, Y: min.Y, X2: max.X, Y2: max.Y, Style: style})
}

// Flush ends the frame and broadcasts it unless the rate limit drops it.
func (h *Hub) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	frame := render.Frame{Seq: h.seq, Commands: h.pending}
	h.pending = nil

	if h.closed || len(h.clients) == 0 {
		return nil
	}
	if h.limiter != nil && !h.limiter.Allow() {
		h.dropped++
		return nil
	}
	msg, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	h.broadcastLocked(msg)
	return nil
}

// Close disconnects every viewer. Later connections are refused.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
	return nil
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped counts frames skipped by the rate limit.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.hello != nil {
		c.send <- h.hello
	}
	h.mu.Unlock()

	h.logger.Debug("viewer connected", log.String("remote", conn.RemoteAddr().String()))
	go c.writeLoop()
	c.readLoop()

	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
	h.logger.Debug("viewer disconnected", log.String("remote", conn.RemoteAddr().String()))
}

// Serve accepts viewers on ln at path until ctx is done.
func (h *Hub) Serve(ctx context.Context, ln net.Listener, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	h.logger.Info("render stream listening", log.String("addr", ln.Addr().String()), log.String("path", path))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	_ = h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	return err
}

func (h *Hub) add(c render.Command) {
	h.mu.Lock()
	h.pending = append(h.pending, c)
	h.mu.Unlock()
}

func (h *Hub) broadcastLocked(msg []byte) {
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("viewer too slow, frame skipped", log.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readLoop discards viewer input until the connection fails.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}
