// Package transport mirrors console frames to browser clients over a
// websocket and serves PNG snapshots of the primary surface.
package transport

import (
	"context"
	"errors"
	"image/color"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"

	"github.com/cybre/vinylviz/internal/console"
	"github.com/cybre/vinylviz/internal/render"
)

const (
	broadcastBuffer = 8
	writeTimeout    = 2 * time.Second
)

// Background is the fill behind PNG snapshots.
var Background = color.NRGBA{R: 0x05, G: 0x05, B: 0x0a, A: 0xff}

// Server fans frames out to websocket clients. Publish never blocks: when
// clients fall behind, frames are dropped.
type Server struct {
	addr     string
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
	broadcast chan message

	lastMu   sync.RWMutex
	last     *console.Frame
	lastSent time.Time
}

// NewServer creates a server for addr sending at most one frame per interval.
func NewServer(addr string, interval time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		interval: interval,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan message, broadcastBuffer),
	}
}

// Handler exposes /ws and /frame.png.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/frame.png", s.handleFrame)
	return mux
}

// Publish implements console.Sink.
func (s *Server) Publish(f console.Frame) {
	s.lastMu.Lock()
	s.last = &f
	due := f.At.Sub(s.lastSent) >= s.interval
	if due {
		s.lastSent = f.At
	}
	s.lastMu.Unlock()

	if !due || s.ClientCount() == 0 {
		return
	}
	select {
	case s.broadcast <- newMessage(f):
	default:
	}
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

// Run serves HTTP and broadcasts until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return eris.Wrapf(err, "listen on %s", s.addr)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("websocket server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	go s.broadcastLoop(ctx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.closeClients()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "shutdown websocket server")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "serve websocket")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Info("client connected", slog.String("remote", r.RemoteAddr), slog.Int("clients", total))

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.drop(conn)
				return
			}
		}
	}()
}

func (s *Server) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.broadcast:
			s.clientsMu.Lock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for c := range s.clients {
				clients = append(clients, c)
			}
			s.clientsMu.Unlock()

			for _, c := range clients {
				c.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.WriteJSON(msg); err != nil {
					s.logger.Debug("dropping client", slog.Any("error", err))
					s.drop(c)
				}
			}
		}
	}
}

func (s *Server) drop(c *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	total := len(s.clients)
	s.clientsMu.Unlock()
	if ok {
		c.Close()
		s.logger.Info("client disconnected", slog.Int("clients", total))
	}
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		c.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	s.lastMu.RLock()
	last := s.last
	s.lastMu.RUnlock()
	if last == nil || last.Display == nil {
		http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
		return
	}

	width, height := last.Display.Size()
	raster := render.NewRaster(int(width), int(height), Background)
	last.Display.Replay(raster)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, raster.Image()); err != nil {
		s.logger.Warn("png encode failed", slog.Any("error", err))
	}
}
