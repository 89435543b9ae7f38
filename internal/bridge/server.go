package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/eiscpctl/internal/logging"
	"github.com/muurk/eiscpctl/internal/metrics"
	"github.com/muurk/eiscpctl/internal/receiver"
)

// shutdownTimeout bounds how long Shutdown waits for clients to go away
const shutdownTimeout = 10 * time.Second

// Commander is the part of the receiver client the bridge uses.
type Commander interface {
	SendCommand(ctx context.Context, command, value string) (receiver.Event, error)
	SubscribeAll(fn receiver.Handler) (func(), error)
	State() receiver.State
}

// Config holds the server configuration
type Config struct {
	Listen string // host:port, e.g. ":8080"
}

// Server relays one receiver to websocket and HTTP clients
type Server struct {
	config   Config
	receiver Commander
	metrics  *metrics.Metrics

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu       sync.Mutex
	listener net.Listener
	clients  map[*wsClient]struct{}
	wg       sync.WaitGroup

	unsubscribe func()
}

// New creates a bridge for rcv. m may be nil, in which case /metrics is
// not served.
func New(config Config, rcv Commander, m *metrics.Metrics) (*Server, error) {
	if rcv == nil {
		return nil, fmt.Errorf("%w: nil receiver", receiver.ErrInvalidConfig)
	}

	s := &Server{
		config:   config,
		receiver: rcv,
		metrics:  m,
		clients:  make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser dashboards on other origins are expected.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	unsubscribe, err := rcv.SubscribeAll(s.broadcast)
	if err != nil {
		return nil, fmt.Errorf("subscribe to receiver events: %w", err)
	}
	s.unsubscribe = unsubscribe

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the bridge's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logging.Info("Bridge listening for connections",
		zap.String("addr", ln.Addr().String()),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpSrv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping bridge...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the listening address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections, closes every websocket client and
// waits for their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	s.unsubscribe()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		logging.Error("Error shutting down HTTP server", zap.Error(err))
	}

	// Hijacked websocket connections are not closed by http.Server.
	s.mu.Lock()
	for c := range s.clients {
		logging.Info("Closing active connection", zap.String("remote_addr", c.remoteAddr))
		c.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return nil
}

// ClientCount returns the number of connected websocket clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast fans an event out to every websocket client. It runs on the
// receiver's read goroutine and never blocks: a client whose queue is full
// is disconnected.
func (s *Server) broadcast(ev receiver.Event) {
	msg := NewEventMessage(ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.enqueue(msg) {
			logging.Warn("Dropping slow websocket client", zap.String("remote_addr", c.remoteAddr))
			c.close()
		}
	}
}

func (s *Server) register(c *wsClient) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.BridgeClientConnected()
	}
}

func (s *Server) unregister(c *wsClient) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok && s.metrics != nil {
		s.metrics.BridgeClientDisconnected()
	}
}
