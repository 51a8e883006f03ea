package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/EvilX/reversi/internal/config"
	"github.com/EvilX/reversi/internal/game/session"
)

// SessionHandler processes a connected client session.
// Implementations own the message loop for a single channel.
type SessionHandler interface {
	HandleSession(ctx context.Context, ch session.Channel) error
}

// Acceptor listens for WebSocket upgrade requests on a TCP port and
// dispatches each upgraded connection to a SessionHandler.
type Acceptor struct {
	cfg      config.WebsocketConfig
	handler  SessionHandler
	logger   *zap.Logger
	upgrader websocket.Upgrader

	srv      *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	conns    map[*Conn]struct{}
	running  bool
}

// NewAcceptor creates a WebSocket acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.WebsocketConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  int(cfg.MaxMessageBytes),
			WriteBufferSize: int(cfg.MaxMessageBytes),
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		quit:  make(chan struct{}),
		conns: make(map[*Conn]struct{}),
	}
}

// ListenAndServe starts the HTTP listener and upgrades connections until
// Stop is called. This method blocks until the acceptor is stopped.
//
// Precondition: The acceptor must not already be running.
// Postcondition: The listener is closed when this method returns.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()

	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", a.handleUpgrade)
	srv := &http.Server{Handler: mux}

	a.mu.Lock()
	a.listener = listener
	a.srv = srv
	a.running = true
	a.mu.Unlock()

	a.logger.Info("websocket acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		select {
		case <-a.quit:
			return nil
		default:
			return err
		}
	}
	return nil
}

// handleUpgrade upgrades a single HTTP request and runs its session.
func (a *Acceptor) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	raw, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("upgrading connection",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	conn := NewConn(raw, a.cfg)

	a.mu.Lock()
	a.conns[conn] = struct{}{}
	a.mu.Unlock()

	a.wg.Add(1)
	go a.runSession(conn)
}

// runSession drives the handler for one connection and cleans up after it.
func (a *Acceptor) runSession(conn *Conn) {
	defer a.wg.Done()
	start := time.Now()
	addr := conn.RemoteAddr()

	a.logger.Info("client connected",
		zap.String("remote_addr", addr),
	)

	defer func() {
		_ = conn.Close(websocket.CloseGoingAway, "")
		a.mu.Lock()
		delete(a.conns, conn)
		a.mu.Unlock()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel context when quit signal received
	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.handler.HandleSession(ctx, conn); err != nil {
		a.logger.Debug("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		a.logger.Info("session ended cleanly",
			zap.String("remote_addr", addr),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Stop gracefully stops the acceptor, closing the listener and all open
// connections, then waiting for active sessions to finish.
//
// Postcondition: All connections are closed and goroutines have exited.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false

	close(a.quit)
	if a.srv != nil {
		_ = a.srv.Close()
	}
	for conn := range a.conns {
		_ = conn.Close(websocket.CloseGoingAway, "")
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("websocket acceptor stopped")
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
