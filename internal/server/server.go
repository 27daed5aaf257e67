// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/gateway"
	"github.com/xdg/cmdgate/internal/metrics"
	"github.com/xdg/cmdgate/internal/tools"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8080"

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 64 << 10

// Credential headers.
const (
	APIKeyHeader    = "X-API-Key" //nolint:gosec // G101: header name, not a credential
	RequestIDHeader = "X-Request-ID"
)

// Gateway is the subset of *gateway.Gateway the server drives.
type Gateway interface {
	Execute(ctx context.Context, cred auth.Credential, req gateway.CommandRequest) (gateway.Response, error)
	RunTool(ctx context.Context, cred auth.Credential, name string, req tools.Request) (gateway.Response, error)
	Authenticate(ctx context.Context, cred auth.Credential) (*auth.Principal, error)
	Health() gateway.Health
	Capabilities() gateway.Capabilities
}

// LoginService performs password logins.
type LoginService interface {
	Login(ctx context.Context, username, password string) (auth.Token, *auth.Principal, error)
}

// Server serves the gateway HTTP API.
type Server struct {
	// Addr is the address to listen on (e.g., "127.0.0.1:8080").
	Addr string

	// MaxBodyBytes caps request bodies. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Gateway Gateway

	// Login handles POST /auth/login. If nil, the route returns 404.
	Login LoginService

	// Audit and Metrics may be nil.
	Audit   *audit.Logger
	Metrics *metrics.Metrics

	server   *http.Server
	listener net.Listener
	mu       sync.Mutex
	running  bool
}

// New creates a server for gw. login, auditLogger and m may be nil.
func New(gw Gateway, login LoginService, auditLogger *audit.Logger, m *metrics.Metrics) *Server {
	return &Server{
		Addr:         DefaultAddr,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Gateway:      gw,
		Login:        login,
		Audit:        auditLogger,
		Metrics:      m,
	}
}

// Handler returns the full route table wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /tools/{name}", s.handleTool)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /capabilities", s.requireAuth(http.HandlerFunc(s.handleCapabilities)))
	mux.Handle("GET /metrics", s.Metrics.Handler())
	if s.Login != nil {
		mux.HandleFunc("POST /auth/login", s.handleLogin)
	}
	mux.Handle("GET /auth/me", s.requireAuth(http.HandlerFunc(s.handleMe)))

	return s.withRequestID(s.withObservability(s.withRecover(mux)))
}

// Start begins accepting connections.
// Returns an error if the server is already running or fails to start.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 30 * time.Second,
		ErrorLog:          clog.StdLogger(clog.LevelWarn),
	}
	s.running = true

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.Error("server: serve: %v", err)
		}
	}()

	clog.Info("server: listening on %s", listener.Addr())
	return nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.server.Shutdown(ctx)
}

// ListenAddr returns the actual address the server is listening on.
// Returns empty string if the server has not been started.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) maxBody() int64 {
	if s.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return s.MaxBodyBytes
}
