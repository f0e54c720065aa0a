package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/omarluq/hotswap/internal/config"
)

// ErrNotListening is returned by Serve before Listen succeeded.
var ErrNotListening = errors.New("server: not listening")

// WriteTimeout leaves room for the longest restart a valid configuration
// allows, plus time to write the response.
const WriteTimeout = time.Duration(config.MaxRestartTimeoutMS)*time.Millisecond + 10*time.Second

// Server wraps http.Server. Binding and serving are split so a bind failure
// can be reported before any state is published.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
}

// NewServer creates a Server.
// If enableHTTP2 is true, HTTP/2 cleartext (h2c) is accepted on the plain listener.
func NewServer(addr string, handler http.Handler, enableHTTP2 bool) *Server {
	finalHandler := handler
	if enableHTTP2 {
		finalHandler = h2c.NewHandler(handler, &http2.Server{})
	}

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           finalHandler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Listen binds the listening socket.
func (s *Server) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve accepts connections until Shutdown. It returns nil after a graceful
// shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return ErrNotListening
	}
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
