package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Server exposes a run's collectors on /metrics while the run is in
// progress.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// StartServer binds port (0 picks a free one) before returning, so an
// address already in use is reported to the caller rather than logged.
func StartServer(port int, g prometheus.Gatherer) (*Server, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding metrics port %d: %w", port, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		ln:     ln,
		logger: slog.Default().With("component", "metrics-server"),
	}

	go func() {
		s.logger.Info("metrics server listening", "addr", s.Addr())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
	return s, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
