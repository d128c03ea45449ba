// Package health exposes the standard gRPC health service for the bridge
// process and its vendor session.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/rbright/socialbridge/internal/fsm"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SessionService reports SERVING only while the vendor session is ready.
const SessionService = "socialbridge.session"

// Server owns the gRPC server and the health status table.
type Server struct {
	grpc   *grpc.Server
	status *grpchealth.Server
	logger *slog.Logger
}

// NewServer registers the health service. The process itself is SERVING
// from the start; the session starts NOT_SERVING.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	status := grpchealth.NewServer()
	status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	status.SetServingStatus(SessionService, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, status)

	return &Server{grpc: srv, status: status, logger: logger}
}

// Follow maps a session state onto the session service status. It matches
// session.Manager.OnStateChange.
func (s *Server) Follow(state fsm.State) {
	serving := healthpb.HealthCheckResponse_NOT_SERVING
	if state == fsm.StateReady {
		serving = healthpb.HealthCheckResponse_SERVING
	}
	s.status.SetServingStatus(SessionService, serving)
	s.logger.Debug("health status updated", "service", SessionService, "status", serving.String())
}

// Serve answers health checks on listener until ctx ends. On exit every
// service is marked NOT_SERVING so watchers see the shutdown.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.status.Shutdown()
			s.grpc.GracefulStop()
		case <-done:
		}
	}()

	s.logger.Info("health endpoint listening", "address", listener.Addr().String())
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve health: %w", err)
	}
	return nil
}

// Stop ends Serve immediately.
func (s *Server) Stop() {
	s.status.Shutdown()
	s.grpc.Stop()
}
