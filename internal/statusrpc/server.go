// Package statusrpc exposes live session state over the standard gRPC health
// protocol so status bars can watch it without a custom client.
package statusrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/shotclock/internal/extraction"
	"github.com/rbright/shotclock/internal/fsm"
	"github.com/rbright/shotclock/internal/session"
	"github.com/rbright/shotclock/internal/shot"
)

// Health service names. ServiceListening is SERVING while a listen session
// holds the microphone; ServiceExtraction is SERVING while the timer runs.
const (
	ServiceListening  = "shotclock"
	ServiceExtraction = "shotclock.extraction"
)

// Server is a session.Sink that mirrors snapshots into health statuses.
type Server struct {
	logger *slog.Logger
	health *health.Server
	grpc   *grpc.Server

	mu   sync.Mutex
	last map[string]healthpb.HealthCheckResponse_ServingStatus
}

func NewServer(logger *slog.Logger) *Server {
	s := &Server{
		logger: logger,
		health: health.NewServer(),
		grpc:   grpc.NewServer(),
		last:   make(map[string]healthpb.HealthCheckResponse_ServingStatus),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.set(ServiceListening, healthpb.HealthCheckResponse_NOT_SERVING)
	s.set(ServiceExtraction, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Listen binds address and serves until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, address string) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen status rpc %s: %w", address, err)
	}
	return s.Serve(ctx, lis)
}

// Serve runs the gRPC server on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.health.Shutdown()

		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			s.grpc.Stop()
		}
	}()

	s.logInfo("status rpc listening", "address", lis.Addr().String())
	err := s.grpc.Serve(lis)
	if ctx.Err() != nil {
		<-stopped
	}
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve status rpc: %w", err)
	}
	return nil
}

func (s *Server) OnSnapshot(snap session.Snapshot) {
	listening := healthpb.HealthCheckResponse_NOT_SERVING
	if snap.Listening {
		listening = healthpb.HealthCheckResponse_SERVING
	}
	extracting := healthpb.HealthCheckResponse_NOT_SERVING
	if snap.Listening && snap.State == fsm.StateRunning {
		extracting = healthpb.HealthCheckResponse_SERVING
	}
	s.set(ServiceListening, listening)
	s.set(ServiceExtraction, extracting)
}

func (s *Server) OnLevel(session.Level)        {}
func (s *Server) OnTick(string, time.Duration) {}
func (s *Server) OnStatus(extraction.Status)   {}
func (s *Server) OnShot(shot.Shot)             {}

// set forwards only changes so watchers see one update per transition.
func (s *Server) set(service string, status healthpb.HealthCheckResponse_ServingStatus) {
	s.mu.Lock()
	prev, ok := s.last[service]
	s.last[service] = status
	s.mu.Unlock()

	if ok && prev == status {
		return
	}
	s.health.SetServingStatus(service, status)
}

func (s *Server) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
