// Package grpc serves the standard gRPC health protocol (grpc.health.v1),
// mirroring the HTTP readiness probe for gRPC-native orchestrators.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/health"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported alongside the overall ("") status.
const ServiceName = "sgics"

// Readiness is satisfied by *health.Registry.
type Readiness interface {
	Ready(ctx context.Context) health.Report
}

type GRPCServer struct {
	address  string
	ready    Readiness
	interval time.Duration
	logger   logging.Logger
	health   *grpchealth.Server
}

func NewGRPCServer(a string, l logging.Logger, ready Readiness, interval time.Duration) *GRPCServer {
	return &GRPCServer{
		address:  a,
		ready:    ready,
		interval: interval,
		logger:   l.With("module", "grpc_server"),
		health:   grpchealth.NewServer(),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.refresh(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watch(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.refresh(ctx)
		}
	}
}

// refresh runs the readiness checks and publishes the result.
func (s *GRPCServer) refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil {
		if rep := s.ready.Ready(ctx); !rep.OK() {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if ctx.Err() != nil {
		return
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}
