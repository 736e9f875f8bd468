package observability

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealth serves grpc.health.v1 for orchestrators that check health over gRPC.
// The serving status mirrors the HTTP readiness checks.
type GRPCHealth struct {
	server   *grpc.Server
	health   *health.Server
	checks   HealthChecks
	interval time.Duration
}

// NewGRPCHealth creates the health server; statuses start as NOT_SERVING
// until the first round of checks completes.
func NewGRPCHealth(checks HealthChecks, interval time.Duration) *GRPCHealth {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCHealth{
		server:   srv,
		health:   hs,
		checks:   checks,
		interval: interval,
	}
}

// Refresh runs the readiness checks once and publishes the result.
func (g *GRPCHealth) Refresh(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, ok := g.checks.Run(checkCtx)
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
	return ok
}

// Serve listens on addr and blocks until ctx is cancelled or the listener fails.
func (g *GRPCHealth) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc health listen on %s: %w", addr, err)
	}
	return g.ServeListener(ctx, lis)
}

// ServeListener serves on an existing listener.
func (g *GRPCHealth) ServeListener(ctx context.Context, lis net.Listener) error {
	go g.refreshLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		g.health.Shutdown()
		g.server.GracefulStop()
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

func (g *GRPCHealth) refreshLoop(ctx context.Context) {
	logger := GetLogger()
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if !g.Refresh(ctx) {
			logger.Warn().Msg("gRPC health: dependencies not ready")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
