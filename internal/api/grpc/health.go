package grpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"rentloop-backend/internal/logger"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "rentloop.Backend"

// Pinger is satisfied by both stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter keeps the gRPC health status in line with the database.
type HealthReporter struct {
	db      Pinger
	server  *health.Server
	timeout time.Duration

	mu      sync.Mutex
	serving bool
}

func NewHealthReporter(db Pinger) *HealthReporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{db: db, server: srv, timeout: 5 * time.Second}
}

// Check pings the database and publishes the result. It returns the ping
// error so callers can log or surface it.
func (h *HealthReporter) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.db.Ping(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.mu.Lock()
	changed := h.serving != (err == nil)
	h.serving = err == nil
	h.mu.Unlock()

	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	if changed {
		if err != nil {
			logger.Error("Database health check failed", "error", err)
		} else {
			logger.Info("Database health check recovered")
		}
	}
	return err
}

// Shutdown marks every service NOT_SERVING so watchers drain before stop.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}

// NewServer builds the gRPC server with health and reflection registered.
func NewServer(reporter *HealthReporter, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(LoggingInterceptor()))
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, reporter.server)
	reflection.Register(s)
	return s
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("gRPC request failed", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		} else {
			logger.Debug("gRPC request", "method", info.FullMethod, "duration_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
