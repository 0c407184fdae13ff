// Package grpc exposes the storefront readiness over the standard gRPC health protocol.
package grpc

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name health clients query for the storefront.
const ServiceName = "storefront.v1.Storefront"

// Health reports SERVING once the catalog is loaded and NOT_SERVING otherwise.
type Health struct {
	server *health.Server
	logger *slog.Logger
}

// NewHealth creates a Health that starts as NOT_SERVING.
func NewHealth(logger *slog.Logger) *Health {
	h := &Health{
		server: health.NewServer(),
		logger: logger.With("component", "grpc-health"),
	}
	h.SetReady(false)
	return h
}

// Register adds the health service to s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// SetReady updates the status of both the storefront service and the overall server.
func (h *Health) SetReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	h.logger.Info("Health status updated", "status", status.String())
}

// Shutdown sets every service to NOT_SERVING and ignores later updates.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}
