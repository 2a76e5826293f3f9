package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/service"
)

// HealthChecker reports dependency status.
type HealthChecker interface {
	Check(ctx context.Context) service.HealthReport
}

// Health implements grpc.health.v1.Health on top of the service health checker.
// The empty service name reports the overall status; any other name reports
// a single dependency.
type Health struct {
	healthpb.UnimplementedHealthServer
	checker HealthChecker
	logger  *logger.Logger
}

// NewHealth creates a new Health handler.
func NewHealth(checker HealthChecker, logger *logger.Logger) *Health {
	return &Health{checker: checker, logger: logger}
}

// Check reports SERVING or NOT_SERVING for the requested service.
func (h *Health) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	report := h.checker.Check(ctx)

	name := req.GetService()
	if name == "" {
		if report.Healthy() {
			return serving(), nil
		}
		h.logger.Debug("Health handler: reporting not serving",
			"status", report.Status)
		return notServing(), nil
	}

	state, ok := report.Services[name]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}
	if state == "down" {
		return notServing(), nil
	}
	return serving(), nil
}

func serving() *healthpb.HealthCheckResponse {
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
}

func notServing() *healthpb.HealthCheckResponse {
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
}
