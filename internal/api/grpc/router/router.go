package router

import (
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/medisupply-security/internal/api/grpc/handler"
	"github.com/dtroode/medisupply-security/internal/api/grpc/middleware"
	"github.com/dtroode/medisupply-security/internal/logger"
)

// Router represents the gRPC ops router. It exposes the standard health
// service for orchestrators and load balancers.
type Router struct {
	checker handler.HealthChecker
	logger  *logger.Logger
}

// New creates new gRPC Router instance.
func New(checker handler.HealthChecker, logger *logger.Logger) *Router {
	return &Router{checker: checker, logger: logger}
}

// Register registers the health service behind logging and recovery
// interceptors.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logOpts := []logging.Option{logging.WithLogOnEvents(logging.FinishCall)}
	recoveryOpts := []recovery.Option{recovery.WithRecoveryHandlerContext(middleware.RecoveryHandler(r.logger))}
	interceptorLogger := middleware.InterceptorLogger(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.UnaryServerInterceptor(interceptorLogger, logOpts...),
			recovery.UnaryServerInterceptor(recoveryOpts...),
		),
		grpc.ChainStreamInterceptor(
			logging.StreamServerInterceptor(interceptorLogger, logOpts...),
			recovery.StreamServerInterceptor(recoveryOpts...),
		),
	)
	healthpb.RegisterHealthServer(s, handler.NewHealth(r.checker, r.logger))

	return s
}
