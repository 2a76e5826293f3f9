package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/medisupply-security/internal/logger"
)

// InterceptorLogger adapts the service logger to the go-grpc-middleware
// logging interceptors. Their levels share slog's numeric values.
func InterceptorLogger(l *logger.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

// RecoveryHandler logs a recovered panic and turns it into codes.Internal.
func RecoveryHandler(l *logger.Logger) recovery.RecoveryHandlerFuncContext {
	return func(ctx context.Context, p any) error {
		l.ErrorContext(ctx, "gRPC handler panicked",
			"panic", fmt.Sprint(p))
		return status.Error(codes.Internal, "internal server error")
	}
}
