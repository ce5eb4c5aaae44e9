package grpcapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLogger logs one line per call and converts handler panics to Internal.
func UnaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("grpc panic recovered", zap.String("method", info.FullMethod), zap.Any("panic", rec))
				err = status.Error(codes.Internal, "internal error")
			}
			code := status.Code(err)
			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("duration", time.Since(start)),
			}
			if code == codes.Internal || code == codes.Unavailable {
				log.Warn("grpc request", fields...)
				return
			}
			log.Debug("grpc request", fields...)
		}()
		return handler(ctx, req)
	}
}
