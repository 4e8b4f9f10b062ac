package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func rpcFields(ctx context.Context, method string, duration time.Duration, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("code", status.Code(err).String()),
		zap.Duration("duration", duration),
	}
	if rid, ok := requestIDFromMetadata(ctx); ok {
		fields = append(fields, zap.String("request_id", rid))
	}
	return fields
}

// NewLoggingUnaryInterceptor logs unary RPCs with method, code, duration and request_id(あれば).
func NewLoggingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := rpcFields(ctx, info.FullMethod, time.Since(start), err)
		if err != nil {
			logger.Error("gRPC unary request", append(fields, zap.Error(err))...)
		} else {
			// ヘルスチェックは頻繁なので Debug
			logger.Debug("gRPC unary request", fields...)
		}
		return resp, err
	}
}

// NewLoggingStreamInterceptor は Watch などの stream RPC を記録する。
func NewLoggingStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)

		fields := rpcFields(ss.Context(), info.FullMethod, time.Since(start), err)
		if err != nil {
			logger.Error("gRPC stream request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("gRPC stream request", fields...)
		}
		return err
	}
}
