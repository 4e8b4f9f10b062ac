package grpcadapter

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func recoverToStatus(logger *zap.Logger, method string, p any) error {
	logger.Error("panic recovered in gRPC handler",
		zap.Any("panic", p),
		zap.String("method", method),
		zap.ByteString("stacktrace", debug.Stack()),
	)
	return status.Error(codes.Internal, "Server Error")
}

// Unary 用 Recovery interceptor
func NewRecoveryUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				resp, err = nil, recoverToStatus(logger, info.FullMethod, p)
			}
		}()
		return handler(ctx, req)
	}
}

// Streaming 用 Recovery interceptor
func NewRecoveryStreamInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = recoverToStatus(logger, info.FullMethod, p)
			}
		}()
		return handler(srv, ss)
	}
}
