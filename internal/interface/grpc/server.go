package grpcadapter

import (
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// NewServer は health と reflection を登録した gRPC サーバを返す。
// 戻り値の health.Server は HealthReporter に渡す。
func NewServer(logger *zap.Logger, requestTimeout time.Duration) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			NewRecoveryUnaryInterceptor(logger),
			NewLoggingUnaryInterceptor(logger),
			NewTimeoutUnaryInterceptor(logger, requestTimeout),
		),
		grpc.ChainStreamInterceptor(
			NewRecoveryStreamInterceptor(logger),
			NewLoggingStreamInterceptor(logger),
		),
	)

	healthSrv := health.NewServer()
	// 最初の Probe までは NOT_SERVING
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)

	return srv, healthSrv
}
