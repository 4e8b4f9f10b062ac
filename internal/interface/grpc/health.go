// Package grpcadapter は運用向けの gRPC サーバ（grpc.health.v1 と reflection）。
package grpcadapter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName は Todo API として報告するサービス名。"" は全体。
const ServiceName = "todo.TodoAPI"

// CheckFunc はストアの疎通確認。usecase.Ping を渡す想定。
type CheckFunc func(ctx context.Context) error

// HealthReporter は定期的に check を呼び、結果を health.Server に反映する。
type HealthReporter struct {
	server   *health.Server
	check    CheckFunc
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	last healthpb.HealthCheckResponse_ServingStatus
}

func NewHealthReporter(server *health.Server, check CheckFunc, interval time.Duration, logger *zap.Logger) *HealthReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthReporter{
		server:   server,
		check:    check,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
		last:     healthpb.HealthCheckResponse_UNKNOWN,
	}
}

// Probe は 1 回だけ check して状態を更新する。
func (r *HealthReporter) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := r.check(ctx); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		if r.last != st {
			r.logger.Warn("store health check failed", zap.Error(err))
		}
	} else if r.last == healthpb.HealthCheckResponse_NOT_SERVING {
		r.logger.Info("store health recovered")
	}

	r.last = st
	r.server.SetServingStatus("", st)
	r.server.SetServingStatus(ServiceName, st)
	return st
}

// Run は ctx が終わるまで interval ごとに Probe する。終了時は NOT_SERVING にする。
func (r *HealthReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			r.server.Shutdown()
			return
		case <-ticker.C:
			r.Probe(ctx)
		}
	}
}
