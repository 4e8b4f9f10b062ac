package grpcadapter

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func checkStatus(t *testing.T, srv *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()

	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthReporter_Probe(t *testing.T) {
	t.Parallel()

	srv := health.NewServer()
	var storeErr error
	r := NewHealthReporter(srv, func(context.Context) error { return storeErr }, time.Second, zaptest.NewLogger(t))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, r.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, srv, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, srv, ServiceName))

	storeErr = errors.New("connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, r.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, srv, ServiceName))

	storeErr = nil
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, r.Probe(context.Background()))
}

func TestHealthReporter_Run(t *testing.T) {
	t.Parallel()

	srv := health.NewServer()
	r := NewHealthReporter(srv, func(context.Context) error { return nil }, 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Run 開始前は ServiceName が未登録で NotFound になるので、エラーは false 扱い
	assert.Eventually(t, func() bool {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, srv, ServiceName))
}

func TestServer_HealthOverBufconn(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	srv, healthSrv := NewServer(zap.New(core), time.Second)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	ctx := metadata.AppendToOutgoingContext(context.Background(), mdRequestID, "rid-1")

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	NewHealthReporter(healthSrv, func(context.Context) error { return nil }, time.Second, nil).Probe(context.Background())

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	entries := logs.FilterMessage("gRPC unary request").All()
	require.NotEmpty(t, entries)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/grpc.health.v1.Health/Check", fields["method"])
	assert.Equal(t, "rid-1", fields["request_id"])
}

func TestRecoveryUnaryInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := NewRecoveryUnaryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Panic"}

	resp, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		panic("boom")
	})
	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestTimeoutUnaryInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := NewTimeoutUnaryInterceptor(zaptest.NewLogger(t), 20*time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Slow"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))

	resp, err := interceptor(context.Background(), nil, info, func(ctx context.Context, _ any) (any, error) {
		_, ok := ctx.Deadline()
		return ok, nil
	})
	require.NoError(t, err)
	assert.Equal(t, true, resp)
}
