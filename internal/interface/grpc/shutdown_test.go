package grpcadapter

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestGracefulStop_OpenWatchStream(t *testing.T) {
	t.Parallel()

	srv, healthSrv := NewServer(zaptest.NewLogger(t), time.Second)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	stream, err := healthpb.NewHealthClient(conn).Watch(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	// 最初の状態を受け取れば stream は確立済み
	_, err = stream.Recv()
	require.NoError(t, err)

	// reporter 停止時と同じく NOT_SERVING にしても stream は閉じない
	healthSrv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	graceful := GracefulStop(ctx, srv)

	assert.False(t, graceful)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGracefulStop_Idle(t *testing.T) {
	t.Parallel()

	srv, _ := NewServer(zaptest.NewLogger(t), time.Second)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.True(t, GracefulStop(ctx, srv))
}
