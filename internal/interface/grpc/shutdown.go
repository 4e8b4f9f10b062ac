package grpcadapter

import (
	"context"

	"google.golang.org/grpc"
)

// GracefulStop は ctx が切れるまで GracefulStop を待ち、間に合わなければ Stop で打ち切る。
// Health/Watch の stream は自分からは終わらないので、待つだけだと止まらない。
// 打ち切った場合は false。
func GracefulStop(ctx context.Context, srv *grpc.Server) bool {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		srv.Stop()
		<-done
		return false
	}
}
