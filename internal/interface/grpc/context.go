package grpcadapter

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// mdRequestID は HTTP 側の X-Request-ID と同じ値を流すメタデータキー。
const mdRequestID = "x-request-id"

// requestIDFromMetadata は incoming metadata から request id を取り出す。
func requestIDFromMetadata(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(mdRequestID)
	if len(values) == 0 {
		return "", false
	}
	rid := strings.TrimSpace(values[0])
	return rid, rid != ""
}
