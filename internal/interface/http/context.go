package httpadapter

import "context"

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request-id"
	ctxKeyRoute     ctxKey = "route"
)

// ----- request_id -----

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, rid)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyRequestID).(string)
	return s, ok
}

// ----- route -----

// routeHolder は外側の middleware が、内側で決まったルートパターンを受け取るための箱。
// ServeMux は r.WithContext で複製されたリクエストに Pattern を入れるので、外からは見えない。
type routeHolder struct {
	pattern string
}

func withRouteHolder(ctx context.Context) (context.Context, *routeHolder) {
	if h, ok := ctx.Value(ctxKeyRoute).(*routeHolder); ok {
		return ctx, h
	}
	h := &routeHolder{}
	return context.WithValue(ctx, ctxKeyRoute, h), h
}

func routeHolderFromContext(ctx context.Context) (*routeHolder, bool) {
	h, ok := ctx.Value(ctxKeyRoute).(*routeHolder)
	return h, ok
}
