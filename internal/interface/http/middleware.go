package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hijjiri/todo-api/internal/auth"
	"github.com/hijjiri/todo-api/internal/telemetry"
)

const headerRequestID = "X-Request-ID"

type Middleware func(http.Handler) http.Handler

// chain は先頭が一番外側になるように包む。
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// statusRecorder は WriteHeader を捕まえてステータスを覚える。
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// NewRequestIDMiddleware はクライアントの X-Request-ID を引き継ぎ、無ければ採番する。
func NewRequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(headerRequestID))
			if rid == "" || len(rid) > 128 {
				rid = uuid.NewString()
			}
			w.Header().Set(headerRequestID, rid)

			ctx, _ := withRouteHolder(WithRequestID(r.Context(), rid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewTracingMiddleware はリクエストごとにサーバ span を張る。span 名はルートパターン。
func NewTracingMiddleware() Middleware {
	tracer := otel.Tracer("github.com/hijjiri/todo-api/internal/interface/http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()

			if rid, ok := RequestIDFromContext(ctx); ok {
				span.SetAttributes(attribute.String("request.id", rid))
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			if h, ok := routeHolderFromContext(ctx); ok && h.pattern != "" {
				span.SetName(h.pattern)
				span.SetAttributes(attribute.String("http.route", h.pattern))
			}
			span.SetAttributes(attribute.Int("http.response.status_code", rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

// NewLoggingMiddleware logs requests with method, route, status, duration and request_id.
// metrics が nil でなければ同じ値を Prometheus にも記録する。
func NewLoggingMiddleware(logger *zap.Logger, metrics *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, holder := withRouteHolder(r.Context())
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			if metrics != nil {
				metrics.Observe(r.Method, holder.pattern, rec.status, duration)
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", holder.pattern),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration),
			}
			if rid, ok := RequestIDFromContext(ctx); ok {
				fields = append(fields, zap.String("request_id", rid))
			}
			if sub, ok := auth.SubjectFromContext(ctx); ok {
				fields = append(fields, zap.String("user_id", sub))
			}

			if rec.status >= http.StatusInternalServerError {
				logger.Error("http request", fields...)
			} else {
				logger.Info("http request", fields...)
			}
		})
	}
}

// NewRecoveryMiddleware は handler の panic を 500 にする。
func NewRecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					logger.Error("panic recovered in http handler",
						zap.Any("panic", p),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.ByteString("stacktrace", debug.Stack()),
					)
					writeMessage(w, http.StatusInternalServerError, msgServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NewTimeoutMiddleware は各リクエストの ctx に deadline を付ける。
// - timeout <= 0 の場合は何もしない
// - 既に ctx に deadline がある場合は短い方を優先
func NewTimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if dl, ok := r.Context().Deadline(); ok && time.Until(dl) <= timeout {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAuthMiddleware は Bearer トークンを検証する。
func NewAuthMiddleware(logger *zap.Logger, authenticator *auth.Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			// "Bearer xxx" 形式ならプレフィックスを剥がす
			if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				raw = strings.TrimSpace(raw[len("bearer "):])
			}

			ctx, err := authenticator.Authenticate(r.Context(), raw)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) {
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
					writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
					return
				}
				logger.Error("authenticator error", zap.Error(err))
				writeMessage(w, http.StatusInternalServerError, msgServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewCORSMiddleware は allowOrigin 向けの CORS ヘッダを付ける。空なら何もしない。
func NewCORSMiddleware(allowOrigin string) Middleware {
	return func(next http.Handler) http.Handler {
		if allowOrigin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// recordRoute は ServeMux が決めたパターンを外側の middleware に伝える。
func recordRoute(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routeHolderFromContext(r.Context()); ok {
			h.pattern = r.Pattern
		}
		next(w, r)
	}
}
