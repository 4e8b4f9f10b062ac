// Package httpadapter は Todo の REST API（net/http）。
package httpadapter

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hijjiri/todo-api/internal/auth"
	"github.com/hijjiri/todo-api/internal/telemetry"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"
)

// Options は NewRouter の依存。nil のものは無効になる。
type Options struct {
	Logger          *zap.Logger
	Metrics         *telemetry.Metrics
	Authenticator   *auth.Authenticator
	RequestTimeout  time.Duration
	CORSAllowOrigin string
}

// NewRouter はルーティングと middleware を組み立てた http.Handler を返す。
func NewRouter(uc todo_usecase.Usecase, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := NewTodoHandler(uc, logger)

	// 認証は /todos 配下だけ。/healthz は常に素通し。
	protect := func(hf http.HandlerFunc) http.HandlerFunc {
		if opts.Authenticator == nil {
			return hf
		}
		return NewAuthMiddleware(logger, opts.Authenticator)(hf).ServeHTTP
	}

	mux := http.NewServeMux()
	handle := func(pattern string, hf http.HandlerFunc) {
		mux.HandleFunc(pattern, recordRoute(hf))
	}

	handle("GET /todos", protect(h.ListTodos))
	handle("POST /todos", protect(h.CreateTodo))
	handle("GET /todos/{id}", protect(h.GetTodo))
	handle("PUT /todos/{id}", protect(h.UpdateTodo))
	handle("PATCH /todos/{id}", protect(h.UpdateTodo))
	handle("DELETE /todos/{id}", protect(h.DeleteTodo))
	handle("GET /healthz", h.Health)

	return chain(jsonFallback(mux),
		NewRequestIDMiddleware(),
		NewTracingMiddleware(),
		NewLoggingMiddleware(logger, opts.Metrics),
		NewRecoveryMiddleware(logger),
		NewCORSMiddleware(opts.CORSAllowOrigin),
		NewTimeoutMiddleware(opts.RequestTimeout),
	)
}

// NewServer は読み書きのタイムアウトを付けた http.Server。
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
}

// jsonFallback は ServeMux 自身の 404 / 405 を他のエラーと同じ JSON {message} で返す。
func jsonFallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := mux.Handler(r)
		if pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}

		// status と Allow だけ拾い、text/plain の本文は捨てる
		cw := &captureWriter{header: http.Header{}, status: http.StatusOK}
		h.ServeHTTP(cw, r)
		if allow := cw.header.Get("Allow"); allow != "" {
			w.Header().Set("Allow", allow)
		}
		writeMessage(w, cw.status, http.StatusText(cw.status))
	})
}

type captureWriter struct {
	header http.Header
	status int
}

func (c *captureWriter) Header() http.Header         { return c.header }
func (c *captureWriter) Write(b []byte) (int, error) { return len(b), nil }
func (c *captureWriter) WriteHeader(code int)        { c.status = code }
