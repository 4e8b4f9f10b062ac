package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	todo_usecase "github.com/hijjiri/todo-api/internal/usecase/todo"
)

// TodoHandler は /todos の 5 操作を usecase に振り分ける。状態は持たない。
type TodoHandler struct {
	uc     todo_usecase.Usecase
	logger *zap.Logger
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{uc: uc, logger: logger}
}

// --- List --- GET /todos
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	list, err := h.uc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponses(list))
}

// --- Create --- POST /todos
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	in, err := decodeTodoInput(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.uc.Create(r.Context(), in.toNewTodo())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTodoResponse(t))
}

// --- Get --- GET /todos/{id}
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}

	t, err := h.uc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponse(t))
}

// --- Update --- PUT/PATCH /todos/{id}
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}

	in, err := decodeTodoInput(w, r)
	if err != nil {
		// 型違いでも、存在しない ID なら 404 を優先する
		var ve *domain_todo.ValidationError
		if errors.As(err, &ve) {
			if _, getErr := h.uc.Get(r.Context(), id); getErr != nil {
				h.writeError(w, r, getErr)
				return
			}
		}
		h.writeError(w, r, err)
		return
	}

	t, err := h.uc.Update(r.Context(), id, in.toPatch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoResponse(t))
}

// --- Delete --- DELETE /todos/{id}
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}

	if err := h.uc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, msgDeleted)
}

// Health は GET /healthz。ストアに ping できなければ 503。
func (h *TodoHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// --- error mapper ---
func (h *TodoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve     *domain_todo.ValidationError
		maxErr *http.MaxBytesError
	)

	switch {
	case errors.Is(err, domain_todo.ErrNotFound):
		writeMessage(w, http.StatusNotFound, msgNotFound)

	case errors.As(err, &ve):
		writeValidationError(w, ve)

	case errors.Is(err, errMalformedBody):
		writeMessage(w, http.StatusBadRequest, msgMalformedJSON)

	case errors.As(err, &maxErr):
		writeMessage(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.logger.Warn("request aborted",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeMessage(w, http.StatusServiceUnavailable, msgRequestTimeout)

	default:
		// Internal 詳細はログ側にだけ残す
		rid, _ := RequestIDFromContext(r.Context())
		h.logger.Error("todo request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", rid),
			zap.Error(err),
		)
		writeMessage(w, http.StatusInternalServerError, msgServerError)
	}
}
