package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

// 固定メッセージ
const (
	msgNotFound       = "Todo not found"
	msgDeleted        = "Todo deleted"
	msgServerError    = "Server Error"
	msgMalformedJSON  = "Malformed JSON body"
	msgBodyTooLarge   = "Request body too large"
	msgRequestTimeout = "Request timeout"
	msgUnauthorized   = "Unauthenticated."
)

type todoResponse struct {
	ID        int64     `json:"id"`
	Task      string    `json:"task"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// --- converter (domain -> response) ---
func toTodoResponse(t *domain_todo.Todo) todoResponse {
	return todoResponse{
		ID:        t.ID,
		Task:      t.Task,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt.UTC(),
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func toTodoResponses(list []*domain_todo.Todo) []todoResponse {
	out := make([]todoResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTodoResponse(t))
	}
	return out
}

// writeJSON は JSON レスポンスを書く。ヘッダ送信後のエンコード失敗はどうにもできないので捨てる。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeValidationError(w http.ResponseWriter, ve *domain_todo.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
		Message: ve.Error(),
		Errors:  ve.Fields,
	})
}
