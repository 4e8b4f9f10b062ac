package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

const maxBodyBytes = 1 << 20

// todoInput は POST / PUT の body。title は task の別名として受け付ける（task 優先）。
// null は未指定と同じ扱い。
type todoInput struct {
	Task      *string `json:"task"`
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

func (in todoInput) task() *string {
	if in.Task != nil {
		return in.Task
	}
	return in.Title
}

func (in todoInput) toNewTodo() domain_todo.NewTodo {
	return domain_todo.NewTodo{Task: in.task(), Completed: in.Completed}
}

func (in todoInput) toPatch() domain_todo.Patch {
	return domain_todo.Patch{Task: in.task(), Completed: in.Completed}
}

// errMalformedBody は 400 にする JSON 構文エラー。
var errMalformedBody = errors.New("malformed json body")

// decodeTodoInput は body を読む。空 body は {} と同じ。
// 型違い（completed に文字列など）は ValidationError にする。
func decodeTodoInput(w http.ResponseWriter, r *http.Request) (todoInput, error) {
	var in todoInput

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(&in)
	if err == nil {
		// 後ろにゴミが続いていないか
		_, err := dec.Token()
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
		case errors.As(err, &maxErr):
			return todoInput{}, err
		default:
			return todoInput{}, errMalformedBody
		}
		return in, nil
	}

	var (
		typeErr *json.UnmarshalTypeError
		maxErr  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return todoInput{}, nil
	case errors.As(err, &maxErr):
		return todoInput{}, err
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return todoInput{}, typeMismatch(typeErr.Field)
	default:
		return todoInput{}, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
}

func typeMismatch(field string) *domain_todo.ValidationError {
	switch field {
	case "completed":
		return domain_todo.NewFieldError("completed", "The completed field must be true or false.")
	case "title":
		return domain_todo.NewFieldError("task", "The task field must be a string.")
	default:
		return domain_todo.NewFieldError(field, fmt.Sprintf("The %s field must be a string.", field))
	}
}

// parseID はパスの {id}。正の整数でなければ false（呼び出し側で 404）。
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || !domain_todo.ValidID(id) {
		return 0, false
	}
	return id, true
}
