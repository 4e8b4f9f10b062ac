package todo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxTaskLength は task の最大文字数（rune 単位）。
const MaxTaskLength = 255

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError は入力が形・長さ・型の制約を満たさないときのエラー。
// Fields は「フィールド名 → メッセージ列」。
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if msg := e.First(); msg != "" {
		return msg
	}
	return "validation failed"
}

// Add はフィールドにメッセージを追加する。
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// First はフィールド名順で最初のメッセージ。レスポンスの message に使う。
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if msgs := e.Fields[name]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return ""
}

// NewFieldError は 1 フィールドだけの ValidationError を作る。
func NewFieldError(field, msg string) *ValidationError {
	ve := &ValidationError{}
	ve.Add(field, msg)
	return ve
}

// ValidateNew は作成入力を検証する。
func ValidateNew(n NewTodo) error {
	return toValidationError(validate.Struct(n))
}

// ValidatePatch は部分更新入力を検証する。指定されたフィールドだけが対象。
func ValidatePatch(p Patch) error {
	return toValidationError(validate.Struct(p))
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// InvalidValidationError などはプログラムのバグ
		return fmt.Errorf("validate: %w", err)
	}

	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		ve.Add(field, messageFor(field, fe))
	}
	return ve
}

func messageFor(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "min":
		return fmt.Sprintf("The %s field must not be empty.", field)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
