package gateway

import (
	"fmt"
	"strings"
)

// GenericReason текст, который подставляется, когда шлюз вернул ошибку
// без структурированного конверта.
const GenericReason = "payment could not be processed, please try again later"

// APIError структурированная ошибка шлюза. Reason каждой записи
// передаётся пользователю дословно.
type APIError struct {
	StatusCode int
	Errors     []FieldError
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, GenericReason)
	}
	reasons := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		reasons = append(reasons, fe.Reason)
	}
	return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, strings.Join(reasons, "; "))
}

// Reason возвращает первую причину из конверта либо общий текст.
func (e *APIError) Reason() string {
	if len(e.Errors) == 0 {
		return GenericReason
	}
	return e.Errors[0].Reason
}

// UnknownOutcomeError означает, что execute-запрос был отправлен, но его
// результат не определён: списание могло как пройти, так и нет.
type UnknownOutcomeError struct {
	Err error
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("gateway: execute outcome unknown: %v", e.Err)
}

func (e *UnknownOutcomeError) Unwrap() error { return e.Err }
