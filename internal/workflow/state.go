// Package workflow реализует конечный автомат платежа консоли.
//
// Состояние платежа выражено размеченным объединением (State), переходы —
// чистой функцией reduce. Контроллер сериализует события одного экземпляра
// workflow и гарантирует не более одного stage- и одного execute-запроса
// в полёте: повторный submit во время Staging/Executing отклоняется,
// execute никогда не отправляется раньше, чем получен callback авторизации
// И пользователь явно подтвердил платёж.
package workflow

import (
	"github.com/nimbuscloud/console-payments/internal/models"
)

// State состояние workflow. Реализации — значения, а не указатели,
// чтобы снимок состояния нельзя было изменить снаружи.
type State interface {
	Name() string
	isState()
}

// Idle платёж ещё не отправлялся.
type Idle struct{}

// Staging stage-запрос к шлюзу в полёте.
type Staging struct {
	USD  string
	Type models.PaymentType
}

// AwaitingAuthorization шлюз выдал payment_id, ждём callback вендора.
type AwaitingAuthorization struct {
	USD       string
	Type      models.PaymentType
	PaymentID string
}

// ConfirmPending авторизация получена, ждём явного подтверждения
// пользователя. Автоматический execute из этого состояния недопустим.
type ConfirmPending struct {
	USD       string
	Type      models.PaymentType
	PaymentID string
	PayerID   string
}

// Executing execute- или charge-запрос к шлюзу в полёте.
type Executing struct {
	USD       string
	Type      models.PaymentType
	PaymentID string
	PayerID   string
}

// Terminal workflow завершён; Result описывает исход.
type Terminal struct {
	Result Result
}

func (Idle) Name() string                  { return "idle" }
func (Staging) Name() string               { return "staging" }
func (AwaitingAuthorization) Name() string { return "awaiting_authorization" }
func (ConfirmPending) Name() string        { return "confirm_pending" }
func (Executing) Name() string             { return "executing" }
func (Terminal) Name() string              { return "terminal" }

func (Idle) isState()                  {}
func (Staging) isState()               {}
func (AwaitingAuthorization) isState() {}
func (ConfirmPending) isState()        {}
func (Executing) isState()             {}
func (Terminal) isState()              {}

// Outcome исход завершённого workflow.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnknown   Outcome = "unknown"
)

// FieldError ошибка валидации, адресуемая к полю формы.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result исход workflow. USD заполняется при неуспехе, чтобы пользователь
// мог повторить платёж с той же суммой; при успехе сумма очищается.
type Result struct {
	Outcome Outcome      `json:"outcome"`
	Message string       `json:"message,omitempty"`
	USD     string       `json:"usd,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// Тексты терминальных сообщений.
const (
	MsgSuccess   = "payment submitted successfully"
	MsgCancelled = "payment cancelled"
	MsgUnknown   = "payment outcome unknown, check your billing history before retrying"
)
