package workflow

import (
	"errors"
	"fmt"

	"github.com/nimbuscloud/console-payments/internal/models"
)

// Ошибки переходов конечного автомата.
var (
	// ErrInFlight повторный submit, пока предыдущий запрос в полёте.
	ErrInFlight = errors.New("payment request already in flight")
	// ErrExecuteInFlight отмена запрошена, когда execute уже отправлен:
	// результат не гарантирован, исход определит ответ шлюза.
	ErrExecuteInFlight = errors.New("execute already in flight, outcome unknown")
	// ErrInvalidTransition событие недопустимо в текущем состоянии.
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

type event interface{ isEvent() }

// eventSubmit сумма уже провалидирована и нормализована.
type eventSubmit struct {
	usd string
	typ models.PaymentType
}

type eventRejected struct{ errs []FieldError }
type eventStageOK struct{ paymentID string }
type eventStageFailed struct {
	reason string
	usd    string
}
type eventAuthorized struct{ payerID string }
type eventConfirm struct{}
type eventCancel struct{}
type eventExecuteOK struct{}
type eventExecuteFailed struct {
	reason string
	usd    string
}
type eventExecuteUnknown struct{ usd string }

func (eventSubmit) isEvent()         {}
func (eventRejected) isEvent()       {}
func (eventStageOK) isEvent()        {}
func (eventStageFailed) isEvent()    {}
func (eventAuthorized) isEvent()     {}
func (eventConfirm) isEvent()        {}
func (eventCancel) isEvent()         {}
func (eventExecuteOK) isEvent()      {}
func (eventExecuteFailed) isEvent()  {}
func (eventExecuteUnknown) isEvent() {}

// reduce чистая функция переходов. Все допустимые переходы перечислены
// явно; любое другое сочетание — ErrInvalidTransition.
func reduce(s State, ev event) (State, error) {
	switch ev := ev.(type) {
	case eventSubmit:
		switch s.(type) {
		case Idle, Terminal:
			if ev.typ == models.PaymentTypeCard {
				return Executing{USD: ev.usd, Type: ev.typ}, nil
			}
			return Staging{USD: ev.usd, Type: ev.typ}, nil
		case Staging, Executing:
			return s, ErrInFlight
		default:
			return s, ErrInFlight
		}

	case eventRejected:
		switch s.(type) {
		case Idle, Terminal:
			return Terminal{Result: Result{Outcome: OutcomeFailed, Errors: ev.errs}}, nil
		default:
			return s, ErrInvalidTransition
		}

	case eventStageOK:
		if st, ok := s.(Staging); ok {
			return AwaitingAuthorization{USD: st.USD, Type: st.Type, PaymentID: ev.paymentID}, nil
		}
		return s, ErrInvalidTransition

	case eventStageFailed:
		if _, ok := s.(Staging); ok {
			return Terminal{Result: Result{Outcome: OutcomeFailed, Message: ev.reason, USD: ev.usd}}, nil
		}
		return s, ErrInvalidTransition

	case eventAuthorized:
		if st, ok := s.(AwaitingAuthorization); ok {
			return ConfirmPending{USD: st.USD, Type: st.Type, PaymentID: st.PaymentID, PayerID: ev.payerID}, nil
		}
		return s, ErrInvalidTransition

	case eventConfirm:
		if st, ok := s.(ConfirmPending); ok {
			return Executing{USD: st.USD, Type: st.Type, PaymentID: st.PaymentID, PayerID: st.PayerID}, nil
		}
		return s, ErrInvalidTransition

	case eventCancel:
		switch s.(type) {
		case Executing:
			// Запрос уже в полёте, отмена не гарантирована.
			return s, ErrExecuteInFlight
		case Terminal:
			return s, nil
		default:
			return Terminal{Result: Result{Outcome: OutcomeCancelled, Message: MsgCancelled}}, nil
		}

	case eventExecuteOK:
		if _, ok := s.(Executing); ok {
			return Terminal{Result: Result{Outcome: OutcomeSuccess, Message: MsgSuccess}}, nil
		}
		return s, ErrInvalidTransition

	case eventExecuteFailed:
		// Возврат в ConfirmPending недопустим: повтор только новым
		// submit из Idle.
		if _, ok := s.(Executing); ok {
			return Terminal{Result: Result{Outcome: OutcomeFailed, Message: ev.reason, USD: ev.usd}}, nil
		}
		return s, ErrInvalidTransition

	case eventExecuteUnknown:
		if _, ok := s.(Executing); ok {
			return Terminal{Result: Result{Outcome: OutcomeUnknown, Message: MsgUnknown, USD: ev.usd}}, nil
		}
		return s, ErrInvalidTransition

	default:
		return s, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}
