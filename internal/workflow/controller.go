package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nimbuscloud/console-payments/internal/gateway"
	"github.com/nimbuscloud/console-payments/internal/lib/sl"
	"github.com/nimbuscloud/console-payments/internal/models"
)

// Gateway операции платёжного шлюза, которые использует контроллер.
type Gateway interface {
	StagePayment(ctx context.Context, cancelURL, redirectURL, usd string) (string, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string) error
	MakePayment(ctx context.Context, usd, ccv string) error
}

// RunSummary передаётся в onTerminal: исход плюс данные прогона,
// которых нет в Result (нормализованная сумма очищается при успехе,
// а истории платежей она нужна всегда).
type RunSummary struct {
	Result Result
	USD    string
	Type   models.PaymentType
}

// Controller управляет одним экземпляром workflow. События сериализуются
// мьютексом; сетевые вызовы выполняются вне мьютекса, их результат
// применяется обратно через reduce. Счётчик переходов gen отбрасывает
// ответ шлюза, если состояние успело измениться (отмена во время staging).
type Controller struct {
	mu      sync.Mutex
	state   State
	gen     uint64
	runUSD  string
	runType models.PaymentType

	token       string
	redirectURL string
	cancelURL   string

	gate       Gateway
	log        *slog.Logger
	onTerminal func(RunSummary)
}

// New создаёт контроллер в состоянии Idle.
//
// token — идентификатор workflow для callback-ов вендора; redirectURL и
// cancelURL уже содержат его. onTerminal вызывается один раз на каждый
// терминальный переход, вне мьютекса; допускается nil.
func New(gate Gateway, log *slog.Logger, token, redirectURL, cancelURL string, onTerminal func(RunSummary)) *Controller {
	return &Controller{
		state:       Idle{},
		token:       token,
		redirectURL: redirectURL,
		cancelURL:   cancelURL,
		gate:        gate,
		log:         log,
		onTerminal:  onTerminal,
	}
}

// Token возвращает идентификатор workflow.
func (c *Controller) Token() string { return c.token }

// State возвращает текущее состояние.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// apply выполняет переход; вызывается только под мьютексом.
func (c *Controller) apply(ev event) (State, error) {
	next, err := reduce(c.state, ev)
	if err != nil {
		return c.state, err
	}
	c.state = next
	c.gen++
	return next, nil
}

func (c *Controller) notifyTerminal(s State) {
	if c.onTerminal == nil {
		return
	}
	if t, ok := s.(Terminal); ok {
		c.mu.Lock()
		usd, typ := c.runUSD, c.runType
		c.mu.Unlock()
		c.onTerminal(RunSummary{Result: t.Result, USD: usd, Type: typ})
	}
}

// Submit валидирует черновик и запускает платёж: карта уходит сразу в
// charge-запрос, оплата через вендора — в stage-запрос. Повторный submit,
// пока запрос в полёте, возвращает ErrInFlight и НЕ порождает второго
// сетевого вызова.
func (c *Controller) Submit(ctx context.Context, draft models.PaymentDraft) (State, error) {
	c.mu.Lock()
	switch c.state.(type) {
	case Idle, Terminal:
	default:
		st := c.state
		c.mu.Unlock()
		return st, ErrInFlight
	}

	usd, fieldErrs := validateDraft(draft)
	c.runUSD, c.runType = usd, draft.Type
	if len(fieldErrs) > 0 {
		st, err := c.apply(eventRejected{errs: fieldErrs})
		c.mu.Unlock()
		if err != nil {
			return st, err
		}
		c.notifyTerminal(st)
		return st, nil
	}

	st, err := c.apply(eventSubmit{usd: usd, typ: draft.Type})
	if err != nil {
		c.mu.Unlock()
		return st, err
	}
	gen := c.gen
	c.mu.Unlock()

	if draft.Type == models.PaymentTypeCard {
		return c.finishCharge(ctx, usd, draft.CCV, gen)
	}
	return c.finishStage(ctx, usd, gen)
}

func (c *Controller) finishCharge(ctx context.Context, usd, ccv string, gen uint64) (State, error) {
	const op = "workflow.finishCharge"

	callErr := c.gate.MakePayment(ctx, usd, ccv)

	c.mu.Lock()
	if c.gen != gen {
		st := c.state
		c.mu.Unlock()
		return st, nil
	}
	var ev event
	switch {
	case callErr == nil:
		ev = eventExecuteOK{}
	default:
		c.log.Error("charge failed", slog.String("op", op), sl.Err(callErr))
		ev = eventExecuteFailed{reason: reasonOf(callErr), usd: usd}
	}
	st, _ := c.apply(ev)
	c.mu.Unlock()
	c.notifyTerminal(st)
	return st, nil
}

func (c *Controller) finishStage(ctx context.Context, usd string, gen uint64) (State, error) {
	const op = "workflow.finishStage"

	paymentID, callErr := c.gate.StagePayment(ctx, c.cancelURL, c.redirectURL, usd)

	c.mu.Lock()
	if c.gen != gen {
		// Пользователь отменил платёж, пока stage был в полёте.
		st := c.state
		c.mu.Unlock()
		return st, nil
	}
	var ev event
	switch {
	case callErr == nil:
		ev = eventStageOK{paymentID: paymentID}
	default:
		c.log.Error("stage failed", slog.String("op", op), sl.Err(callErr))
		ev = eventStageFailed{reason: reasonOf(callErr), usd: usd}
	}
	st, _ := c.apply(ev)
	c.mu.Unlock()
	c.notifyTerminal(st)
	return st, nil
}

// Authorize применяет callback авторизации вендора. Переводит workflow
// в ConfirmPending; execute отсюда не запускается никогда — только явное
// подтверждение пользователя может его вызвать.
func (c *Controller) Authorize(payerID string) (State, error) {
	c.mu.Lock()
	st, err := c.apply(eventAuthorized{payerID: payerID})
	c.mu.Unlock()
	return st, err
}

// Confirm выполняет execute-запрос после подтверждения пользователя.
// Неуспех execute терминален: возврат в ConfirmPending недопустим.
func (c *Controller) Confirm(ctx context.Context) (State, error) {
	const op = "workflow.Confirm"

	c.mu.Lock()
	st, err := c.apply(eventConfirm{})
	if err != nil {
		c.mu.Unlock()
		return st, err
	}
	ex := st.(Executing)
	gen := c.gen
	c.mu.Unlock()

	callErr := c.gate.ExecutePayment(ctx, ex.PaymentID, ex.PayerID)

	c.mu.Lock()
	if c.gen != gen {
		st = c.state
		c.mu.Unlock()
		return st, nil
	}
	var ev event
	var unknown *gateway.UnknownOutcomeError
	switch {
	case callErr == nil:
		ev = eventExecuteOK{}
	case errors.As(callErr, &unknown):
		c.log.Error("execute outcome unknown", slog.String("op", op), sl.Err(callErr))
		ev = eventExecuteUnknown{usd: ex.USD}
	default:
		c.log.Error("execute failed", slog.String("op", op), sl.Err(callErr))
		ev = eventExecuteFailed{reason: reasonOf(callErr), usd: ex.USD}
	}
	st, _ = c.apply(ev)
	c.mu.Unlock()
	c.notifyTerminal(st)
	return st, nil
}

// Cancel отменяет workflow: отказ в диалоге подтверждения и onCancel
// вендора обрабатываются одинаково. До Executing отмена гарантирует
// отсутствие списания; во время Executing возвращается ErrExecuteInFlight.
func (c *Controller) Cancel() (State, error) {
	c.mu.Lock()
	_, wasTerminal := c.state.(Terminal)
	st, err := c.apply(eventCancel{})
	c.mu.Unlock()
	if err != nil {
		return st, err
	}
	if !wasTerminal {
		c.notifyTerminal(st)
	}
	return st, nil
}

// reasonOf извлекает текст отказа шлюза; структурированный reason уходит
// пользователю дословно, всё остальное заменяется общим сообщением.
func reasonOf(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Reason()
	}
	return gateway.GenericReason
}

// Snapshot представление состояния для HTTP-ответа о статусе workflow.
type Snapshot struct {
	State       string  `json:"state"`
	USD         string  `json:"usd,omitempty"`
	PaymentType string  `json:"payment_type,omitempty"`
	Result      *Result `json:"result,omitempty"`
}

// SnapshotOf строит снимок произвольного состояния.
func SnapshotOf(s State) Snapshot {
	switch st := s.(type) {
	case Staging:
		return Snapshot{State: st.Name(), USD: st.USD, PaymentType: string(st.Type)}
	case AwaitingAuthorization:
		return Snapshot{State: st.Name(), USD: st.USD, PaymentType: string(st.Type)}
	case ConfirmPending:
		return Snapshot{State: st.Name(), USD: st.USD, PaymentType: string(st.Type)}
	case Executing:
		return Snapshot{State: st.Name(), USD: st.USD, PaymentType: string(st.Type)}
	case Terminal:
		result := st.Result
		return Snapshot{State: st.Name(), Result: &result}
	default:
		return Snapshot{State: s.Name()}
	}
}

// Snapshot возвращает снимок текущего состояния.
func (c *Controller) Snapshot() Snapshot {
	return SnapshotOf(c.State())
}
