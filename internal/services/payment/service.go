// Package payment содержит бизнес-логику платежей: реестр workflow по
// пользователям, приём callback-ов вендора и историю платежей с кэшем.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbuscloud/console-payments/internal/checkout"
	"github.com/nimbuscloud/console-payments/internal/lib/sl"
	"github.com/nimbuscloud/console-payments/internal/metrics"
	"github.com/nimbuscloud/console-payments/internal/models"
	"github.com/nimbuscloud/console-payments/internal/workflow"
)

// ErrWorkflowNotFound возвращается, когда у пользователя нет активного
// workflow или токен callback-а никому не принадлежит.
var ErrWorkflowNotFound = errors.New("payment workflow not found")

const paymentsCacheTTL = 5 * time.Minute

// HistoryRepository описывает контракт для работы с историей платежей в базе данных.
type HistoryRepository interface {
	// SavePaymentRecord сохраняет запись о завершённом платеже.
	SavePaymentRecord(ctx context.Context, record models.PaymentRecord) error

	// ListPaymentsByUserUID возвращает платежи пользователя, новые первыми.
	ListPaymentsByUserUID(ctx context.Context, userUID string) ([]*models.PaymentRecord, error)
}

// Cache интерфейс кэша истории платежей.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// ReceiptPublisher публикует квитанции об успешных платежах.
type ReceiptPublisher interface {
	PublishReceipt(receipt Receipt) error
}

// Receipt событие об успешном платеже для брокера сообщений.
type Receipt struct {
	PaymentID string    `json:"payment_id"`
	UserUID   string    `json:"user_uid"`
	Type      string    `json:"type"`
	USD       string    `json:"usd"`
	PaidAt    time.Time `json:"paid_at"`
}

// Service управляет платёжными workflow пользователей. На пользователя
// одновременно существует не более одного активного workflow; новый
// запускается только когда предыдущего нет или он терминален.
type Service struct {
	mu      sync.Mutex
	byUser  map[string]*workflow.Controller
	byToken map[string]*workflow.Controller

	gate           workflow.Gateway
	repo           HistoryRepository
	cache          Cache
	publisher      ReceiptPublisher
	log            *slog.Logger
	consoleBaseURL string
}

// New создает новый экземпляр Service. publisher допускается nil —
// тогда квитанции не публикуются.
func New(gate workflow.Gateway, repo HistoryRepository, cache Cache,
	publisher ReceiptPublisher, log *slog.Logger, consoleBaseURL string) *Service {
	return &Service{
		byUser:         make(map[string]*workflow.Controller),
		byToken:        make(map[string]*workflow.Controller),
		gate:           gate,
		repo:           repo,
		cache:          cache,
		publisher:      publisher,
		log:            log,
		consoleBaseURL: consoleBaseURL,
	}
}

// Submit запускает платёж для пользователя. Если активный workflow ещё
// не завершён, submit уходит в него и возвращает workflow.ErrInFlight.
func (s *Service) Submit(ctx context.Context, userUID string, draft models.PaymentDraft) (workflow.Snapshot, error) {
	ctrl := s.controllerForRun(userUID)
	st, err := ctrl.Submit(ctx, draft)
	return workflow.SnapshotOf(st), err
}

// controllerForRun возвращает контроллер для нового запуска: существующий,
// если он ещё активен, иначе свежий с новым токеном.
func (s *Service) controllerForRun(userUID string) *workflow.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ctrl, ok := s.byUser[userUID]; ok {
		// Заменяется только завершённый контроллер. Idle-контроллер — это
		// параллельный submit, ещё не дошедший до своего мьютекса: оба
		// вызова обязаны попасть в один контроллер, иначе каждый выполнит
		// собственный запрос к шлюзу и пользователя спишут дважды.
		if _, done := ctrl.State().(workflow.Terminal); !done {
			return ctrl
		}
		delete(s.byToken, ctrl.Token())
	}

	token := uuid.NewString()
	redirectURL, cancelURL := checkout.ReturnURLs(s.consoleBaseURL, token)
	ctrl := workflow.New(s.gate, s.log, token, redirectURL, cancelURL, s.onTerminal(userUID))
	s.byUser[userUID] = ctrl
	s.byToken[token] = ctrl
	metrics.WorkflowsInFlight.Inc()
	return ctrl
}

// Status возвращает снимок текущего workflow пользователя.
func (s *Service) Status(userUID string) workflow.Snapshot {
	s.mu.Lock()
	ctrl := s.byUser[userUID]
	s.mu.Unlock()
	if ctrl == nil {
		return workflow.SnapshotOf(workflow.Idle{})
	}
	return ctrl.Snapshot()
}

// Confirm подтверждает платёж: только отсюда запускается execute-запрос.
func (s *Service) Confirm(ctx context.Context, userUID string) (workflow.Snapshot, error) {
	ctrl := s.active(userUID)
	if ctrl == nil {
		return workflow.SnapshotOf(workflow.Idle{}), ErrWorkflowNotFound
	}
	st, err := ctrl.Confirm(ctx)
	return workflow.SnapshotOf(st), err
}

// Cancel отменяет активный workflow пользователя.
func (s *Service) Cancel(userUID string) (workflow.Snapshot, error) {
	ctrl := s.active(userUID)
	if ctrl == nil {
		return workflow.SnapshotOf(workflow.Idle{}), ErrWorkflowNotFound
	}
	st, err := ctrl.Cancel()
	return workflow.SnapshotOf(st), err
}

// Authorized вендор сообщил об авторизации плательщика. Реализует checkout.Gate.
func (s *Service) Authorized(_ context.Context, token, payerID string) error {
	ctrl := s.byCallbackToken(token)
	if ctrl == nil {
		return ErrWorkflowNotFound
	}
	_, err := ctrl.Authorize(payerID)
	return err
}

// Cancelled пользователь покинул оплату на сайте вендора. Реализует checkout.Gate.
func (s *Service) Cancelled(_ context.Context, token string) error {
	ctrl := s.byCallbackToken(token)
	if ctrl == nil {
		return ErrWorkflowNotFound
	}
	_, err := ctrl.Cancel()
	return err
}

func (s *Service) active(userUID string) *workflow.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byUser[userUID]
}

func (s *Service) byCallbackToken(token string) *workflow.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byToken[token]
}

// ListPayments возвращает историю платежей пользователя с кэшированием.
func (s *Service) ListPayments(ctx context.Context, userUID string) ([]*models.PaymentRecord, error) {
	const op = "payment.ListPayments"

	key := paymentsCacheKey(userUID)
	var cached []*models.PaymentRecord
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read payments cache", slog.String("op", op), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	records, err := s.repo.ListPaymentsByUserUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, key, records, paymentsCacheTTL); err != nil {
		s.log.Warn("failed to write payments cache", slog.String("op", op), sl.Err(err))
	}
	return records, nil
}

// onTerminal собирает хук завершения workflow: метрики, запись в историю,
// сброс кэша и квитанция в брокер. Отказы валидации и отмены в историю
// не попадают — шлюз в этих прогонах не вызывался.
func (s *Service) onTerminal(userUID string) func(workflow.RunSummary) {
	return func(run workflow.RunSummary) {
		const op = "payment.onTerminal"

		metrics.WorkflowsInFlight.Dec()
		metrics.PaymentsTotal.WithLabelValues(string(run.Type), string(run.Result.Outcome)).Inc()

		if len(run.Result.Errors) > 0 || run.Result.Outcome == workflow.OutcomeCancelled {
			return
		}

		record := models.PaymentRecord{
			ID:      uuid.NewString(),
			UserUID: userUID,
			Type:    string(run.Type),
			USD:     run.USD,
			Status:  statusOf(run.Result.Outcome),
			Message: run.Result.Message,
		}

		// Хук вызывается вне HTTP-запроса, у него собственный контекст.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.repo.SavePaymentRecord(ctx, record); err != nil {
			s.log.Error("failed to save payment record", slog.String("op", op), sl.Err(err))
		}
		if err := s.cache.Invalidate(ctx, paymentsCacheKey(userUID)); err != nil {
			s.log.Warn("failed to invalidate payments cache", slog.String("op", op), sl.Err(err))
		}

		if run.Result.Outcome == workflow.OutcomeSuccess && s.publisher != nil {
			receipt := Receipt{
				PaymentID: record.ID,
				UserUID:   userUID,
				Type:      record.Type,
				USD:       record.USD,
				PaidAt:    time.Now().UTC(),
			}
			if err := s.publisher.PublishReceipt(receipt); err != nil {
				s.log.Error("failed to publish receipt", slog.String("op", op), sl.Err(err))
			}
		}
	}
}

func statusOf(outcome workflow.Outcome) string {
	switch outcome {
	case workflow.OutcomeSuccess:
		return models.PaymentStatusSucceeded
	case workflow.OutcomeUnknown:
		return models.PaymentStatusUnknown
	default:
		return models.PaymentStatusFailed
	}
}

func paymentsCacheKey(userUID string) string {
	return fmt.Sprintf("payments:%s", userUID)
}
