package payment_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"io"
	"log/slog"

	"github.com/nimbuscloud/console-payments/internal/models"
	"github.com/nimbuscloud/console-payments/internal/services/payment"
	"github.com/nimbuscloud/console-payments/internal/workflow"
)

// Мок для workflow.Gateway
type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) StagePayment(ctx context.Context, cancelURL, redirectURL, usd string) (string, error) {
	args := m.Called(ctx, cancelURL, redirectURL, usd)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) ExecutePayment(ctx context.Context, paymentID, payerID string) error {
	args := m.Called(ctx, paymentID, payerID)
	return args.Error(0)
}

func (m *GatewayMock) MakePayment(ctx context.Context, usd, ccv string) error {
	args := m.Called(ctx, usd, ccv)
	return args.Error(0)
}

// Мок для HistoryRepository
type HistoryRepoMock struct {
	mock.Mock
}

func (m *HistoryRepoMock) SavePaymentRecord(ctx context.Context, record models.PaymentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *HistoryRepoMock) ListPaymentsByUserUID(ctx context.Context, userUID string) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentRecord), args.Error(1)
}

// Мок для Cache
type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Мок для ReceiptPublisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishReceipt(receipt payment.Receipt) error {
	args := m.Called(receipt)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestService(gate *GatewayMock, repo *HistoryRepoMock, cache *CacheMock, pub payment.ReceiptPublisher) *payment.Service {
	return payment.New(gate, repo, cache, pub, newNoopLogger(), "https://console.test")
}

func TestService_Submit_CardSuccessRecordsHistoryAndReceipt(t *testing.T) {
	gate := new(GatewayMock)
	repo := new(HistoryRepoMock)
	cache := new(CacheMock)
	pub := new(PublisherMock)

	gate.On("MakePayment", mock.Anything, "10.00", "123").Return(nil).Once()
	repo.On("SavePaymentRecord", mock.Anything, mock.MatchedBy(func(r models.PaymentRecord) bool {
		return r.UserUID == "user-1" &&
			r.Type == "credit_card" &&
			r.USD == "10.00" &&
			r.Status == models.PaymentStatusSucceeded
	})).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "payments:user-1").Return(nil).Once()
	pub.On("PublishReceipt", mock.MatchedBy(func(r payment.Receipt) bool {
		return r.UserUID == "user-1" && r.USD == "10.00"
	})).Return(nil).Once()

	svc := newTestService(gate, repo, cache, pub)

	snap, err := svc.Submit(context.Background(), "user-1", models.PaymentDraft{
		USD:  "10.00",
		CCV:  "123",
		Type: models.PaymentTypeCard,
	})
	require.NoError(t, err)
	require.NotNil(t, snap.Result)
	assert.Equal(t, workflow.OutcomeSuccess, snap.Result.Outcome)

	gate.AssertExpectations(t)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestService_Submit_ValidationFailureSkipsHistory(t *testing.T) {
	gate := new(GatewayMock)
	repo := new(HistoryRepoMock)
	cache := new(CacheMock)
	pub := new(PublisherMock)

	svc := newTestService(gate, repo, cache, pub)

	snap, err := svc.Submit(context.Background(), "user-1", models.PaymentDraft{Type: models.PaymentTypeCard})
	require.NoError(t, err)
	require.NotNil(t, snap.Result)
	assert.Equal(t, workflow.OutcomeFailed, snap.Result.Outcome)
	assert.NotEmpty(t, snap.Result.Errors)

	// Шлюз не вызывался, запись в историю не создаётся.
	gate.AssertNotCalled(t, "MakePayment", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SavePaymentRecord", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishReceipt", mock.Anything)
}

func TestService_FullVendorFlowThroughCallbacks(t *testing.T) {
	gate := new(GatewayMock)
	repo := new(HistoryRepoMock)
	cache := new(CacheMock)
	pub := new(PublisherMock)

	// Токен workflow вендор узнаёт из return-адресов stage-запроса.
	var token string
	gate.On("StagePayment", mock.Anything, mock.Anything, mock.Anything, "20.00").
		Run(func(args mock.Arguments) {
			u, err := url.Parse(args.String(2))
			require.NoError(t, err)
			token = u.Query().Get("token")
		}).
		Return("PAY-1", nil).Once()
	gate.On("ExecutePayment", mock.Anything, "PAY-1", "PAYER-7").Return(nil).Once()
	repo.On("SavePaymentRecord", mock.Anything, mock.MatchedBy(func(r models.PaymentRecord) bool {
		return r.Type == "paypal" && r.USD == "20.00" && r.Status == models.PaymentStatusSucceeded
	})).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "payments:user-1").Return(nil).Once()
	pub.On("PublishReceipt", mock.Anything).Return(nil).Once()

	svc := newTestService(gate, repo, cache, pub)

	snap, err := svc.Submit(context.Background(), "user-1", models.PaymentDraft{
		USD:  "20",
		Type: models.PaymentTypePayPal,
	})
	require.NoError(t, err)
	assert.Equal(t, "awaiting_authorization", snap.State)
	require.NotEmpty(t, token)

	require.NoError(t, svc.Authorized(context.Background(), token, "PAYER-7"))
	assert.Equal(t, "confirm_pending", svc.Status("user-1").State)

	snap, err = svc.Confirm(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, snap.Result)
	assert.Equal(t, workflow.OutcomeSuccess, snap.Result.Outcome)

	gate.AssertExpectations(t)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestService_CancelledCallbackBeforeAuthorization(t *testing.T) {
	gate := new(GatewayMock)
	repo := new(HistoryRepoMock)
	cache := new(CacheMock)

	var token string
	gate.On("StagePayment", mock.Anything, mock.Anything, mock.Anything, "20.00").
		Run(func(args mock.Arguments) {
			u, err := url.Parse(args.String(2))
			require.NoError(t, err)
			token = u.Query().Get("token")
		}).
		Return("PAY-1", nil).Once()

	svc := newTestService(gate, repo, cache, nil)

	_, err := svc.Submit(context.Background(), "user-1", models.PaymentDraft{USD: "20.00", Type: models.PaymentTypePayPal})
	require.NoError(t, err)

	require.NoError(t, svc.Cancelled(context.Background(), token))

	snap := svc.Status("user-1")
	require.NotNil(t, snap.Result)
	assert.Equal(t, workflow.OutcomeCancelled, snap.Result.Outcome)

	// Отменённый прогон не оставляет следов в истории.
	gate.AssertNotCalled(t, "ExecutePayment", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SavePaymentRecord", mock.Anything, mock.Anything)
}

func TestService_CallbackWithUnknownToken(t *testing.T) {
	svc := newTestService(new(GatewayMock), new(HistoryRepoMock), new(CacheMock), nil)

	err := svc.Authorized(context.Background(), "no-such-token", "PAYER-7")
	assert.ErrorIs(t, err, payment.ErrWorkflowNotFound)

	err = svc.Cancelled(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, payment.ErrWorkflowNotFound)
}

func TestService_ConfirmWithoutWorkflow(t *testing.T) {
	svc := newTestService(new(GatewayMock), new(HistoryRepoMock), new(CacheMock), nil)

	_, err := svc.Confirm(context.Background(), "user-1")
	assert.ErrorIs(t, err, payment.ErrWorkflowNotFound)

	_, err = svc.Cancel("user-1")
	assert.ErrorIs(t, err, payment.ErrWorkflowNotFound)
}

func TestService_NewRunAfterTerminalGetsFreshToken(t *testing.T) {
	gate := new(GatewayMock)
	repo := new(HistoryRepoMock)
	cache := new(CacheMock)

	var tokens []string
	gate.On("StagePayment", mock.Anything, mock.Anything, mock.Anything, "20.00").
		Run(func(args mock.Arguments) {
			u, err := url.Parse(args.String(2))
			require.NoError(t, err)
			tokens = append(tokens, u.Query().Get("token"))
		}).
		Return("PAY-1", nil).Twice()

	svc := newTestService(gate, repo, cache, nil)

	_, err := svc.Submit(context.Background(), "user-1", models.PaymentDraft{USD: "20.00", Type: models.PaymentTypePayPal})
	require.NoError(t, err)
	require.NoError(t, svc.Cancelled(context.Background(), tokens[0]))

	_, err = svc.Submit(context.Background(), "user-1", models.PaymentDraft{USD: "20.00", Type: models.PaymentTypePayPal})
	require.NoError(t, err)

	require.Len(t, tokens, 2)
	assert.NotEqual(t, tokens[0], tokens[1])

	// Старый токен больше никому не принадлежит.
	err = svc.Authorized(context.Background(), tokens[0], "PAYER-7")
	assert.ErrorIs(t, err, payment.ErrWorkflowNotFound)
}

func TestService_ConcurrentSubmitChargesOnce(t *testing.T) {
	gate := new(GatewayMock)
	repo := new(HistoryRepoMock)
	cache := new(CacheMock)

	repo.On("SavePaymentRecord", mock.Anything, mock.Anything).Return(nil).Once()
	cache.On("Invalidate", mock.Anything, "payments:user-1").Return(nil).Once()

	// Шлюз держит первый запрос, пока второй submit не получит отказ.
	release := make(chan struct{})
	gate.On("MakePayment", mock.Anything, "10.00", "123").
		Run(func(mock.Arguments) { <-release }).
		Return(nil).Once()

	svc := newTestService(gate, repo, cache, nil)

	draft := models.PaymentDraft{USD: "10.00", CCV: "123", Type: models.PaymentTypeCard}
	start := make(chan struct{})
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := svc.Submit(context.Background(), "user-1", draft)
			errs <- err
		}()
	}
	close(start)

	// Пока первый submit заблокирован в шлюзе, второй обязан отказать:
	// оба вызова должны попасть в один контроллер, второго списания нет.
	err := <-errs
	require.ErrorIs(t, err, workflow.ErrInFlight)

	close(release)
	require.NoError(t, <-errs)

	gate.AssertNumberOfCalls(t, "MakePayment", 1)
	gate.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestService_ListPayments(t *testing.T) {
	records := []*models.PaymentRecord{
		{ID: "p-2", UserUID: "user-1", Type: "paypal", USD: "20.00", Status: models.PaymentStatusSucceeded},
		{ID: "p-1", UserUID: "user-1", Type: "credit_card", USD: "10.00", Status: models.PaymentStatusFailed},
	}

	t.Run("cache miss goes to repository and fills cache", func(t *testing.T) {
		repo := new(HistoryRepoMock)
		cache := new(CacheMock)
		cache.On("Get", mock.Anything, "payments:user-1", mock.Anything).Return(false, nil).Once()
		repo.On("ListPaymentsByUserUID", mock.Anything, "user-1").Return(records, nil).Once()
		cache.On("Set", mock.Anything, "payments:user-1", mock.Anything, mock.Anything).Return(nil).Once()

		svc := newTestService(new(GatewayMock), repo, cache, nil)

		got, err := svc.ListPayments(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, records, got)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors fall through to repository", func(t *testing.T) {
		repo := new(HistoryRepoMock)
		cache := new(CacheMock)
		cache.On("Get", mock.Anything, "payments:user-1", mock.Anything).Return(false, errors.New("redis down")).Once()
		repo.On("ListPaymentsByUserUID", mock.Anything, "user-1").Return(records, nil).Once()
		cache.On("Set", mock.Anything, "payments:user-1", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

		svc := newTestService(new(GatewayMock), repo, cache, nil)

		got, err := svc.ListPayments(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})

	t.Run("repository error is returned", func(t *testing.T) {
		repo := new(HistoryRepoMock)
		cache := new(CacheMock)
		cache.On("Get", mock.Anything, "payments:user-1", mock.Anything).Return(false, nil).Once()
		repo.On("ListPaymentsByUserUID", mock.Anything, "user-1").Return(nil, errors.New("db error")).Once()

		svc := newTestService(new(GatewayMock), repo, cache, nil)

		_, err := svc.ListPayments(context.Background(), "user-1")
		assert.Error(t, err)
	})
}
