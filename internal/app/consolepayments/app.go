package consolepayments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/nimbuscloud/console-payments/internal/cache"
	"github.com/nimbuscloud/console-payments/internal/config"
	"github.com/nimbuscloud/console-payments/internal/gateway"
	"github.com/nimbuscloud/console-payments/internal/lib/jwt"
	"github.com/nimbuscloud/console-payments/internal/lib/rabbitmq"
	"github.com/nimbuscloud/console-payments/internal/migrations"
	authservice "github.com/nimbuscloud/console-payments/internal/services/auth"
	paymentservice "github.com/nimbuscloud/console-payments/internal/services/payment"
	"github.com/nimbuscloud/console-payments/internal/storage"
)

// App собирает все зависимости сервиса и владеет HTTP-сервером.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
}

// New создает приложение: поднимает хранилище с миграциями, кэш, брокер
// и платёжный шлюз, собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.AMQPConnectionString, 5, 3*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetPaymentQueues())
	if err != nil {
		return nil, err
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewAuthService(db, jwtMaker)

	gatewayClient := gateway.NewClient(cfg.GatewayAPIURL, cfg.GatewayAPIToken)
	publisher := paymentservice.NewAMQPPublisher(ch)
	paymentService := paymentservice.New(gatewayClient, db, cacheRedis, publisher, logger, cfg.ConsoleBaseURL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, paymentService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
