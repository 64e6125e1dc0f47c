// Package consolepayments предоставляет сборку и маршруты сервиса платежей консоли.
package consolepayments

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nimbuscloud/console-payments/internal/http/handlers/auth/login"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/auth/register"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/payment/callback"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/payment/cancel"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/payment/confirm"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/payment/list"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/payment/status"
	"github.com/nimbuscloud/console-payments/internal/http/handlers/payment/submit"
	"github.com/nimbuscloud/console-payments/internal/http/middlewarectx"
	authservice "github.com/nimbuscloud/console-payments/internal/services/auth"
	paymentservice "github.com/nimbuscloud/console-payments/internal/services/payment"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authService *authservice.AuthService, paymentService *paymentservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/payments", submit.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/workflow", status.New(logger, paymentService).ServeHTTP)
			r.Post("/payments/workflow/confirm", confirm.New(logger, paymentService).ServeHTTP)
			r.Post("/payments/workflow/cancel", cancel.New(logger, paymentService).ServeHTTP)
			r.Get("/payments/list", list.New(logger, paymentService).ServeHTTP)
		})

		// Return-редиректы вендора (без аутентификации: браузер приходит без JWT)
		r.Get("/payments/callback/authorized", callback.NewAuthorized(logger, paymentService).ServeHTTP)
		r.Get("/payments/callback/cancelled", callback.NewCancelled(logger, paymentService).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
