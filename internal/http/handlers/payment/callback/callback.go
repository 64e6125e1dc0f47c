// Package callback реализует HTTP-обработчики return-редиректов вендора.
//
// После авторизации или отказа на сайте вендора браузер пользователя
// возвращается на эти адреса с токеном workflow в query-параметрах.
// Авторизация переводит workflow в ожидание подтверждения; списание отсюда
// не запускается никогда.
package callback

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nimbuscloud/console-payments/internal/checkout"
	"github.com/nimbuscloud/console-payments/internal/http/response"
	"github.com/nimbuscloud/console-payments/internal/lib/sl"
	"github.com/nimbuscloud/console-payments/internal/services/payment"
	"github.com/nimbuscloud/console-payments/internal/workflow"
)

// AuthorizedHandler обрабатывает return-редирект после авторизации у вендора.
type AuthorizedHandler struct {
	log  *slog.Logger  // Логгер для записи информации и ошибок
	gate checkout.Gate // Приёмник событий виджета вендора
}

// NewAuthorized создает новый AuthorizedHandler.
func NewAuthorized(log *slog.Logger, gate checkout.Gate) *AuthorizedHandler {
	return &AuthorizedHandler{log: log, gate: gate}
}

// ServeHTTP godoc
// @Summary Callback авторизации вендора
// @Description Принимает return-редирект вендора после авторизации плательщика. Workflow переходит в ожидание подтверждения пользователя.
// @Tags Callbacks
// @Produce  json
// @Param token query string true "Токен workflow"
// @Param payer_id query string true "Идентификатор плательщика у вендора"
// @Success 200 {object} response.Response "Авторизация принята"
// @Failure 400 {object} response.ErrorResponse "Нет токена или payer_id"
// @Failure 404 {object} response.ErrorResponse "Workflow не найден"
// @Failure 409 {object} response.ErrorResponse "Workflow не ожидает авторизации"
// @Router /payments/callback/authorized [get]
func (h *AuthorizedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.callback.authorized"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	payerID := r.URL.Query().Get("payer_id")
	if token == "" || payerID == "" {
		log.Error("missing token or payer_id")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing token or payer_id"))
		return
	}

	err := h.gate.Authorized(r.Context(), token, payerID)
	switch {
	case errors.Is(err, payment.ErrWorkflowNotFound):
		log.Warn("workflow not found", slog.String("token", token))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("payment workflow not found"))
		return
	case errors.Is(err, workflow.ErrInvalidTransition):
		// Пользователь успел отменить платёж до возврата из виджета.
		log.Warn("authorization arrived for inactive workflow", slog.String("token", token))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("payment is not awaiting authorization"))
		return
	case err != nil:
		log.Error("failed to apply authorization", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not apply authorization"))
		return
	}

	log.Info("payment authorized", slog.String("token", token))
	render.JSON(w, r, response.OK())
}

// CancelledHandler обрабатывает return-редирект после отказа на сайте вендора.
type CancelledHandler struct {
	log  *slog.Logger  // Логгер для записи информации и ошибок
	gate checkout.Gate // Приёмник событий виджета вендора
}

// NewCancelled создает новый CancelledHandler.
func NewCancelled(log *slog.Logger, gate checkout.Gate) *CancelledHandler {
	return &CancelledHandler{log: log, gate: gate}
}

// ServeHTTP godoc
// @Summary Callback отмены вендора
// @Description Принимает return-редирект вендора, когда пользователь покинул оплату. Workflow завершается отменой.
// @Tags Callbacks
// @Produce  json
// @Param token query string true "Токен workflow"
// @Success 200 {object} response.Response "Отмена принята"
// @Failure 400 {object} response.ErrorResponse "Нет токена"
// @Failure 404 {object} response.ErrorResponse "Workflow не найден"
// @Router /payments/callback/cancelled [get]
func (h *CancelledHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.callback.cancelled"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")
	if token == "" {
		log.Error("missing token")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing token"))
		return
	}

	err := h.gate.Cancelled(r.Context(), token)
	switch {
	case errors.Is(err, payment.ErrWorkflowNotFound):
		log.Warn("workflow not found", slog.String("token", token))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("payment workflow not found"))
		return
	case errors.Is(err, workflow.ErrExecuteInFlight):
		log.Warn("cancel arrived while charge in flight", slog.String("token", token))
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(workflow.MsgUnknown))
		return
	case err != nil:
		log.Error("failed to apply cancellation", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not apply cancellation"))
		return
	}

	log.Info("payment cancelled by vendor callback", slog.String("token", token))
	render.JSON(w, r, response.OK())
}
