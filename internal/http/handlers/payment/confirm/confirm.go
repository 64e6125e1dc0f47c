// Package confirm реализует HTTP-обработчик подтверждения платежа.
//
// Подтверждение — единственная операция, запускающая execute-запрос к шлюзу:
// ни callback вендора, ни что-либо ещё списание не инициируют. Подтвердить
// можно только workflow, ожидающий подтверждения после авторизации вендора.
package confirm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nimbuscloud/console-payments/internal/http/middlewarectx"
	"github.com/nimbuscloud/console-payments/internal/http/response"
	"github.com/nimbuscloud/console-payments/internal/lib/sl"
	"github.com/nimbuscloud/console-payments/internal/services/payment"
	"github.com/nimbuscloud/console-payments/internal/workflow"
)

// Handler управляет HTTP-запросами на подтверждение платежа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики платежей
}

// Service описывает интерфейс подтверждения платежа.
type Service interface {
	Confirm(ctx context.Context, userUID string) (workflow.Snapshot, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтвердить платёж
// @Description Подтверждает авторизованный вендором платёж и выполняет списание. Возвращает снимок состояния workflow с исходом платежа.
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]any "Снимок состояния workflow"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Активного workflow нет"
// @Failure 409 {object} response.ErrorResponse "Платёж не ожидает подтверждения"
// @Router /payments/workflow/confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	snap, err := h.service.Confirm(r.Context(), userUID)
	switch {
	case errors.Is(err, payment.ErrWorkflowNotFound):
		log.Warn("no active workflow")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("no active payment workflow"))
		return
	case errors.Is(err, workflow.ErrInvalidTransition):
		log.Warn("payment is not awaiting confirmation")
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("payment is not awaiting confirmation"))
		return
	case err != nil:
		log.Error("failed to confirm payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not confirm payment"))
		return
	}

	log.Info("payment confirmed", slog.String("state", snap.State))
	render.JSON(w, r, response.StatusOKWithData(snap))
}
