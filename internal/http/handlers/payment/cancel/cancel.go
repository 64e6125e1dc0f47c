// Package cancel реализует HTTP-обработчик отмены платежа.
//
// До начала списания отмена гарантирует, что денег не снимут. Если списание
// уже выполняется, отменить его нельзя: клиенту возвращается сообщение о
// неизвестном исходе, а результат определит ответ шлюза.
package cancel

import (
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

// Handler управляет HTTP-запросами на отмену платежа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики платежей
}

// Service описывает интерфейс отмены платежа.
type Service interface {
	Cancel(userUID string) (workflow.Snapshot, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отменить платёж
// @Description Отменяет активный платёжный workflow пользователя. Отмена до списания гарантирует отсутствие списания.
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]any "Снимок состояния workflow"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Активного workflow нет"
// @Failure 409 {object} response.ErrorResponse "Списание уже выполняется"
// @Router /payments/workflow/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.cancel"
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

	snap, err := h.service.Cancel(userUID)
	switch {
	case errors.Is(err, payment.ErrWorkflowNotFound):
		log.Warn("no active workflow")
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("no active payment workflow"))
		return
	case errors.Is(err, workflow.ErrExecuteInFlight):
		log.Warn("cancel requested while charge in flight")
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error(workflow.MsgUnknown))
		return
	case err != nil:
		log.Error("failed to cancel payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not cancel payment"))
		return
	}

	log.Info("payment cancelled", slog.String("state", snap.State))
	render.JSON(w, r, response.StatusOKWithData(snap))
}
