// Package status реализует HTTP-обработчик чтения состояния платёжного workflow.
package status

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nimbuscloud/console-payments/internal/http/middlewarectx"
	"github.com/nimbuscloud/console-payments/internal/http/response"
	"github.com/nimbuscloud/console-payments/internal/workflow"
)

// Handler управляет HTTP-запросами на чтение состояния workflow.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики платежей
}

// Service описывает интерфейс чтения состояния workflow.
type Service interface {
	Status(userUID string) workflow.Snapshot
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Состояние платёжного workflow
// @Description Возвращает снимок текущего платёжного workflow пользователя. Если платежей не было, состояние idle.
// @Tags Payments
// @Produce  json
// @Success 200 {object} map[string]any "Снимок состояния workflow"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /payments/workflow [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.status"
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

	snap := h.service.Status(userUID)
	render.JSON(w, r, response.StatusOKWithData(snap))
}
