// Package submit реализует HTTP-обработчик отправки платежа.
//
// Handler принимает JSON с суммой, способом оплаты и кодом карты, извлекает
// UID пользователя из контекста и запускает платёжный workflow. Ошибки полей
// формы не являются ошибкой HTTP: workflow завершается с ними, и они уходят
// клиенту в снимке состояния. Повторная отправка при незавершённом платеже
// возвращает 409 и не порождает второго запроса к шлюзу.
package submit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nimbuscloud/console-payments/internal/http/middlewarectx"
	"github.com/nimbuscloud/console-payments/internal/http/response"
	"github.com/nimbuscloud/console-payments/internal/lib/sl"
	"github.com/nimbuscloud/console-payments/internal/models"
	"github.com/nimbuscloud/console-payments/internal/workflow"
)

// Request — структура входных данных для отправки платежа.
//
// USD и CCV проверяются уже внутри workflow; здесь валидируется только
// способ оплаты.
type Request struct {
	USD  string `json:"usd"`
	CCV  string `json:"ccv"`
	Type string `json:"type" validate:"required,oneof=credit_card paypal"`
}

// Handler управляет HTTP-запросами на отправку платежа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики платежей
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики отправки платежа.
type Service interface {
	Submit(ctx context.Context, userUID string, draft models.PaymentDraft) (workflow.Snapshot, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить платёж
// @Description Запускает платёжный workflow для текущего пользователя: прямое списание с карты или оплату через вендора. Возвращает снимок состояния workflow.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body Request true "Сумма, код карты и способ оплаты"
// @Success 200 {object} map[string]any "Снимок состояния workflow"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Платёж уже выполняется"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.submit"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("type", req.Type))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	draft := models.PaymentDraft{
		USD:  req.USD,
		CCV:  req.CCV,
		Type: models.PaymentType(req.Type),
	}
	snap, err := h.service.Submit(r.Context(), userUID, draft)
	if err != nil {
		if errors.Is(err, workflow.ErrInFlight) {
			log.Warn("payment already in progress")
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("payment already in progress"))
			return
		}
		log.Error("failed to submit payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not submit payment"))
		return
	}

	log.Info("payment submitted", slog.String("state", snap.State))
	render.JSON(w, r, response.StatusOKWithData(snap))
}
