package workflow

import (
	"errors"

	"github.com/nimbuscloud/console-payments/internal/lib/money"
	"github.com/nimbuscloud/console-payments/internal/models"
)

// validateDraft проверяет черновик платежа и возвращает нормализованную
// сумму. Ошибки адресуются к полям формы ("usd", "ccv").
//
// Минимум $5 для оплаты через вендора здесь сознательно не проверяется:
// его диктует шлюз, и его текст отказа уходит пользователю дословно.
func validateDraft(d models.PaymentDraft) (string, []FieldError) {
	var errs []FieldError

	usd := ""
	if d.USD == "" {
		errs = append(errs, FieldError{Field: "usd", Reason: "amount is required"})
	} else {
		normalized, err := money.NormalizeUSD(d.USD)
		switch {
		case errors.Is(err, money.ErrNotNumeric):
			errs = append(errs, FieldError{Field: "usd", Reason: "amount must be a number"})
		case errors.Is(err, money.ErrNotPositive):
			errs = append(errs, FieldError{Field: "usd", Reason: "amount must be positive"})
		case err != nil:
			errs = append(errs, FieldError{Field: "usd", Reason: "amount is invalid"})
		default:
			usd = normalized
		}
	}

	if d.Type == models.PaymentTypeCard && d.CCV == "" {
		errs = append(errs, FieldError{Field: "ccv", Reason: "ccv is required"})
	}

	return usd, errs
}
