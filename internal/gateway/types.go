package gateway

// StagePaymentRequest представляет запрос на предварительную авторизацию
// платежа через вендора. Шлюз возвращает payment_id, с которым пользователь
// уходит на сайт вендора.
type StagePaymentRequest struct {
	CancelURL   string `json:"cancel_url"`
	RedirectURL string `json:"redirect_url"`
	USD         string `json:"usd"`
}

// StagePaymentResponse ответ шлюза на создание staged-платежа.
type StagePaymentResponse struct {
	PaymentID string `json:"payment_id"`
}

// ExecutePaymentRequest представляет запрос на финальное списание
// после авторизации вендором и подтверждения пользователем.
type ExecutePaymentRequest struct {
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id"`
}

// MakePaymentRequest представляет прямое списание с карты.
type MakePaymentRequest struct {
	USD string `json:"usd"`
	CCV string `json:"ccv"`
}

// FieldError одна ошибка из конверта ошибок шлюза. Field может быть пустым.
type FieldError struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

type errorEnvelope struct {
	Errors []FieldError `json:"errors"`
}
