package models

import "time"

// PaymentType способ оплаты, выбранный пользователем в форме.
type PaymentType string

const (
	// PaymentTypeCard прямое списание с карты (сумма + CCV).
	PaymentTypeCard PaymentType = "credit_card"
	// PaymentTypePayPal оплата через редирект на сайт вендора.
	PaymentTypePayPal PaymentType = "paypal"
)

// PaymentDraft черновик платежа: то, что пользователь ввёл в форму.
// Живёт только до отправки, нигде не сохраняется.
type PaymentDraft struct {
	USD  string      // Сумма в долларах, строкой, как введена
	CCV  string      // Код карты, обязателен только для PaymentTypeCard
	Type PaymentType // Выбранный способ оплаты
}

// PaymentRecord запись в истории платежей пользователя.
type PaymentRecord struct {
	ID        string    `json:"id"`
	UserUID   string    `json:"user_uid"`
	Type      string    `json:"type"`
	USD       string    `json:"usd"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Статусы записей истории платежей.
const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusUnknown   = "unknown"
)
