// Package money нормализует денежные суммы перед отправкой в платёжный шлюз.
//
// Шлюз принимает суммы строкой с ровно двумя знаками после запятой и
// банковским округлением, поэтому нормализация выполняется один раз здесь,
// а не по месту в обработчиках.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric сумма не является числом.
var ErrNotNumeric = errors.New("amount is not numeric")

// ErrNotPositive сумма равна нулю или отрицательная.
var ErrNotPositive = errors.New("amount must be positive")

// NormalizeUSD разбирает введённую пользователем сумму и приводит её к
// строке вида "10.00": два знака после запятой, округление half-even.
func NormalizeUSD(raw string) (string, error) {
	const op = "money.NormalizeUSD"

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrNotNumeric)
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("%s: %w", op, ErrNotPositive)
	}
	return d.RoundBank(2).StringFixed(2), nil
}
