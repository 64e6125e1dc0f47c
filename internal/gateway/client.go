// Package gateway реализует HTTP-клиент платёжного шлюза консоли.
//
// Шлюз принимает JSON и при ошибке возвращает конверт
// {"errors":[{"field":..., "reason":...}]}. Reason передаётся пользователю
// дословно, конверт без ошибок заменяется общим сообщением.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimbuscloud/console-payments/internal/metrics"
)

// Client клиент платёжного шлюза.
type Client struct {
	apiURL     string
	apiToken   string
	httpClient *http.Client
}

// NewClient создаёт новый клиент шлюза.
func NewClient(apiURL, apiToken string) *Client {
	return &Client{
		apiURL:     apiURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(operation string, req *http.Request) (*http.Response, error) {
	timer := prometheus.NewTimer(metrics.GatewayRequestDuration.WithLabelValues(operation))
	defer timer.ObserveDuration()
	return c.httpClient.Do(req)
}

// decodeError разбирает конверт ошибок из тела ответа. Если конверт
// нечитаемый или пустой, возвращается APIError без записей — Reason()
// подставит общий текст.
func decodeError(statusCode int, body io.Reader) *APIError {
	var envelope errorEnvelope
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return &APIError{StatusCode: statusCode}
	}
	return &APIError{StatusCode: statusCode, Errors: envelope.Errors}
}

// StagePayment создаёт staged-платёж и возвращает payment_id шлюза.
func (c *Client) StagePayment(ctx context.Context, cancelURL, redirectURL, usd string) (string, error) {
	const op = "gateway.StagePayment"

	req, err := c.newRequest(ctx, http.MethodPost, "/account/payments/paypal", StagePaymentRequest{
		CancelURL:   cancelURL,
		RedirectURL: redirectURL,
		USD:         usd,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.do("stage", req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp.StatusCode, resp.Body)
	}

	var staged StagePaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&staged); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return staged.PaymentID, nil
}

// ExecutePayment выполняет финальное списание staged-платежа.
//
// Транспортная ошибка после отправки запроса означает, что результат
// не определён, поэтому возвращается *UnknownOutcomeError, а не обычная
// ошибка: вызывающий обязан показать пользователю "проверьте историю
// платежей", а не предлагать повторить.
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID string) error {
	const op = "gateway.ExecutePayment"

	req, err := c.newRequest(ctx, http.MethodPost, "/account/payments/paypal/execute", ExecutePaymentRequest{
		PaymentID: paymentID,
		PayerID:   payerID,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.do("execute", req)
	if err != nil {
		return &UnknownOutcomeError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, resp.Body)
	}
	return nil
}

// MakePayment выполняет прямое списание с карты.
func (c *Client) MakePayment(ctx context.Context, usd, ccv string) error {
	const op = "gateway.MakePayment"

	req, err := c.newRequest(ctx, http.MethodPost, "/account/payments", MakePaymentRequest{
		USD: usd,
		CCV: ccv,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.do("make", req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, resp.Body)
	}
	return nil
}
