// Package checkout описывает узкую границу между workflow и виджетом
// вендора. Workflow видит от виджета ровно два события — авторизацию и
// отмену; они приходят return-редиректами браузера на callback-адреса,
// несущие токен workflow. Конкретный SDK вендора за этой границей
// взаимозаменяем.
package checkout

import (
	"context"
	"net/url"
)

// Gate принимает события виджета вендора для workflow, найденного по токену.
type Gate interface {
	// Authorized пользователь завершил авторизацию на сайте вендора.
	Authorized(ctx context.Context, token, payerID string) error
	// Cancelled пользователь покинул оплату на сайте вендора.
	Cancelled(ctx context.Context, token string) error
}

// ReturnURLs возвращает redirect- и cancel-адреса для stage-запроса:
// базовый адрес консоли плюс токен workflow в query-параметре.
func ReturnURLs(baseURL, token string) (redirectURL, cancelURL string) {
	q := url.Values{"token": {token}}.Encode()
	return baseURL + "/api/v1/payments/callback/authorized?" + q,
		baseURL + "/api/v1/payments/callback/cancelled?" + q
}
