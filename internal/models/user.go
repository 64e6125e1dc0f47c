// Package models содержит доменные структуры консоли: пользователя,
// черновик платежа и запись истории платежей.
package models

import "time"

// User представляет зарегистрированного пользователя консоли.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // Хэш пароля пользователя
	Role         string    // Роль пользователя, admin или user
	CreatedAt    time.Time // Дата создания учётной записи
}
