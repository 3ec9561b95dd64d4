// Package models содержит доменные структуры сервиса: пользователей,
// продукты, покупки, купоны и согласия. Структуры используются
// в бизнес-логике и при работе с хранилищем.
package models

import "time"

// User представляет пользователя платформы Gold 10x.
// PasswordHash может быть nil: вебхук создает пользователя без пароля,
// пароль задается позже через восстановление доступа.
type User struct {
	ID           string
	Email        string
	Name         string
	Phone        string
	PasswordHash *string
	IsPremium    bool
	IsAdmin      bool
	CreatedAt    time.Time
}
