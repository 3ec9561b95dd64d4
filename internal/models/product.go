package models

import "time"

// DefaultAccessDurationDays окно доступа по умолчанию для нового продукта.
const DefaultAccessDurationDays = 365

// Product представляет продукт платформы. GuruProductID — идентификатор
// продукта на стороне платежного провайдера (Digital Manager Guru),
// отличается от внутреннего первичного ключа.
type Product struct {
	ID                 string
	Name               string
	Description        string
	GuruProductID      *string
	AccessDurationDays int
	CreatedAt          time.Time
}
