package models

import "time"

// Статусы покупки после нормализации провайдерских значений.
const (
	PurchaseStatusPaid      = "paid"
	PurchaseStatusPending   = "pending"
	PurchaseStatusCancelled = "cancelled"
	PurchaseStatusExpired   = "expired"
)

// Purchase представляет текущее окно доступа пользователя к продукту.
// Пара (UserID, ProductID) уникальна: повторная подписка перезаписывает
// даты и статус, история интервалов не ведется.
type Purchase struct {
	ID             string
	UserID         string
	ProductID      string
	Status         string
	StartDate      time.Time
	EndDate        time.Time
	ExpirationDate time.Time
	PurchaseDate   time.Time
}

// IsActive сообщает, дает ли покупка доступ в момент now.
func (p *Purchase) IsActive(now time.Time) bool {
	return p.Status == PurchaseStatusPaid && p.EndDate.After(now)
}
