package models

import "time"

// UserCoupon представляет персональный купон пользователя.
// Строка Coupon глобально уникальна, хранится в верхнем регистре без пробелов.
type UserCoupon struct {
	ID        string
	UserID    string
	Coupon    string
	Link      string
	IsActive  bool
	CreatedAt time.Time
}
