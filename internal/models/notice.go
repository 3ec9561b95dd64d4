package models

import "time"

// AccessNotice сообщение для очереди напоминаний: доступ пользователя
// к продукту скоро закончится.
type AccessNotice struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	ProductName string    `json:"product_name"`
	EndDate     time.Time `json:"end_date"`
}
