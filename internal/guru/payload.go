// Package guru разбирает вебхуки платежного провайдера Digital Manager Guru.
//
// Провайдер присылает два вида уведомлений с разной формой JSON:
// подписочные (last_status, cycle_start_date, current_invoice) и
// транзакционные (status, created_at, items). Пакет извлекает из любого
// вида единый Event без побочных эффектов; приоритеты полей
// зафиксированы явными списками экстракторов.
package guru

import (
	"bytes"
	"encoding/json"
)

// Payload описывает объединение известных форм тела вебхука.
// Все поля опциональны, отсутствующие просто остаются пустыми.
type Payload struct {
	Status     string `json:"status"`
	LastStatus string `json:"last_status"`

	Subscriber *Party `json:"subscriber"`
	Contact    *Party `json:"contact"`

	Product *ProductRef  `json:"product"`
	Items   []ProductRef `json:"items"`

	CurrentInvoice *Invoice `json:"current_invoice"`
	Invoice        *Invoice `json:"invoice"`

	CycleStartDate string `json:"cycle_start_date"`
	CycleEndDate   string `json:"cycle_end_date"`
	CreatedAt      string `json:"created_at"`
	ExpiresAt      string `json:"expires_at"`

	Payment *Payment `json:"payment"`
}

// Party данные подписчика или контакта.
type Party struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
}

// ProductRef ссылка на продукт в каталоге провайдера.
type ProductRef struct {
	MarketplaceID FlexString `json:"marketplace_id"`
	ID            FlexString `json:"id"`
	Name          string     `json:"name"`
}

// Invoice данные счета подписки.
type Invoice struct {
	Status      string `json:"status"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// Payment детали способа оплаты, нужны только для писем.
type Payment struct {
	CreditCard *CreditCard `json:"credit_card"`
	Pix        *Pix        `json:"pix"`
}

// CreditCard бренд и последние цифры карты.
type CreditCard struct {
	Brand      string `json:"brand"`
	LastDigits string `json:"last_digits"`
}

// Pix реквизиты оплаты через PIX.
type Pix struct {
	QRCode        string `json:"qrcode"`
	QRCodeContent string `json:"qrcode_text"`
}

// FlexString строка, которую провайдер может прислать и как JSON-число.
type FlexString string

// UnmarshalJSON принимает строку, число или null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String возвращает значение как обычную строку.
func (f FlexString) String() string { return string(f) }
