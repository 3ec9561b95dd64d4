package guru

import (
	"errors"
	"strings"
	"time"
)

// Ошибки нормализации: без email или продукта вебхук обрабатывать нельзя.
var (
	ErrSubscriberMissing = errors.New("subscriber data missing or invalid")
	ErrProductMissing    = errors.New("product id missing or invalid")
)

// Event результат нормализации вебхука: плоский набор сигналов,
// не зависящий от исходной формы JSON.
type Event struct {
	// Сырые статусные сигналы в нижнем регистре, для классификатора.
	RootStatus    string
	LastStatus    string
	InvoiceStatus string
	// UnderAnalysis выставлен, когда корневой статус = analysis:
	// карта на ручной проверке, письмо отличается от обычного pending.
	UnderAnalysis bool

	Email string
	Name  string
	Phone string

	GuruProductID string
	ProductName   string

	StartDate time.Time
	EndDate   time.Time
	// HasExplicitEnd: дата окончания пришла из payload, а не подставлена.
	// Без нее окончание пересчитывается после резолва продукта.
	HasExplicitEnd bool

	Card *CreditCard
	Pix  *Pix
}

// extractor именованный шаг каскада: первый непустой результат побеждает.
// Порядок в списках фиксирует приоритет полей провайдера.
type extractor struct {
	name string
	fn   func(*Payload) string
}

var emailExtractors = []extractor{
	{"subscriber.email", func(p *Payload) string {
		if p.Subscriber != nil {
			return p.Subscriber.Email
		}
		return ""
	}},
	{"contact.email", func(p *Payload) string {
		if p.Contact != nil {
			return p.Contact.Email
		}
		return ""
	}},
}

var productIDExtractors = []extractor{
	{"product.marketplace_id", func(p *Payload) string {
		if p.Product != nil {
			return p.Product.MarketplaceID.String()
		}
		return ""
	}},
	{"product.id", func(p *Payload) string {
		if p.Product != nil {
			return p.Product.ID.String()
		}
		return ""
	}},
	{"items[0].marketplace_id", func(p *Payload) string {
		if len(p.Items) > 0 {
			return p.Items[0].MarketplaceID.String()
		}
		return ""
	}},
	{"items[0].id", func(p *Payload) string {
		if len(p.Items) > 0 {
			return p.Items[0].ID.String()
		}
		return ""
	}},
}

var productNameExtractors = []extractor{
	{"product.name", func(p *Payload) string {
		if p.Product != nil {
			return p.Product.Name
		}
		return ""
	}},
	{"items[0].name", func(p *Payload) string {
		if len(p.Items) > 0 {
			return p.Items[0].Name
		}
		return ""
	}},
}

var invoiceStatusExtractors = []extractor{
	{"current_invoice.status", func(p *Payload) string {
		if p.CurrentInvoice != nil {
			return p.CurrentInvoice.Status
		}
		return ""
	}},
	{"invoice.status", func(p *Payload) string {
		if p.Invoice != nil {
			return p.Invoice.Status
		}
		return ""
	}},
}

func firstMatch(p *Payload, cascade []extractor) string {
	for _, e := range cascade {
		if v := strings.TrimSpace(e.fn(p)); v != "" {
			return v
		}
	}
	return ""
}

// Normalize извлекает Event из payload. Момент now используется как
// значение дат по умолчанию, когда payload их не содержит.
func Normalize(p *Payload, now time.Time) (*Event, error) {
	email := firstMatch(p, emailExtractors)
	if email == "" {
		return nil, ErrSubscriberMissing
	}

	productID := firstMatch(p, productIDExtractors)
	if productID == "" {
		return nil, ErrProductMissing
	}

	rootStatus := strings.ToLower(strings.TrimSpace(p.Status))
	ev := &Event{
		RootStatus:    rootStatus,
		LastStatus:    strings.ToLower(strings.TrimSpace(p.LastStatus)),
		InvoiceStatus: strings.ToLower(firstMatch(p, invoiceStatusExtractors)),
		UnderAnalysis: rootStatus == "analysis",
		Email:         strings.ToLower(email),
		GuruProductID: productID,
		ProductName:   firstMatch(p, productNameExtractors),
	}

	if p.Subscriber != nil {
		ev.Name = p.Subscriber.Name
		ev.Phone = p.Subscriber.Phone
	} else if p.Contact != nil {
		ev.Name = p.Contact.Name
		ev.Phone = p.Contact.Phone
	}

	ev.StartDate, ev.EndDate, ev.HasExplicitEnd = resolveDates(p, now)

	if p.Payment != nil {
		ev.Card = p.Payment.CreditCard
		ev.Pix = p.Payment.Pix
	}

	return ev, nil
}
