package guru

import (
	"strings"
	"time"
)

// Форматы дат, встречающиеся в вебхуках провайдера.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateSource один источник пары дат, в порядке приоритета.
type dateSource struct {
	name  string
	start func(*Payload) string
	end   func(*Payload) string
}

var dateSources = []dateSource{
	{
		name:  "cycle",
		start: func(p *Payload) string { return p.CycleStartDate },
		end:   func(p *Payload) string { return p.CycleEndDate },
	},
	{
		name: "invoice_period",
		start: func(p *Payload) string {
			if inv := pickInvoice(p); inv != nil {
				return inv.PeriodStart
			}
			return ""
		},
		end: func(p *Payload) string {
			if inv := pickInvoice(p); inv != nil {
				return inv.PeriodEnd
			}
			return ""
		},
	},
	{
		name:  "transaction",
		start: func(p *Payload) string { return p.CreatedAt },
		end:   func(p *Payload) string { return p.ExpiresAt },
	},
}

func pickInvoice(p *Payload) *Invoice {
	if p.CurrentInvoice != nil {
		return p.CurrentInvoice
	}
	return p.Invoice
}

// resolveDates выбирает даты начала и окончания доступа из первого
// источника, где нашлась хотя бы дата начала. Если явной даты окончания
// нет ни в одном источнике, обе даты по умолчанию равны now, а финальное
// окончание пересчитывается позже из срока доступа продукта.
func resolveDates(p *Payload, now time.Time) (start, end time.Time, explicitEnd bool) {
	for _, src := range dateSources {
		s, okStart := parseDate(src.start(p))
		e, okEnd := parseDate(src.end(p))
		if !okStart && !okEnd {
			continue
		}
		if !okStart {
			s = now
		}
		if !okEnd {
			return s, s, false
		}
		return s, e, true
	}
	return now, now, false
}
