package guru

import "github.com/gold10x/purchase-reconciler/internal/models"

// Словари провайдерских статусов. Классификация идет строгим каскадом
// paid -> cancelled -> expired -> pending: payload может одновременно
// нести противоречивые вторичные поля, побеждает первое совпадение.
var (
	paidLastStatuses = []string{"active", "approved", "paid"}
	paidRootStatuses = []string{"paid", "approved", "confirmed", "active"}

	cancelledLastStatuses = []string{"canceled", "cancelled"}
	cancelledRootStatuses = []string{"canceled", "cancelled", "refunded", "chargeback"}
)

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ClassifyStatus сводит статусные сигналы события к каноническому
// статусу покупки. Входные значения уже в нижнем регистре.
func ClassifyStatus(ev *Event) string {
	switch {
	case contains(paidLastStatuses, ev.LastStatus),
		ev.InvoiceStatus == "paid",
		contains(paidRootStatuses, ev.RootStatus):
		return models.PurchaseStatusPaid
	case contains(cancelledLastStatuses, ev.LastStatus),
		contains(cancelledRootStatuses, ev.RootStatus):
		return models.PurchaseStatusCancelled
	case ev.LastStatus == "expired", ev.RootStatus == "expired":
		return models.PurchaseStatusExpired
	default:
		return models.PurchaseStatusPending
	}
}
