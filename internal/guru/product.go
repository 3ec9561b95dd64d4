package guru

import (
	"fmt"
	"strings"
)

// CanonicalProductName имя флагманского продукта: любые варианты
// написания от провайдера схлопываются в него.
const CanonicalProductName = "Gold 10x"

// ResolveTargetName определяет имя продукта, под которым вебхук будет
// искать или создавать запись в каталоге:
//   - имя содержит "gold" и "10x" (без учета регистра) -> CanonicalProductName;
//   - иначе имя из payload как есть;
//   - без имени -> заглушка "Produto <id>".
//
// Чистая функция, чтобы эвристику можно было проверять без базы.
func ResolveTargetName(incomingName, guruProductID string) string {
	name := strings.TrimSpace(incomingName)
	lower := strings.ToLower(name)
	if strings.Contains(lower, "gold") && strings.Contains(lower, "10x") {
		return CanonicalProductName
	}
	if name != "" {
		return name
	}
	return fmt.Sprintf("Produto %s", guruProductID)
}
