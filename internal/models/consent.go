package models

import "time"

// Consent фиксирует принятие пользователем условий использования
// с версией текста, для аудита.
type Consent struct {
	ID         string
	Email      string
	Version    string
	AcceptedAt time.Time
}
