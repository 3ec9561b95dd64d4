package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

// CreateConsent фиксирует принятие условий использования.
func (s *Storage) CreateConsent(ctx context.Context, consent models.Consent) (*models.Consent, error) {
	const op = "storage.CreateConsent"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	consent.ID = uuid.New().String()
	query := `INSERT INTO consents (id, email, version)
			  VALUES ($1, $2, $3)
			  RETURNING accepted_at`
	if err := s.DB.QueryRowContext(ctx, query,
		consent.ID, consent.Email, consent.Version).Scan(&consent.AcceptedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &consent, nil
}
