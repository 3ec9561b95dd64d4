package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

// UpsertPurchase создает или перезаписывает покупку по уникальной паре
// (user_id, product_id). Семантика last-write-wins: повторный вебхук
// перезаписывает статус и даты, строка остается одна.
func (s *Storage) UpsertPurchase(ctx context.Context, purchase models.Purchase) (*models.Purchase, error) {
	const op = "storage.UpsertPurchase"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO purchases (id, user_id, product_id, status, start_date,
			      end_date, expiration_date, purchase_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (user_id, product_id) DO UPDATE
			  SET status = EXCLUDED.status,
			      start_date = EXCLUDED.start_date,
			      end_date = EXCLUDED.end_date,
			      expiration_date = EXCLUDED.expiration_date,
			      purchase_date = EXCLUDED.purchase_date
			  RETURNING id`
	newID := uuid.New().String()
	if err := s.DB.QueryRowContext(ctx, query,
		newID, purchase.UserID, purchase.ProductID, purchase.Status,
		purchase.StartDate, purchase.EndDate, purchase.ExpirationDate,
		purchase.PurchaseDate).Scan(&purchase.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &purchase, nil
}

// UpdatePurchaseByPair обновляет покупку по паре (user_id, product_id).
// Запасной путь для гонки, когда upsert все же натыкается на 23505.
func (s *Storage) UpdatePurchaseByPair(ctx context.Context, purchase models.Purchase) (int, error) {
	const op = "storage.UpdatePurchaseByPair"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE purchases
			  SET status = $1, start_date = $2, end_date = $3,
			      expiration_date = $4, purchase_date = $5
			  WHERE user_id = $6 AND product_id = $7`
	result, err := s.DB.ExecContext(ctx, query,
		purchase.Status, purchase.StartDate, purchase.EndDate,
		purchase.ExpirationDate, purchase.PurchaseDate,
		purchase.UserID, purchase.ProductID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// GetPurchase возвращает покупку по паре (user_id, product_id).
func (s *Storage) GetPurchase(ctx context.Context, userID, productID string) (*models.Purchase, error) {
	const op = "storage.GetPurchase"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, product_id, status, start_date, end_date,
			      expiration_date, purchase_date
			  FROM purchases
			  WHERE user_id = $1 AND product_id = $2`
	p := &models.Purchase{}
	if err := s.DB.QueryRowContext(ctx, query, userID, productID).Scan(
		&p.ID, &p.UserID, &p.ProductID, &p.Status, &p.StartDate, &p.EndDate,
		&p.ExpirationDate, &p.PurchaseDate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPaidPurchasesByUser возвращает оплаченные покупки пользователя
// вместе с именами продуктов, для повторной отправки письма о доступе.
func (s *Storage) ListPaidPurchasesByUser(ctx context.Context, userID string) ([]*models.AccessNotice, error) {
	const op = "storage.ListPaidPurchasesByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, COALESCE(u.name, ''), p.name, pur.end_date
			  FROM purchases pur
			  JOIN users u ON u.id = pur.user_id
			  JOIN products p ON p.id = pur.product_id
			  WHERE pur.user_id = $1 AND pur.status = 'paid'
			  ORDER BY pur.end_date DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AccessNotice
	for rows.Next() {
		var n models.AccessNotice
		if err = rows.Scan(&n.Email, &n.Name, &n.ProductName, &n.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindPurchasesExpiringTomorrow находит оплаченные покупки, чье окно
// доступа заканчивается завтра. Используется планировщиком напоминаний.
func (s *Storage) FindPurchasesExpiringTomorrow(ctx context.Context) ([]*models.AccessNotice, error) {
	const op = "storage.FindPurchasesExpiringTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, COALESCE(u.name, ''), p.name, pur.end_date
			  FROM purchases pur
			  JOIN users u ON u.id = pur.user_id
			  JOIN products p ON p.id = pur.product_id
			  WHERE pur.status = 'paid'
			    AND pur.end_date::DATE = CURRENT_DATE + INTERVAL '1 day'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.AccessNotice
	for rows.Next() {
		var n models.AccessNotice
		if err = rows.Scan(&n.Email, &n.Name, &n.ProductName, &n.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
