package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

// CreateCoupon сохраняет купон пользователя. Строка купона защищена
// уникальным индексом, гонку ловит вызывающий через IsUniqueViolation.
func (s *Storage) CreateCoupon(ctx context.Context, coupon models.UserCoupon) (*models.UserCoupon, error) {
	const op = "storage.CreateCoupon"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	coupon.ID = uuid.New().String()
	query := `INSERT INTO user_coupons (id, user_id, coupon, link, is_active)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		coupon.ID, coupon.UserID, coupon.Coupon, coupon.Link,
		coupon.IsActive).Scan(&coupon.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &coupon, nil
}

// GetCouponByCode возвращает купон по строке купона.
func (s *Storage) GetCouponByCode(ctx context.Context, code string) (*models.UserCoupon, error) {
	const op = "storage.GetCouponByCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, coupon, link, is_active, created_at
			  FROM user_coupons
			  WHERE coupon = $1`
	c := &models.UserCoupon{}
	if err := s.DB.QueryRowContext(ctx, query, code).Scan(
		&c.ID, &c.UserID, &c.Coupon, &c.Link, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// ListCoupons возвращает все купоны с пагинацией.
func (s *Storage) ListCoupons(ctx context.Context, limit, offset int) ([]*models.UserCoupon, error) {
	const op = "storage.ListCoupons"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, coupon, link, is_active, created_at
			  FROM user_coupons
			  ORDER BY created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.UserCoupon
	for rows.Next() {
		var c models.UserCoupon
		if err = rows.Scan(&c.ID, &c.UserID, &c.Coupon, &c.Link,
			&c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
