package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

// CreateProduct сохраняет новый продукт и возвращает его с присвоенным ID.
func (s *Storage) CreateProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	const op = "storage.CreateProduct"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	product.ID = uuid.New().String()
	query := `INSERT INTO products (id, name, description, guru_product_id, access_duration_days)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING created_at;`
	if err := s.DB.QueryRowContext(ctx, query,
		product.ID, product.Name, product.Description, product.GuruProductID,
		product.AccessDurationDays).Scan(&product.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &product, nil
}

// GetProductByGuruID возвращает продукт по идентификатору провайдера.
func (s *Storage) GetProductByGuruID(ctx context.Context, guruProductID string) (*models.Product, error) {
	const op = "storage.GetProductByGuruID"
	return s.getProduct(ctx, op, `guru_product_id = $1`, guruProductID)
}

// GetProductByName возвращает продукт по имени.
func (s *Storage) GetProductByName(ctx context.Context, name string) (*models.Product, error) {
	const op = "storage.GetProductByName"
	return s.getProduct(ctx, op, `name = $1`, name)
}

func (s *Storage) getProduct(ctx context.Context, op, where string, arg any) (*models.Product, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, name, description, guru_product_id, access_duration_days, created_at
			  FROM products
			  WHERE ` + where
	p := &models.Product{}
	row := s.DB.QueryRowContext(ctx, query, arg)

	var description, guruProductID sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &description, &guruProductID,
		&p.AccessDurationDays, &p.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p.Description = description.String
	if guruProductID.Valid {
		p.GuruProductID = &guruProductID.String
	}
	return p, nil
}

// UpdateProductGuruID перепривязывает продукт к новому идентификатору
// провайдера. Идентификаторы у провайдера со временем меняются,
// вебхук лечит привязку сам.
func (s *Storage) UpdateProductGuruID(ctx context.Context, productID, guruProductID string) error {
	const op = "storage.UpdateProductGuruID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE products SET guru_product_id = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, guruProductID, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
