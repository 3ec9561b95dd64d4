package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

// CreateUser сохраняет нового пользователя и возвращает его с присвоенным ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	user.ID = uuid.New().String()
	query := `INSERT INTO users (id, email, name, phone, password_hash, is_premium, is_admin)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING created_at;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.Phone, user.PasswordHash,
		user.IsPremium, user.IsAdmin).Scan(&user.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, name, phone, password_hash, is_premium, is_admin, created_at
			  FROM users
			  WHERE email = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, email)

	var name, phone, passwordHash sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &name, &phone, &passwordHash,
		&u.IsPremium, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u.Name = name.String
	u.Phone = phone.String
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	return u, nil
}

// SetUserPremium выставляет пользователю признак премиум-доступа.
func (s *Storage) SetUserPremium(ctx context.Context, userID string, isPremium bool) error {
	const op = "storage.SetUserPremium"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET is_premium = $1 WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, isPremium, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
