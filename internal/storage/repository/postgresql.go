// Package repository реализует хранилище данных на основе PostgreSQL
// для пользователей, продуктов, покупок, купонов и согласий.
// Покупка идентифицируется уникальной парой (user_id, product_id);
// гонки одновременных вебхуков разрешаются через upsert и обработку
// нарушения уникального ограничения.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его ping-ом.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных: миграции применены,
// таблица покупок существует.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'purchases'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table purchases missing or query error: %w", err)
	}
	return nil
}

// IsUniqueViolation сообщает, вызвана ли ошибка нарушением уникального
// ограничения (код 23505). Используется для разрешения гонок при
// одновременной доставке одинаковых вебхуков и для дружелюбного
// ответа о занятом купоне.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// IsNotFound сообщает, что запрошенная запись отсутствует.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
