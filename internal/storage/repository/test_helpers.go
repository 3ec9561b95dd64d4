package repository

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его id
func (f *TestDataFactory) CreateUser(t *testing.T, email, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)`,
		id, email, name)
	require.NoError(t, err)
	return id
}

// CreateProduct создает тестовый продукт и возвращает его id
func (f *TestDataFactory) CreateProduct(t *testing.T, name, guruProductID string, accessDays int) string {
	t.Helper()
	id := uuid.New().String()
	var guruID any
	if guruProductID != "" {
		guruID = guruProductID
	}
	_, err := f.storage.DB.Exec(`INSERT INTO products (id, name, guru_product_id, access_duration_days)
		VALUES ($1, $2, $3, $4)`,
		id, name, guruID, accessDays)
	require.NoError(t, err)
	return id
}

// CreatePurchase создает тестовую покупку и возвращает ее id
func (f *TestDataFactory) CreatePurchase(t *testing.T, userID, productID, status string,
	startDate, endDate time.Time) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO purchases
		(id, user_id, product_id, status, start_date, end_date, expiration_date, purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6, $6, NOW())`,
		id, userID, productID, status, startDate, endDate)
	require.NoError(t, err)
	return id
}

// TestPurchase возвращает покупку со статусом paid и годовым окном доступа
func TestPurchase(userID, productID string) models.Purchase {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 365)
	return models.Purchase{
		UserID:         userID,
		ProductID:      productID,
		Status:         models.PurchaseStatusPaid,
		StartDate:      start,
		EndDate:        end,
		ExpirationDate: end,
		PurchaseDate:   start,
	}
}

func setupTestDatabase(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	postgresContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort(nat.Port("5432/tcp")),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(3*time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	// Контейнер принимает соединения не сразу, пробуем с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			err = storage.DB.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")

	_, err = storage.DB.Exec(`
        DROP TABLE IF EXISTS consents CASCADE;
        DROP TABLE IF EXISTS user_coupons CASCADE;
        DROP TABLE IF EXISTS purchases CASCADE;
        DROP TABLE IF EXISTS products CASCADE;
        DROP TABLE IF EXISTS users CASCADE;

        CREATE TABLE users (
            id UUID PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            name TEXT,
            phone TEXT,
            password_hash TEXT,
            is_premium BOOLEAN NOT NULL DEFAULT FALSE,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE products (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            description TEXT,
            guru_product_id TEXT UNIQUE,
            access_duration_days INTEGER NOT NULL DEFAULT 365,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE purchases (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users (id),
            product_id UUID NOT NULL REFERENCES products (id),
            status TEXT NOT NULL,
            start_date TIMESTAMPTZ NOT NULL,
            end_date TIMESTAMPTZ NOT NULL,
            expiration_date TIMESTAMPTZ NOT NULL,
            purchase_date TIMESTAMPTZ NOT NULL,
            CONSTRAINT purchases_user_product_key UNIQUE (user_id, product_id)
        );

        CREATE TABLE user_coupons (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users (id),
            coupon TEXT NOT NULL UNIQUE,
            link TEXT,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );

        CREATE TABLE consents (
            id UUID PRIMARY KEY,
            email TEXT NOT NULL,
            version TEXT NOT NULL,
            accepted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
    `)
	require.NoError(t, err, "failed to create tables")

	cleanup := func() {
		storage.DB.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return storage, cleanup
}
