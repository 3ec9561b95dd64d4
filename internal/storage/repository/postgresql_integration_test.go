package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

func TestStorage_Users(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("несуществующий email дает not found", func(t *testing.T) {
		_, err := storage.GetUserByEmail(ctx, "ghost@example.com")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("создание и чтение пользователя", func(t *testing.T) {
		created, err := storage.CreateUser(ctx, models.User{
			Email: "maria@example.com",
			Name:  "Maria Silva",
			Phone: "+5511999990000",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)

		got, err := storage.GetUserByEmail(ctx, "maria@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "Maria Silva", got.Name)
		assert.Nil(t, got.PasswordHash)
		assert.False(t, got.IsPremium)
	})

	t.Run("отметка premium", func(t *testing.T) {
		user, err := storage.GetUserByEmail(ctx, "maria@example.com")
		require.NoError(t, err)

		require.NoError(t, storage.SetUserPremium(ctx, user.ID, true))

		got, err := storage.GetUserByEmail(ctx, "maria@example.com")
		require.NoError(t, err)
		assert.True(t, got.IsPremium)
	})
}

func TestStorage_Products(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	guruID := "prod-777"
	created, err := storage.CreateProduct(ctx, models.Product{
		Name:               "Gold 10x",
		GuruProductID:      &guruID,
		AccessDurationDays: 365,
	})
	require.NoError(t, err)

	t.Run("поиск по guru id", func(t *testing.T) {
		got, err := storage.GetProductByGuruID(ctx, "prod-777")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("поиск по имени", func(t *testing.T) {
		got, err := storage.GetProductByName(ctx, "Gold 10x")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("перепривязка guru id", func(t *testing.T) {
		require.NoError(t, storage.UpdateProductGuruID(ctx, created.ID, "prod-999"))

		_, err := storage.GetProductByGuruID(ctx, "prod-777")
		assert.True(t, IsNotFound(err))

		got, err := storage.GetProductByGuruID(ctx, "prod-999")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})
}

func TestStorage_UpsertPurchase(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userID := factory.CreateUser(t, "maria@example.com", "Maria Silva")
	productID := factory.CreateProduct(t, "Gold 10x", "prod-777", 365)

	purchase := TestPurchase(userID, productID)

	first, err := storage.UpsertPurchase(ctx, purchase)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	// Повторная доставка того же вебхука: строка одна, статус и даты новые
	purchase.Status = models.PurchaseStatusCancelled
	purchase.EndDate = purchase.StartDate.AddDate(0, 1, 0)
	purchase.ExpirationDate = purchase.EndDate

	second, err := storage.UpsertPurchase(ctx, purchase)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := storage.GetPurchase(ctx, userID, productID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusCancelled, got.Status)
	assert.WithinDuration(t, purchase.EndDate, got.EndDate, time.Second)

	var count int
	require.NoError(t, storage.DB.QueryRow(`SELECT COUNT(*) FROM purchases`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStorage_UpdatePurchaseByPair(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userID := factory.CreateUser(t, "maria@example.com", "Maria Silva")
	productID := factory.CreateProduct(t, "Gold 10x", "prod-777", 365)

	purchase := TestPurchase(userID, productID)

	t.Run("нет строки для пары", func(t *testing.T) {
		affected, err := storage.UpdatePurchaseByPair(ctx, purchase)
		require.NoError(t, err)
		assert.Equal(t, 0, affected)
	})

	t.Run("обновление существующей строки", func(t *testing.T) {
		factory.CreatePurchase(t, userID, productID, models.PurchaseStatusPending,
			purchase.StartDate, purchase.EndDate)

		purchase.Status = models.PurchaseStatusPaid
		affected, err := storage.UpdatePurchaseByPair(ctx, purchase)
		require.NoError(t, err)
		assert.Equal(t, 1, affected)

		got, err := storage.GetPurchase(ctx, userID, productID)
		require.NoError(t, err)
		assert.Equal(t, models.PurchaseStatusPaid, got.Status)
	})
}

func TestStorage_ListPaidPurchasesByUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userID := factory.CreateUser(t, "maria@example.com", "Maria Silva")
	goldID := factory.CreateProduct(t, "Gold 10x", "prod-777", 365)
	cursoID := factory.CreateProduct(t, "Curso de Opções", "prod-888", 365)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	factory.CreatePurchase(t, userID, goldID, models.PurchaseStatusPaid, start, start.AddDate(1, 0, 0))
	factory.CreatePurchase(t, userID, cursoID, models.PurchaseStatusPending, start, start.AddDate(1, 0, 0))

	notices, err := storage.ListPaidPurchasesByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "Gold 10x", notices[0].ProductName)
	assert.Equal(t, "maria@example.com", notices[0].Email)
}

func TestStorage_FindPurchasesExpiringTomorrow(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userID := factory.CreateUser(t, "maria@example.com", "Maria Silva")
	goldID := factory.CreateProduct(t, "Gold 10x", "prod-777", 365)
	cursoID := factory.CreateProduct(t, "Curso de Opções", "prod-888", 365)

	now := time.Now()
	tomorrow := now.AddDate(0, 0, 1)
	nextWeek := now.AddDate(0, 0, 7)

	factory.CreatePurchase(t, userID, goldID, models.PurchaseStatusPaid, now.AddDate(-1, 0, 0), tomorrow)
	factory.CreatePurchase(t, userID, cursoID, models.PurchaseStatusPaid, now.AddDate(-1, 0, 0), nextWeek)

	notices, err := storage.FindPurchasesExpiringTomorrow(ctx)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "Gold 10x", notices[0].ProductName)
}

func TestStorage_Coupons(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	userID := factory.CreateUser(t, "maria@example.com", "Maria Silva")

	created, err := storage.CreateCoupon(ctx, models.UserCoupon{
		UserID:   userID,
		Coupon:   "MARIA10",
		Link:     "https://gold10x.com/ref",
		IsActive: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	t.Run("дубликат кода ловится уникальным индексом", func(t *testing.T) {
		otherID := factory.CreateUser(t, "joao@example.com", "João Souza")
		_, err := storage.CreateCoupon(ctx, models.UserCoupon{
			UserID: otherID,
			Coupon: "MARIA10",
		})
		require.Error(t, err)
		assert.True(t, IsUniqueViolation(err))
	})

	t.Run("поиск по коду", func(t *testing.T) {
		got, err := storage.GetCouponByCode(ctx, "MARIA10")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("список с пагинацией", func(t *testing.T) {
		coupons, err := storage.ListCoupons(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, coupons, 1)
	})
}

func TestStorage_Consents(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()

	consent, err := storage.CreateConsent(ctx, models.Consent{
		Email:   "maria@example.com",
		Version: "2026-01",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, consent.ID)
	assert.False(t, consent.AcceptedAt.IsZero())
}
