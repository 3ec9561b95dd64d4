package account

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gold10x/purchase-reconciler/internal/lib/jwt"
	"github.com/gold10x/purchase-reconciler/internal/lib/password"
	"github.com/gold10x/purchase-reconciler/internal/lib/smtp"
	"github.com/gold10x/purchase-reconciler/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *RepoMock) GetPurchase(ctx context.Context, userID, productID string) (*models.Purchase, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}
func (m *RepoMock) ListPaidPurchasesByUser(ctx context.Context, userID string) ([]*models.AccessNotice, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccessNotice), args.Error(1)
}
func (m *RepoMock) CreateCoupon(ctx context.Context, coupon models.UserCoupon) (*models.UserCoupon, error) {
	args := m.Called(ctx, coupon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserCoupon), args.Error(1)
}
func (m *RepoMock) GetCouponByCode(ctx context.Context, code string) (*models.UserCoupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserCoupon), args.Error(1)
}
func (m *RepoMock) ListCoupons(ctx context.Context, limit, offset int) ([]*models.UserCoupon, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserCoupon), args.Error(1)
}
func (m *RepoMock) CreateConsent(ctx context.Context, consent models.Consent) (*models.Consent, error) {
	args := m.Called(ctx, consent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Consent), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Acquire(key string, ttl time.Duration) (bool, error) {
	args := m.Called(key, ttl)
	return args.Bool(0), args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) SendAccessGranted(to, name, productName string) (*smtp.SendResult, error) {
	args := m.Called(to, name, productName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*smtp.SendResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(repo *RepoMock, cache *CacheMock, notifier *NotifierMock) *Service {
	maker := jwt.NewMaker("test-secret", time.Hour)
	return New(repo, cache, notifier, maker, time.Hour, newNoopLogger())
}

func userWithPassword(t *testing.T, pass string) *models.User {
	t.Helper()
	hash, err := password.GetHash(pass)
	assert.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "maria@example.com",
		Name:         "Maria Silva",
		PasswordHash: &hash,
		IsAdmin:      true,
	}
}

func TestLogin(t *testing.T) {
	user := userWithPassword(t, "s3cret")

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		password   string
		wantErr    error
	}{
		{
			name: "успешный вход",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(user, nil).Once()
			},
			password: "s3cret",
		},
		{
			name: "неверный пароль",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(user, nil).Once()
			},
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "пользователь без пароля",
			setupMocks: func(r *RepoMock) {
				webhookUser := &models.User{ID: "user-2", Email: "maria@example.com"}
				r.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(webhookUser, nil).Once()
			},
			password: "s3cret",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "пользователь не найден",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(nil, sql.ErrNoRows).Once()
			},
			password: "s3cret",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := newService(repo, new(CacheMock), new(NotifierMock))

			token, err := svc.Login(context.Background(), "maria@example.com", tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestHasProductAccess_ActivePurchase(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache, new(NotifierMock))

	cache.On("Get", "access:maria@example.com:product-1", mock.Anything).Return(false, nil).Once()
	repo.On("GetUserByEmail", mock.Anything, "maria@example.com").
		Return(&models.User{ID: "user-1", Email: "maria@example.com"}, nil).Once()
	repo.On("GetPurchase", mock.Anything, "user-1", "product-1").
		Return(&models.Purchase{
			Status:  models.PurchaseStatusPaid,
			EndDate: time.Now().AddDate(0, 0, 30),
		}, nil).Once()
	cache.On("Set", "access:maria@example.com:product-1", mock.Anything, 5*time.Minute).Return(nil).Once()

	ok, err := svc.HasProductAccess(context.Background(), "maria@example.com", "product-1")

	assert.NoError(t, err)
	assert.True(t, ok)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestHasProductAccess_ExpiredPurchase(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache, new(NotifierMock))

	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil).Once()
	repo.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(&models.User{ID: "user-1"}, nil).Once()
	repo.On("GetPurchase", mock.Anything, "user-1", "product-1").
		Return(&models.Purchase{
			Status:  models.PurchaseStatusPaid,
			EndDate: time.Now().AddDate(0, 0, -1),
		}, nil).Once()

	ok, err := svc.HasProductAccess(context.Background(), "maria@example.com", "product-1")

	assert.NoError(t, err)
	assert.False(t, ok)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestHasProductAccess_NoPurchase(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache, new(NotifierMock))

	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil).Once()
	repo.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(&models.User{ID: "user-1"}, nil).Once()
	repo.On("GetPurchase", mock.Anything, "user-1", "product-1").
		Return(nil, sql.ErrNoRows).Once()

	ok, err := svc.HasProductAccess(context.Background(), "maria@example.com", "product-1")

	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateCoupon(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "maria@example.com"}

	tests := []struct {
		name       string
		setupMocks func(r *RepoMock)
		code       string
		wantCode   string
		wantErr    error
	}{
		{
			name: "успешное создание, код нормализуется",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, "maria@example.com").Return(user, nil).Once()
				r.On("GetCouponByCode", mock.Anything, "MARIA10").Return(nil, sql.ErrNoRows).Once()
				r.On("CreateCoupon", mock.Anything, mock.MatchedBy(func(c models.UserCoupon) bool {
					return c.UserID == "user-1" && c.Coupon == "MARIA10" && c.IsActive
				})).Return(&models.UserCoupon{ID: "coupon-1", Coupon: "MARIA10"}, nil).Once()
			},
			code:     " maria 10 ",
			wantCode: "MARIA10",
		},
		{
			name: "код уже занят, найден предварительной проверкой",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, mock.Anything).Return(user, nil).Once()
				r.On("GetCouponByCode", mock.Anything, "MARIA10").
					Return(&models.UserCoupon{ID: "coupon-9", Coupon: "MARIA10"}, nil).Once()
			},
			code:    "maria10",
			wantErr: ErrCouponTaken,
		},
		{
			name: "гонка: уникальный индекс ловит дубликат",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, mock.Anything).Return(user, nil).Once()
				r.On("GetCouponByCode", mock.Anything, "MARIA10").Return(nil, sql.ErrNoRows).Once()
				r.On("CreateCoupon", mock.Anything, mock.Anything).
					Return(nil, &pgconn.PgError{Code: pgerrcode.UniqueViolation}).Once()
			},
			code:    "maria10",
			wantErr: ErrCouponTaken,
		},
		{
			name: "пользователь не найден",
			setupMocks: func(r *RepoMock) {
				r.On("GetUserByEmail", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows).Once()
			},
			code:    "maria10",
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMocks(repo)
			svc := newService(repo, new(CacheMock), new(NotifierMock))

			coupon, err := svc.CreateCoupon(context.Background(), "maria@example.com", tt.code, "https://gold10x.com/ref")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantCode, coupon.Coupon)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestResendAccess_SendsAllPaid(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	notifier := new(NotifierMock)
	svc := newService(repo, cache, notifier)

	cache.On("Acquire", "resend:maria@example.com", time.Hour).Return(true, nil).Once()
	repo.On("GetUserByEmail", mock.Anything, "maria@example.com").
		Return(&models.User{ID: "user-1", Email: "maria@example.com", Name: "Maria Silva"}, nil).Once()
	repo.On("ListPaidPurchasesByUser", mock.Anything, "user-1").
		Return([]*models.AccessNotice{
			{ProductName: "Gold 10x"},
			{ProductName: "Curso de Opções"},
		}, nil).Once()
	notifier.On("SendAccessGranted", "maria@example.com", "Maria Silva", "Gold 10x").
		Return(&smtp.SendResult{Success: true}, nil).Once()
	notifier.On("SendAccessGranted", "maria@example.com", "Maria Silva", "Curso de Opções").
		Return(&smtp.SendResult{Success: true}, nil).Once()

	sent, err := svc.ResendAccess(context.Background(), "maria@example.com")

	assert.NoError(t, err)
	assert.Equal(t, 2, sent)
	notifier.AssertExpectations(t)
}

func TestResendAccess_Throttled(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache, new(NotifierMock))

	cache.On("Acquire", "resend:maria@example.com", time.Hour).Return(false, nil).Once()

	_, err := svc.ResendAccess(context.Background(), "maria@example.com")

	assert.ErrorIs(t, err, ErrThrottled)
	repo.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
}

func TestResendAccess_NoPaidPurchases(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := newService(repo, cache, new(NotifierMock))

	cache.On("Acquire", mock.Anything, mock.Anything).Return(true, nil).Once()
	repo.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(&models.User{ID: "user-1"}, nil).Once()
	repo.On("ListPaidPurchasesByUser", mock.Anything, "user-1").
		Return([]*models.AccessNotice{}, nil).Once()

	_, err := svc.ResendAccess(context.Background(), "maria@example.com")

	assert.ErrorIs(t, err, ErrNoPaidPurchases)
}

func TestResendAccess_PartialDeliveryFailure(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	notifier := new(NotifierMock)
	svc := newService(repo, cache, notifier)

	cache.On("Acquire", mock.Anything, mock.Anything).Return(true, nil).Once()
	repo.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(&models.User{ID: "user-1", Email: "maria@example.com"}, nil).Once()
	repo.On("ListPaidPurchasesByUser", mock.Anything, "user-1").
		Return([]*models.AccessNotice{
			{ProductName: "Gold 10x"},
			{ProductName: "Curso de Opções"},
		}, nil).Once()
	notifier.On("SendAccessGranted", mock.Anything, mock.Anything, "Gold 10x").
		Return(&smtp.SendResult{Success: true}, nil).Once()
	notifier.On("SendAccessGranted", mock.Anything, mock.Anything, "Curso de Opções").
		Return(nil, errors.New("smtp connect failed")).Once()

	sent, err := svc.ResendAccess(context.Background(), "maria@example.com")

	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestRecordConsent(t *testing.T) {
	repo := new(RepoMock)
	svc := newService(repo, new(CacheMock), new(NotifierMock))

	repo.On("CreateConsent", mock.Anything, mock.MatchedBy(func(c models.Consent) bool {
		return c.Email == "maria@example.com" && c.Version == "2026-01"
	})).Return(&models.Consent{ID: "consent-1", Email: "maria@example.com", Version: "2026-01"}, nil).Once()

	consent, err := svc.RecordConsent(context.Background(), "maria@example.com", "2026-01")

	assert.NoError(t, err)
	assert.Equal(t, "consent-1", consent.ID)
	repo.AssertExpectations(t)
}
