// Package account объединяет операции вокруг учетной записи: вход,
// проверку доступа к продукту, купоны, согласия и повторную отправку
// писем о доступе.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gold10x/purchase-reconciler/internal/cache"
	"github.com/gold10x/purchase-reconciler/internal/lib/jwt"
	"github.com/gold10x/purchase-reconciler/internal/lib/password"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/lib/smtp"
	"github.com/gold10x/purchase-reconciler/internal/models"
	"github.com/gold10x/purchase-reconciler/internal/storage/repository"
)

// Ошибки уровня сервиса, на которые обработчики отвечают своим кодом.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCouponTaken        = errors.New("coupon already taken")
	ErrThrottled          = errors.New("resend throttled")
	ErrNoPaidPurchases    = errors.New("no paid purchases")
	ErrUserNotFound       = errors.New("user not found")
)

// Repository определяет методы хранилища, нужные сервису.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetPurchase(ctx context.Context, userID, productID string) (*models.Purchase, error)
	ListPaidPurchasesByUser(ctx context.Context, userID string) ([]*models.AccessNotice, error)
	CreateCoupon(ctx context.Context, coupon models.UserCoupon) (*models.UserCoupon, error)
	GetCouponByCode(ctx context.Context, code string) (*models.UserCoupon, error)
	ListCoupons(ctx context.Context, limit, offset int) ([]*models.UserCoupon, error)
	CreateConsent(ctx context.Context, consent models.Consent) (*models.Consent, error)
}

// Cache абстракция над Redis: кеш проверок доступа и троттлинг ресенда.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Acquire(key string, ttl time.Duration) (bool, error)
}

// Notifier отправляет письма о предоставленном доступе.
type Notifier interface {
	SendAccessGranted(to, name, productName string) (*smtp.SendResult, error)
}

// Service реализует операции учетной записи.
type Service struct {
	repo           Repository
	cache          Cache
	notifier       Notifier
	tokenMaker     jwt.Maker
	resendThrottle time.Duration
	log            *slog.Logger
}

// New создает новый Service.
func New(repo Repository, cache Cache, notifier Notifier, tokenMaker jwt.Maker,
	resendThrottle time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		cache:          cache,
		notifier:       notifier,
		tokenMaker:     tokenMaker,
		resendThrottle: resendThrottle,
		log:            log,
	}
}

// Login проверяет учетные данные и возвращает JWT-токен.
// Пользователи, заведенные вебхуком, пароля не имеют и войти не могут,
// пока не зададут его через восстановление.
func (s *Service) Login(ctx context.Context, email, pass string) (string, error) {
	const op = "account.Login"

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user.PasswordHash == nil {
		return "", ErrInvalidCredentials
	}
	if err := password.CompareHash(*user.PasswordHash, pass); err != nil {
		return "", ErrInvalidCredentials
	}

	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	token, err := s.tokenMaker.GenerateToken(user.Email, role)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// accessEntry кешируемый результат проверки доступа.
type accessEntry struct {
	HasAccess bool      `json:"hasAccess"`
	EndDate   time.Time `json:"endDate"`
}

// HasProductAccess сообщает, действует ли у пользователя доступ к продукту.
// Положительный ответ кешируется на пять минут.
func (s *Service) HasProductAccess(ctx context.Context, email, productID string) (bool, error) {
	const op = "account.HasProductAccess"

	cacheKey := cache.AccessKey(email, productID)
	var cached accessEntry
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("access cache read failed", sl.Op(op), sl.Err(err))
	}
	if found && cached.HasAccess && cached.EndDate.After(time.Now()) {
		return true, nil
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	purchase, err := s.repo.GetPurchase(ctx, user.ID, productID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	active := purchase.IsActive(time.Now())
	if active {
		entry := accessEntry{HasAccess: true, EndDate: purchase.EndDate}
		if err := s.cache.Set(cacheKey, entry, 5*time.Minute); err != nil {
			s.log.Warn("access cache write failed", sl.Op(op), sl.Err(err))
		}
	}
	return active, nil
}

// normalizeCoupon приводит код купона к каноническому виду:
// верхний регистр, без пробелов.
func normalizeCoupon(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

// CreateCoupon выдает пользователю персональный купон. Код глобально
// уникален: предварительная проверка дает дружелюбный ответ без шума
// в логах базы, но авторитетно конфликт ловится на уникальном индексе.
func (s *Service) CreateCoupon(ctx context.Context, email, code, link string) (*models.UserCoupon, error) {
	const op = "account.CreateCoupon"

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normalized := normalizeCoupon(code)

	existing, err := s.repo.GetCouponByCode(ctx, normalized)
	if err != nil && !repository.IsNotFound(err) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, ErrCouponTaken
	}

	coupon, err := s.repo.CreateCoupon(ctx, models.UserCoupon{
		UserID:   user.ID,
		Coupon:   normalized,
		Link:     link,
		IsActive: true,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrCouponTaken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return coupon, nil
}

// ListCoupons возвращает страницу купонов.
func (s *Service) ListCoupons(ctx context.Context, limit, offset int) ([]*models.UserCoupon, error) {
	const op = "account.ListCoupons"

	coupons, err := s.repo.ListCoupons(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return coupons, nil
}

// RecordConsent фиксирует принятие условий использования.
func (s *Service) RecordConsent(ctx context.Context, email, version string) (*models.Consent, error) {
	const op = "account.RecordConsent"

	consent, err := s.repo.CreateConsent(ctx, models.Consent{
		Email:   email,
		Version: version,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return consent, nil
}

// ResendAccess повторно отправляет письма о доступе по всем оплаченным
// покупкам пользователя. Повторный вызов в пределах окна троттлинга
// отклоняется без обращения к базе.
func (s *Service) ResendAccess(ctx context.Context, email string) (int, error) {
	const op = "account.ResendAccess"

	acquired, err := s.cache.Acquire("resend:"+email, s.resendThrottle)
	if err != nil {
		// Redis недоступен: лучше отправить лишний раз, чем не отправить.
		s.log.Warn("resend throttle check failed", sl.Op(op), sl.Err(err))
	} else if !acquired {
		return 0, ErrThrottled
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	notices, err := s.repo.ListPaidPurchasesByUser(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(notices) == 0 {
		return 0, ErrNoPaidPurchases
	}

	sent := 0
	for _, notice := range notices {
		result, err := s.notifier.SendAccessGranted(user.Email, user.Name, notice.ProductName)
		if err != nil {
			s.log.Error("resend failed", sl.Op(op),
				slog.String("product", notice.ProductName), sl.Err(err))
			continue
		}
		if result.Success {
			sent++
		}
	}
	return sent, nil
}
