// Package reconcile сводит вебхук платежного провайдера к состоянию
// покупки: находит или создает пользователя и продукт, вычисляет окно
// доступа и идемпотентно записывает покупку. Повторная доставка того же
// вебхука обновляет существующую строку, последний обработанный побеждает.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gold10x/purchase-reconciler/internal/cache"
	"github.com/gold10x/purchase-reconciler/internal/guru"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/lib/smtp"
	"github.com/gold10x/purchase-reconciler/internal/metrics"
	"github.com/gold10x/purchase-reconciler/internal/models"
	"github.com/gold10x/purchase-reconciler/internal/storage/repository"
)

// Repository определяет методы хранилища, нужные для сверки вебхука.
type Repository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	SetUserPremium(ctx context.Context, userID string, isPremium bool) error
	GetProductByGuruID(ctx context.Context, guruProductID string) (*models.Product, error)
	GetProductByName(ctx context.Context, name string) (*models.Product, error)
	UpdateProductGuruID(ctx context.Context, productID, guruProductID string) error
	CreateProduct(ctx context.Context, product models.Product) (*models.Product, error)
	UpsertPurchase(ctx context.Context, purchase models.Purchase) (*models.Purchase, error)
	UpdatePurchaseByPair(ctx context.Context, purchase models.Purchase) (int, error)
}

// Notifier отправляет транзакционные письма. Ошибки доставки логируются
// и не влияют на результат обработки вебхука.
type Notifier interface {
	SendAccessGranted(to, name, productName string) (*smtp.SendResult, error)
	SendPaymentUnderAnalysis(to, name string, card *guru.CreditCard) (*smtp.SendResult, error)
	SendPaymentPending(to, name string, pix *guru.Pix) (*smtp.SendResult, error)
}

// Cache сбрасывает закешированные ответы проверки доступа: вебхук мог
// изменить статус покупки, кешированный ответ больше не действителен.
type Cache interface {
	Invalidate(key string) error
}

// Service реализует сверку вебхуков с покупками.
type Service struct {
	repo     Repository
	notifier Notifier
	cache    Cache
	log      *slog.Logger
}

// New создает новый Service.
func New(repo Repository, notifier Notifier, accessCache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		cache:    accessCache,
		log:      log,
	}
}

// Result итог обработки вебхука, уходит в тело HTTP-ответа провайдеру.
type Result struct {
	Message       string
	Status        string
	AccessGranted bool
	ProductName   string
	UserEmail     string
	Card          *guru.CreditCard
	Pix           *guru.Pix
}

// ProcessWebhook обрабатывает нормализованное событие провайдера.
func (s *Service) ProcessWebhook(ctx context.Context, ev *guru.Event) (*Result, error) {
	const op = "reconcile.ProcessWebhook"
	log := s.log.With(sl.Op(op), slog.String("email", ev.Email))

	status := guru.ClassifyStatus(ev)

	user, err := s.resolveUser(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	product, err := s.resolveProduct(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	startDate := ev.StartDate
	endDate := ev.EndDate
	if !ev.HasExplicitEnd {
		// Явной даты окончания в payload нет: окно доступа считается
		// от срока, настроенного у продукта.
		endDate = startDate.AddDate(0, 0, product.AccessDurationDays)
	}

	purchase := models.Purchase{
		UserID:         user.ID,
		ProductID:      product.ID,
		Status:         status,
		StartDate:      startDate,
		EndDate:        endDate,
		ExpirationDate: endDate,
		PurchaseDate:   time.Now(),
	}

	if err := s.storePurchase(ctx, purchase); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("purchase reconciled",
		slog.String("status", status), slog.String("product", product.Name))

	if err := s.cache.Invalidate(cache.AccessKey(user.Email, product.ID)); err != nil {
		log.Warn("access cache invalidation failed", sl.Err(err))
	}

	if status == models.PurchaseStatusPaid && !user.IsPremium {
		if err := s.repo.SetUserPremium(ctx, user.ID, true); err != nil {
			log.Warn("failed to mark user premium", sl.Err(err))
		}
	}

	metrics.WebhooksProcessed.WithLabelValues(status).Inc()

	s.dispatchNotification(ev, status, user, product)

	return &Result{
		Message:       "webhook processed",
		Status:        status,
		AccessGranted: status == models.PurchaseStatusPaid,
		ProductName:   product.Name,
		UserEmail:     user.Email,
		Card:          ev.Card,
		Pix:           ev.Pix,
	}, nil
}

// resolveUser находит пользователя по email или заводит нового без пароля:
// пароль будет задан через восстановление доступа при первом входе.
func (s *Service) resolveUser(ctx context.Context, ev *guru.Event) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, ev.Email)
	if err == nil {
		return user, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	return s.repo.CreateUser(ctx, models.User{
		Email: ev.Email,
		Name:  ev.Name,
		Phone: ev.Phone,
	})
}

// resolveProduct всегда сходится к какому-то продукту: вебхук с
// незнакомым marketplace id не отклоняется никогда.
func (s *Service) resolveProduct(ctx context.Context, ev *guru.Event) (*models.Product, error) {
	product, err := s.repo.GetProductByGuruID(ctx, ev.GuruProductID)
	if err == nil {
		return product, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	targetName := guru.ResolveTargetName(ev.ProductName, ev.GuruProductID)

	product, err = s.repo.GetProductByName(ctx, targetName)
	if err == nil {
		// Продукт уже есть под этим именем, но с другим идентификатором
		// провайдера: идентификаторы дрейфуют, перепривязываем.
		if err := s.repo.UpdateProductGuruID(ctx, product.ID, ev.GuruProductID); err != nil {
			return nil, err
		}
		guruID := ev.GuruProductID
		product.GuruProductID = &guruID
		return product, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	guruID := ev.GuruProductID
	return s.repo.CreateProduct(ctx, models.Product{
		Name:               targetName,
		GuruProductID:      &guruID,
		AccessDurationDays: models.DefaultAccessDurationDays,
	})
}

// storePurchase записывает покупку: upsert, при гонке на уникальном
// ограничении — явный update, при прочих сбоях — ровно один повтор.
func (s *Service) storePurchase(ctx context.Context, purchase models.Purchase) error {
	_, err := s.repo.UpsertPurchase(ctx, purchase)
	if err == nil {
		return nil
	}
	if repository.IsUniqueViolation(err) {
		_, err = s.repo.UpdatePurchaseByPair(ctx, purchase)
		return err
	}

	s.log.Warn("purchase upsert failed, retrying once", sl.Err(err))
	_, err = s.repo.UpsertPurchase(ctx, purchase)
	if err == nil {
		return nil
	}
	if repository.IsUniqueViolation(err) {
		_, err = s.repo.UpdatePurchaseByPair(ctx, purchase)
	}
	return err
}

// dispatchNotification отправляет письмо по статусу. Любая ошибка
// отправки только логируется: покупка уже записана и она авторитетна.
func (s *Service) dispatchNotification(ev *guru.Event, status string, user *models.User, product *models.Product) {
	var (
		result *smtp.SendResult
		err    error
		kind   string
	)
	switch {
	case status == models.PurchaseStatusPaid:
		kind = "access_granted"
		result, err = s.notifier.SendAccessGranted(user.Email, user.Name, product.Name)
	case ev.UnderAnalysis:
		kind = "analysis"
		result, err = s.notifier.SendPaymentUnderAnalysis(user.Email, user.Name, ev.Card)
	case status == models.PurchaseStatusPending:
		kind = "pending"
		result, err = s.notifier.SendPaymentPending(user.Email, user.Name, ev.Pix)
	default:
		// cancelled и expired писем не получают
		return
	}

	if err != nil {
		s.log.Error("notification failed",
			slog.String("kind", kind), slog.String("to", user.Email), sl.Err(err))
		return
	}
	if result.Skipped {
		s.log.Warn("notification skipped", slog.String("kind", kind))
	}
}
