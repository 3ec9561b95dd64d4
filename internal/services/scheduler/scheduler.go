// Package scheduler периодически выбирает покупки с истекающим завтра
// доступом и публикует их в очередь напоминаний.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/gold10x/purchase-reconciler/internal/lib/rabbitmq"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/models"
)

type PurchaseRepository interface {
	FindPurchasesExpiringTomorrow(ctx context.Context) ([]*models.AccessNotice, error)
}

type SchedulerService struct {
	repo PurchaseRepository
	log  *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo PurchaseRepository, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		log:  log,
	}
}

// FindExpiringPurchasesDueTomorrow запускает обход раз в 12 часов.
// Двойной прогон в сутки безопасен: письмо-напоминание идемпотентно
// по содержанию, а окно "завтра" одно и то же.
func (s *SchedulerService) FindExpiringPurchasesDueTomorrow(ctx context.Context, channel *amqp.Channel) {
	s.runFindExpiringPurchases(ctx, channel)

	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runFindExpiringPurchases(ctx, channel)
		}
	}
}

func (s *SchedulerService) runFindExpiringPurchases(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting scan for purchases expiring tomorrow")
	notices, err := s.repo.FindPurchasesExpiringTomorrow(ctx)
	if err != nil {
		s.log.Error("failed to find expiring purchases", sl.Err(err))
		return
	}
	if len(notices) == 0 {
		s.log.Info("no expiring purchases found")
		return
	}
	s.log.Info("found expiring purchases", "count", len(notices))
	for _, notice := range notices {
		err = rabbitmq.PublishMessage(channel, rabbitmq.NotificationsExchange, "expiring", notice)
		if err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
