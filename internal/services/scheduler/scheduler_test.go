package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gold10x/purchase-reconciler/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindPurchasesExpiringTomorrow(ctx context.Context) ([]*models.AccessNotice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AccessNotice), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestSchedulerService_runFindExpiringPurchases(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *MockRepository)
	}{
		{
			name: "нет истекающих покупок",
			setupMocks: func(r *MockRepository) {
				r.On("FindPurchasesExpiringTomorrow", mock.Anything).
					Return([]*models.AccessNotice{}, nil).Once()
			},
		},
		{
			name: "ошибка репозитория только логируется",
			setupMocks: func(r *MockRepository) {
				r.On("FindPurchasesExpiringTomorrow", mock.Anything).
					Return(nil, errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)
			service := NewSchedulerService(repo, newNoopLogger())

			service.runFindExpiringPurchases(context.Background(), nil)

			repo.AssertExpectations(t)
		})
	}
}

func TestSchedulerService_NewSchedulerService(t *testing.T) {
	repo := new(MockRepository)
	logger := newNoopLogger()

	service := NewSchedulerService(repo, logger)

	assert.NotNil(t, service)
	assert.Equal(t, repo, service.repo)
	assert.Equal(t, logger, service.log)
}
