package create

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gold10x/purchase-reconciler/internal/models"
	"github.com/gold10x/purchase-reconciler/internal/services/account"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) CreateCoupon(ctx context.Context, email, code, link string) (*models.UserCoupon, error) {
	args := m.Called(ctx, email, code, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserCoupon), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCreateCouponHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMocks func(s *ServiceMock)
		wantStatus int
	}{
		{
			name: "успешное создание",
			body: `{"email": "maria@example.com", "coupon": "maria10"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("CreateCoupon", mock.Anything, "maria@example.com", "maria10", "").
					Return(&models.UserCoupon{ID: "coupon-1", Coupon: "MARIA10"}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "некорректный JSON",
			body:       `{`,
			setupMocks: func(_ *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "нет обязательных полей",
			body:       `{"email": "maria@example.com"}`,
			setupMocks: func(_ *ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "код занят",
			body: `{"email": "maria@example.com", "coupon": "maria10"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("CreateCoupon", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, account.ErrCouponTaken).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "пользователь не найден",
			body: `{"email": "maria@example.com", "coupon": "maria10"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("CreateCoupon", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, account.ErrUserNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "внутренняя ошибка",
			body: `{"email": "maria@example.com", "coupon": "maria10"}`,
			setupMocks: func(s *ServiceMock) {
				s.On("CreateCoupon", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			tt.setupMocks(service)
			handler := New(newNoopLogger(), service)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/coupons", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			service.AssertExpectations(t)
		})
	}
}
