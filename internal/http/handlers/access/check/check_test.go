package check

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) HasProductAccess(ctx context.Context, email, productID string) (bool, error) {
	args := m.Called(ctx, email, productID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRouter(service Service) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/access/{email}/{productID}", New(newNoopLogger(), service).ServeHTTP)
	return router
}

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(s *ServiceMock)
		wantStatus int
		wantAccess bool
	}{
		{
			name: "доступ действует",
			setupMocks: func(s *ServiceMock) {
				s.On("HasProductAccess", mock.Anything, "maria@example.com", "product-1").
					Return(true, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantAccess: true,
		},
		{
			name: "доступа нет",
			setupMocks: func(s *ServiceMock) {
				s.On("HasProductAccess", mock.Anything, "maria@example.com", "product-1").
					Return(false, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantAccess: false,
		},
		{
			name: "внутренняя ошибка",
			setupMocks: func(s *ServiceMock) {
				s.On("HasProductAccess", mock.Anything, mock.Anything, mock.Anything).
					Return(false, errors.New("db down")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(ServiceMock)
			tt.setupMocks(service)
			router := newRouter(service)

			req := httptest.NewRequest(http.MethodGet, "/access/maria@example.com/product-1", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var resp struct {
					Data struct {
						HasAccess bool `json:"has_access"`
					} `json:"data"`
				}
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantAccess, resp.Data.HasAccess)
			}
			service.AssertExpectations(t)
		})
	}
}
