// Package reconciler предоставляет маршруты для основного приложения.
package reconciler

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	accesscheck "github.com/gold10x/purchase-reconciler/internal/http/handlers/access/check"
	"github.com/gold10x/purchase-reconciler/internal/http/handlers/auth/login"
	consentrecord "github.com/gold10x/purchase-reconciler/internal/http/handlers/consent/record"
	couponcreate "github.com/gold10x/purchase-reconciler/internal/http/handlers/coupon/create"
	couponlist "github.com/gold10x/purchase-reconciler/internal/http/handlers/coupon/list"
	"github.com/gold10x/purchase-reconciler/internal/http/handlers/resendaccess"
	webhookhealth "github.com/gold10x/purchase-reconciler/internal/http/handlers/webhook/health"
	webhookreceive "github.com/gold10x/purchase-reconciler/internal/http/handlers/webhook/receive"
	"github.com/gold10x/purchase-reconciler/internal/http/middlewarectx"
	"github.com/gold10x/purchase-reconciler/internal/lib/jwt"
	accountservice "github.com/gold10x/purchase-reconciler/internal/services/account"
	reconcileservice "github.com/gold10x/purchase-reconciler/internal/services/reconcile"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	reconcileService *reconcileservice.Service,
	accountService *accountservice.Service,
	tokenMaker jwt.Maker) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Webhook endpoint провайдера (без аутентификации)
		r.Post("/payments/webhook", webhookreceive.New(logger, reconcileService).ServeHTTP)
		r.Get("/payments/webhook", webhookhealth.New(logger).ServeHTTP)

		// Открытые конечные точки
		r.Post("/login", login.New(logger, accountService).ServeHTTP)
		r.Post("/consents", consentrecord.New(logger, accountService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokenMaker, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/access/{email}/{productID}", accesscheck.New(logger, accountService).ServeHTTP)

			// Админские конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				r.Post("/admin/coupons", couponcreate.New(logger, accountService).ServeHTTP)
				r.Get("/admin/coupons", couponlist.New(logger, accountService).ServeHTTP)
				r.Post("/admin/resend-access", resendaccess.New(logger, accountService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
