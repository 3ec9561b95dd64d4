// Package reconciler собирает основное HTTP-приложение: хранилище,
// миграции, кеш, почтовый транспорт, сервисы и маршруты.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/gold10x/purchase-reconciler/internal/cache"
	"github.com/gold10x/purchase-reconciler/internal/config"
	"github.com/gold10x/purchase-reconciler/internal/lib/jwt"
	"github.com/gold10x/purchase-reconciler/internal/lib/smtp"
	"github.com/gold10x/purchase-reconciler/internal/migrations"
	accountservice "github.com/gold10x/purchase-reconciler/internal/services/account"
	reconcileservice "github.com/gold10x/purchase-reconciler/internal/services/reconcile"
	senderservice "github.com/gold10x/purchase-reconciler/internal/services/sender"
	"github.com/gold10x/purchase-reconciler/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	mailer := smtp.NewMailer(transport, logger, cfg.SMTPMaxAttempts)
	senderService := senderservice.NewSenderService(mailer, cfg.AppURL, logger)

	tokenMaker := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	reconcileService := reconcileservice.New(db, senderService, cacheRedis, logger)
	accountService := accountservice.New(db, cacheRedis, senderService, tokenMaker, cfg.ResendThrottle, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, reconcileService, accountService, tokenMaker)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
