// Package check реализует HTTP-обработчик проверки доступа пользователя
// к продукту.
package check

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/gold10x/purchase-reconciler/internal/http/response"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики проверки доступа.
type Service interface {
	HasProductAccess(ctx context.Context, email, productID string) (bool, error)
}

// Handler обрабатывает HTTP-запросы проверки доступа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Проверка доступа к продукту
// @Description Сообщает, действует ли у пользователя оплаченный доступ к продукту.
// @Tags Access
// @Security BearerAuth
// @Produce  json
// @Param email path string true "Email пользователя"
// @Param productID path string true "Идентификатор продукта"
// @Success 200 {object} response.Response "Статус доступа"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /access/{email}/{productID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.check"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email := chi.URLParam(r, "email")
	productID := chi.URLParam(r, "productID")

	hasAccess, err := h.service.HasProductAccess(r.Context(), email, productID)
	if err != nil {
		log.Error("failed to check access", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("access checked", slog.String("email", email), slog.Bool("has_access", hasAccess))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"email":      email,
		"product_id": productID,
		"has_access": hasAccess,
	}))
}
