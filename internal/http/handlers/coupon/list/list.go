// Package list реализует HTTP-обработчик списка выданных купонов.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/gold10x/purchase-reconciler/internal/http/response"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/models"
)

// Service описывает интерфейс бизнес-логики списка купонов.
type Service interface {
	ListCoupons(ctx context.Context, limit, offset int) ([]*models.UserCoupon, error)
}

// Handler обрабатывает HTTP-запросы списка купонов.
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
// @Summary Список купонов
// @Description Возвращает страницу выданных купонов.
// @Tags Coupons
// @Security BearerAuth
// @Produce  json
// @Param limit query int false "Размер страницы" default(10)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response "Список купонов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/coupons [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.coupon.list"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	coupons, err := h.service.ListCoupons(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list coupons", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list coupons"))
		return
	}

	log.Info("coupons listed", "count", len(coupons))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(coupons),
		"coupons":    coupons,
	}))
}
