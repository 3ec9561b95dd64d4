// Package create реализует HTTP-обработчик выдачи персонального купона.
//
// Код купона глобально уникален: занятый код возвращает 409 с дружелюбным
// сообщением, а не ошибку базы данных.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/gold10x/purchase-reconciler/internal/http/response"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/models"
	"github.com/gold10x/purchase-reconciler/internal/services/account"
)

// Request — структура входных данных для выдачи купона.
type Request struct {
	Email  string `json:"email" validate:"required,email"`
	Coupon string `json:"coupon" validate:"required,min=3,max=64"`
	Link   string `json:"link" validate:"omitempty,url"`
}

// Service описывает интерфейс бизнес-логики купонов.
type Service interface {
	CreateCoupon(ctx context.Context, email, code, link string) (*models.UserCoupon, error)
}

// Handler обрабатывает HTTP-запросы выдачи купонов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдача персонального купона
// @Description Создает купон для пользователя. Код приводится к верхнему регистру без пробелов.
// @Tags Coupons
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Email пользователя и код купона"
// @Success 200 {object} response.Response "Купон создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Код уже занят"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/coupons [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.coupon.create"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	coupon, err := h.service.CreateCoupon(r.Context(), req.Email, req.Coupon, req.Link)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrCouponTaken):
			log.Info("coupon code already taken", slog.String("coupon", req.Coupon))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("this coupon code is already taken, please choose another one"))
		case errors.Is(err, account.ErrUserNotFound):
			log.Info("user not found", slog.String("email", req.Email))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to create coupon", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("coupon created", slog.String("coupon", coupon.Coupon))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id":     coupon.ID,
		"coupon": coupon.Coupon,
		"link":   coupon.Link,
	}))
}
