// Package resendaccess реализует HTTP-обработчик повторной отправки писем
// о доступе. Повторный запрос по тому же email в пределах окна троттлинга
// получает 429.
package resendaccess

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
	"github.com/gold10x/purchase-reconciler/internal/services/account"
)

// Request — структура входных данных повторной отправки.
type Request struct {
	Email string `json:"email" validate:"required,email"`
}

// Service описывает интерфейс бизнес-логики повторной отправки.
type Service interface {
	ResendAccess(ctx context.Context, email string) (int, error)
}

// Handler обрабатывает HTTP-запросы повторной отправки писем о доступе.
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
// @Summary Повторная отправка писем о доступе
// @Description Отправляет письма о доступе по всем оплаченным покупкам пользователя.
// @Tags Admin
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Email пользователя"
// @Success 200 {object} response.Response "Письма отправлены"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден или без оплаченных покупок"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком частые запросы"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/resend-access [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.resendaccess"

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

	sent, err := h.service.ResendAccess(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrThrottled):
			log.Info("resend throttled", slog.String("email", req.Email))
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, response.Error("resend was requested recently, try again later"))
		case errors.Is(err, account.ErrUserNotFound):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		case errors.Is(err, account.ErrNoPaidPurchases):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user has no paid purchases"))
		default:
			log.Error("failed to resend access", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("access emails resent", slog.String("email", req.Email), "count", sent)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"sent": sent,
	}))
}
