// Package record реализует HTTP-обработчик фиксации согласия пользователя
// с условиями использования.
package record

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/gold10x/purchase-reconciler/internal/http/response"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/models"
)

// Request — структура входных данных согласия.
type Request struct {
	Email   string `json:"email" validate:"required,email"`
	Version string `json:"version" validate:"required"`
}

// Service описывает интерфейс бизнес-логики согласий.
type Service interface {
	RecordConsent(ctx context.Context, email, version string) (*models.Consent, error)
}

// Handler обрабатывает HTTP-запросы фиксации согласий.
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
// @Summary Фиксация согласия
// @Description Записывает принятие пользователем условий использования с версией текста.
// @Tags Consents
// @Accept  json
// @Produce  json
// @Param request body Request true "Email и версия условий"
// @Success 200 {object} response.Response "Согласие записано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /consents [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.consent.record"

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

	consent, err := h.service.RecordConsent(r.Context(), req.Email, req.Version)
	if err != nil {
		log.Error("failed to record consent", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("consent recorded", slog.String("email", req.Email), slog.String("version", req.Version))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id":          consent.ID,
		"accepted_at": consent.AcceptedAt,
	}))
}
