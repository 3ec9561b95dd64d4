// Package receive реализует HTTP-обработчик приема платежных вебхуков.
//
// Тело запроса декодируется в провайдерский payload, нормализуется в плоское
// событие и передается сервису сверки. Ответ повторяет контракт, который
// ожидает провайдер: 400 с полем message при непригодном payload, 500 с
// деталями при сбое записи, 200 с итогом обработки в остальных случаях.
package receive

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/gold10x/purchase-reconciler/internal/guru"
	"github.com/gold10x/purchase-reconciler/internal/lib/sl"
	"github.com/gold10x/purchase-reconciler/internal/metrics"
	"github.com/gold10x/purchase-reconciler/internal/services/reconcile"
)

// Service описывает интерфейс сервиса сверки вебхуков.
type Service interface {
	ProcessWebhook(ctx context.Context, ev *guru.Event) (*reconcile.Result, error)
}

// Handler обрабатывает HTTP-запросы вебхуков.
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

// rejectResponse тело ответа 400: провайдер ждет поле message.
type rejectResponse struct {
	Message string `json:"message"`
}

// failureResponse тело ответа 500.
type failureResponse struct {
	Error     string    `json:"error"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// paymentInfo эхо платежных данных из вебхука в ответе.
type paymentInfo struct {
	Card *guru.CreditCard `json:"card,omitempty"`
	Pix  *guru.Pix        `json:"pix,omitempty"`
}

// okResponse тело ответа 200.
type okResponse struct {
	Message       string       `json:"message"`
	Status        string       `json:"status"`
	AccessGranted bool         `json:"accessGranted"`
	Product       string       `json:"product"`
	User          string       `json:"user"`
	Payment       *paymentInfo `json:"payment,omitempty"`
}

// ServeHTTP godoc
// @Summary Прием платежного вебхука
// @Description Принимает вебхук платежного провайдера, нормализует payload и сверяет покупку.
// @Tags Webhook
// @Accept  json
// @Produce  json
// @Param request body guru.Payload true "Payload провайдера"
// @Success 200 {object} okResponse "Вебхук обработан"
// @Failure 400 {object} rejectResponse "Непригодный payload"
// @Failure 500 {object} failureResponse "Сбой записи покупки"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.receive"

	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var payload guru.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error("failed to decode webhook body", sl.Err(err))
		metrics.WebhooksRejected.WithLabelValues("bad_json").Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, rejectResponse{Message: "invalid webhook payload"})
		return
	}

	event, err := guru.Normalize(&payload, time.Now())
	if err != nil {
		log.Error("webhook payload rejected", sl.Err(err))
		metrics.WebhooksRejected.WithLabelValues(rejectReason(err)).Inc()
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, rejectResponse{Message: err.Error()})
		return
	}
	log.Info("webhook normalized",
		slog.String("email", event.Email),
		slog.String("product_id", event.GuruProductID))

	result, err := h.service.ProcessWebhook(r.Context(), event)
	if err != nil {
		log.Error("failed to process webhook", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, failureResponse{
			Error:     "failed to process webhook",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	log.Info("webhook processed",
		slog.String("status", result.Status),
		slog.Bool("access_granted", result.AccessGranted))

	resp := okResponse{
		Message:       result.Message,
		Status:        result.Status,
		AccessGranted: result.AccessGranted,
		Product:       result.ProductName,
		User:          result.UserEmail,
	}
	if result.Card != nil || result.Pix != nil {
		resp.Payment = &paymentInfo{Card: result.Card, Pix: result.Pix}
	}
	render.JSON(w, r, resp)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, guru.ErrSubscriberMissing):
		return "missing_subscriber"
	case errors.Is(err, guru.ErrProductMissing):
		return "missing_product"
	default:
		return "invalid_payload"
	}
}
