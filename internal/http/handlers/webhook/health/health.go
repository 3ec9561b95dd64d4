// Package health отвечает на GET-проверку эндпоинта вебхуков: провайдер
// периодически дергает URL, чтобы убедиться, что приемник жив.
package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{
		log: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	render.JSON(w, r, map[string]any{
		"status":    "online",
		"message":   "webhook endpoint is ready to receive events",
		"timestamp": time.Now().UTC(),
	})
}
