package cnpj

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Handler exposes the registry lookup.
type Handler struct {
	logger *slog.Logger
	client *Client
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, client *Client) *Handler {
	return &Handler{logger: logger, client: client}
}

// MountRoutes registers lookup routes. Callers mount it behind authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/cnpj/{cnpj}", h.lookup)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.client.Lookup(r.Context(), chi.URLParam(r, "cnpj"))
	if err != nil {
		h.logger.Warn("cnpj lookup", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
