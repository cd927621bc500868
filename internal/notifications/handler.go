package notifications

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Enqueuer schedules a background scan.
type Enqueuer interface {
	EnqueueNotificationScan(ctx context.Context) (string, error)
}

// Handler wires HTTP endpoints for notifications.
type Handler struct {
	logger  *slog.Logger
	service *Service
	queue   Enqueuer
	rbac    rbac.Middleware
}

// NewHandler constructs the notifications handler.
func NewHandler(logger *slog.Logger, service *Service, queue Enqueuer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, queue: queue, rbac: rbac}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/notifications", h.list)
		r.Get("/notifications/unread-count", h.unread)
		r.Post("/notifications/mark-all-read", h.markAllRead)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapAdmin))
		r.Post("/notifications/scan", h.scan)
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func currentUser(r *http.Request) (int64, error) {
	id, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		return 0, httpx.ErrUnauthorized
	}
	return id, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.fail(w, "list notifications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.Unread(r.Context(), userID)
	if err != nil {
		h.fail(w, "count notifications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.MarkAllRead(r.Context(), userID); err != nil {
		h.fail(w, "mark notifications read", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	id, err := h.queue.EnqueueNotificationScan(r.Context())
	if err != nil {
		h.fail(w, "enqueue notification scan", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": id})
}
