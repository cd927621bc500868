package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	rbac           rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, sessionManager: sessions, rbac: rbac}
}

// MountRoutes registers auth and profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/profile", h.profile)
		r.Put("/profile", h.updateProfile)
		r.Post("/profile/password", h.changePassword)
	})
}

type loginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	user, err := h.service.Authenticate(r.Context(), in.Login, in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("login", in.Login))
		}
		h.fail(w, "login", err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.fail(w, "login", errors.New("auth: session missing during login"))
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.fail(w, "renew session", err)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	httpx.JSON(w, http.StatusOK, loginResponse{Token: sess.ID, User: ProfileOf(user)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.Destroy(shared.SessionFromContext(r.Context()))
	httpx.NoContent(w)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, "load profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ProfileOf(user))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in ProfileInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	userID, _ := shared.UserIDFromContext(r.Context())
	user, err := h.service.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		h.fail(w, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ProfileOf(user))
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in PasswordChange
	if !httpx.Bind(w, r, &in) {
		return
	}
	userID, _ := shared.UserIDFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), userID, in); err != nil {
		h.fail(w, "change password", err)
		return
	}
	httpx.NoContent(w)
}
