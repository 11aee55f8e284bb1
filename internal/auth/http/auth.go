package http

import (
	"net/http"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/service"
	"github.com/opkit/authd/pkg/httpx"
)

// requestMetadata captures the device/origin info recorded on each session.
func requestMetadata(r *http.Request) service.Metadata {
	return service.Metadata{
		DeviceInfo: r.UserAgent(),
		IPAddress:  httpx.IPKeyExtractor(r),
	}
}

// UserResponse is the public shape of a user record.
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
	LastLoginAt   string `json:"last_login_at,omitempty"`
}

func toUserResponse(u domain.User) UserResponse {
	resp := UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Provider:      string(u.Provider),
		Status:        string(u.Status),
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if u.LastLoginAt != nil {
		resp.LastLoginAt = u.LastLoginAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}

// AuthResponse bundles the signed-in user with their token pair.
type AuthResponse struct {
	User   UserResponse     `json:"user"`
	Tokens domain.TokenPair `json:"tokens"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type RegisterHandler struct {
	AccountService *service.AccountService
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, err := h.AccountService.Register(r.Context(), req.Email, req.Password, requestMetadata(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, AuthResponse{User: toUserResponse(user), Tokens: *pair})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginHandler struct {
	AccountService *service.AccountService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, err := h.AccountService.Login(r.Context(), req.Email, req.Password, requestMetadata(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AuthResponse{User: toUserResponse(user), Tokens: *pair})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type RefreshHandler struct {
	SessionService *service.SessionService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.SessionService.Refresh(r.Context(), req.RefreshToken, requestMetadata(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutHandler struct {
	SessionService *service.SessionService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.SessionService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type LogoutAllHandler struct {
	SessionService *service.SessionService
}

func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "invalid_access_token", "")
		return
	}

	if err := h.SessionService.LogoutAll(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
