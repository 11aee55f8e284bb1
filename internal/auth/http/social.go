package http

import (
	"net/http"

	"github.com/opkit/authd/internal/auth/domain"
	"github.com/opkit/authd/internal/auth/service"
	"github.com/opkit/authd/pkg/httpx"
)

func providerFromPath(r *http.Request) (domain.Provider, bool) {
	p := domain.Provider(r.PathValue("provider"))
	return p, p.IsSocial()
}

// SocialAuthURLHandler hands clients the provider authorize URL so they do
// not have to assemble OAuth parameters themselves.
type SocialAuthURLHandler struct {
	SocialService *service.SocialService
}

func (h *SocialAuthURLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prov, ok := providerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported_provider", "")
		return
	}

	authURL, err := h.SocialService.AuthURL(prov, r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"url": authURL})
}

type SocialLoginRequest struct {
	Code string `json:"code" validate:"required"`
}

type SocialLoginHandler struct {
	SocialService *service.SocialService
}

func (h *SocialLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prov, ok := providerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported_provider", "")
		return
	}

	var req SocialLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, pair, err := h.SocialService.Login(r.Context(), prov, req.Code, requestMetadata(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AuthResponse{User: toUserResponse(user), Tokens: *pair})
}

type LinkRequest struct {
	Code string `json:"code" validate:"required"`
}

// LinksHandler manages the authenticated user's linked sign-in methods.
type LinksHandler struct {
	SocialService *service.SocialService
}

func (h *LinksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	accounts, err := h.SocialService.LinkedAccounts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"links": accounts})
}

func (h *LinksHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	prov, ok := providerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported_provider", "")
		return
	}

	var req LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.SocialService.LinkAccount(r.Context(), userID, prov, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LinksHandler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	prov, ok := providerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported_provider", "")
		return
	}

	if err := h.SocialService.UnlinkAccount(r.Context(), userID, prov); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
