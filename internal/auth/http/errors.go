package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/opkit/authd/internal/auth/service"
	"github.com/opkit/authd/pkg/httpx"
	"github.com/opkit/authd/pkg/slogx"
)

// ErrorResponse is the JSON error body every endpoint uses.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, code int, err string, desc string) {
	httpx.WriteJSON(w, code, ErrorResponse{Error: err, Description: desc})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unmapped is a 500 and gets logged; the body never carries
// internal details.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
	case errors.Is(err, service.ErrInvalidRefresh):
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "")
	case errors.Is(err, service.ErrInvalidAccess):
		writeError(w, http.StatusUnauthorized, "invalid_access_token", "")
	case errors.Is(err, service.ErrAccountExists):
		writeError(w, http.StatusConflict, "account_already_exists", "")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "")
	case errors.Is(err, service.ErrProviderLinked):
		writeError(w, http.StatusConflict, "provider_already_linked", "")
	case errors.Is(err, service.ErrIdentityTaken):
		writeError(w, http.StatusConflict, "identity_already_linked", "")
	case errors.Is(err, service.ErrLastAuthMethod):
		writeError(w, http.StatusConflict, "last_auth_method", "unlinking would leave no way to sign in")
	case errors.Is(err, service.ErrUnsupportedProvider):
		writeError(w, http.StatusBadRequest, "unsupported_provider", "")
	case errors.Is(err, service.ErrNotSocialAccount):
		writeError(w, http.StatusBadRequest, "not_a_social_account", "")
	case errors.Is(err, service.ErrPasswordUnset):
		writeError(w, http.StatusBadRequest, "password_not_set", "")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "")
	}
}

var validate = validator.New()

// decodeJSON parses and validates a request body into dst. On failure it has
// already written a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}
