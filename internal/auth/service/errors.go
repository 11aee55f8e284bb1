package service

import "errors"

// Sentinel errors returned by the services. Handlers map these to HTTP
// statuses; anything else is treated as an internal error.
//
// ErrInvalidCredentials and ErrInvalidRefresh deliberately carry no detail
// about which check failed.
var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidRefresh      = errors.New("invalid_refresh_token")
	ErrInvalidAccess       = errors.New("invalid_access_token")
	ErrAccountExists       = errors.New("account_already_exists")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrProviderLinked      = errors.New("provider_already_linked")
	ErrIdentityTaken       = errors.New("identity_already_linked")
	ErrLastAuthMethod      = errors.New("last_auth_method")
	ErrUnsupportedProvider = errors.New("unsupported_provider")
	ErrNotSocialAccount    = errors.New("not_a_social_account")
	ErrPasswordUnset       = errors.New("password_not_set")
)
