package provider

import (
	"context"
	"errors"

	"github.com/opkit/authd/internal/auth/domain"
)

// ErrExchangeFailed covers any failure turning an authorization code into a
// profile: bad code, provider outage, malformed response. Callers treat the
// code as unusable either way.
var ErrExchangeFailed = errors.New("provider: code exchange failed")

// Profile is the minimal identity a provider attests. Nothing beyond these
// fields is trusted.
type Profile struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// Resolver turns a provider authorization code into a Profile and tells
// clients where to send the user to obtain one.
type Resolver interface {
	Name() domain.Provider

	// AuthURL builds the provider's authorization endpoint URL. The state
	// value is echoed back on the redirect so the client can tie the
	// callback to its own session.
	AuthURL(state string) string

	Resolve(ctx context.Context, code string) (Profile, error)
}

// Registry maps provider names to resolvers.
type Registry map[domain.Provider]Resolver

func NewRegistry(resolvers ...Resolver) Registry {
	r := make(Registry, len(resolvers))
	for _, res := range resolvers {
		r[res.Name()] = res
	}
	return r
}

func (r Registry) Lookup(name domain.Provider) (Resolver, bool) {
	res, ok := r[name]
	return res, ok
}
