// Package identity connects StepWise to the external identity provider.
//
// The provider owns sign-in, sessions and billing. StepWise only consumes:
//   - a signed session token per request, which yields an Identity
//   - the provider's backend API, for profile data, subscriptions and
//     manually assigned plan metadata
//
// Everything downstream takes an Identity as an explicit argument; nothing
// reaches back into the request for ambient session state.
package identity

import (
	"context"
	"strings"
)

// Identity is the authenticated caller as asserted by the session token.
//
// Plans holds the plan tags the provider stamped on the session (its
// entitlement claims). It may be empty.
type Identity struct {
	ID        string
	Plans     []string
	SessionID string
}

// HasEntitlement reports whether the session carries tag. Comparison is
// case-insensitive and ignores surrounding whitespace.
func (id Identity) HasEntitlement(tag string) bool {
	want := normalizeTag(tag)
	for _, p := range id.Plans {
		if normalizeTag(p) == want {
			return true
		}
	}
	return false
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the caller's identity. ok is false for anonymous
// requests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.ID != ""
}
