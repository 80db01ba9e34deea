// Package identity carries the authenticated borrower through the portal as
// an explicit value rather than ambient session state.
package identity

import (
	"context"
	"errors"
)

// ErrForbidden is returned when an operation needs a user and an
// organization but the identity lacks one of them.
var ErrForbidden = errors.New("identity: user and organization required")

// Identity is the borrower on whose behalf a request runs.
type Identity struct {
	UserID  string `json:"userId"`
	OrgID   string `json:"orgId"`
	OrgSlug string `json:"orgSlug"`
}

// Validate fails closed when any part of the identity is missing.
func (id Identity) Validate() error {
	if id.UserID == "" || id.OrgID == "" || id.OrgSlug == "" {
		return ErrForbidden
	}
	return nil
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by the middleware. ok is false when
// the request never passed authentication.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
