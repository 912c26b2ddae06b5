package update

import (
	"context"

	"github.com/roach88/revise/internal/record"
)

// Actor identifies who is asking for an update.
type Actor struct {
	UserID      string   `json:"user_id"`
	TenantID    string   `json:"tenant_id,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasPermission reports whether the actor holds perm or the "*" wildcard.
func (a Actor) HasPermission(perm string) bool {
	for _, p := range a.Permissions {
		if p == perm || p == "*" {
			return true
		}
	}
	return false
}

// Authorizer decides whether actor may update rec. Every workflow must
// have one; there is no permissive default.
type Authorizer[R record.Record] interface {
	CanUpdate(ctx context.Context, rec R, actor Actor) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc[R record.Record] func(ctx context.Context, rec R, actor Actor) bool

// CanUpdate implements Authorizer.
func (f AuthorizerFunc[R]) CanUpdate(ctx context.Context, rec R, actor Actor) bool {
	return f(ctx, rec, actor)
}
