// Package access holds the concrete authorization and attribute
// whitelisting collaborators used by the update workflow.
package access

import (
	"context"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

// Wildcard grants every permission.
const Wildcard = "*"

// UpdatePermission returns the permission needed to update kind.
func UpdatePermission(kind string) string {
	return kind + ":update"
}

// Policy authorizes updates by permission. An actor may update an entity
// when it holds "<kind>:update" or the wildcard, and, when TenantField
// is set, when the entity's value in that field equals the actor's
// TenantID.
type Policy struct {
	TenantField string
}

var _ update.Authorizer[*record.Entity] = Policy{}

// CanUpdate implements update.Authorizer.
func (p Policy) CanUpdate(_ context.Context, e *record.Entity, actor update.Actor) bool {
	if !actor.HasPermission(UpdatePermission(e.Kind())) {
		return false
	}
	if p.TenantField == "" {
		return true
	}
	v, _ := e.Field(p.TenantField)
	tenant, ok := v.(value.String)
	return ok && string(tenant) == actor.TenantID
}

// Writable reports whether a field accepts proposed values.
// *schema.Kind implements it.
type Writable interface {
	Writable(name string) bool
}

// Whitelist filters raw input down to the fields a kind accepts,
// keeping input order. It returns the accepted attributes and the
// names it dropped, in input order.
func Whitelist(kind Writable, raw record.Attributes) (record.Attributes, []string) {
	var allowed record.Attributes
	dropped := []string{}
	for _, key := range raw.Keys() {
		if !kind.Writable(key) {
			dropped = append(dropped, key)
			continue
		}
		v, _ := raw.Get(key)
		allowed.Set(key, v)
	}
	return allowed, dropped
}
