// Package auth implements the role/ownership gate applied before every
// balance-mutating operation. Handlers resolve a Principal from the JWT
// claims injected by the middleware and call Authorize before touching
// any mutable state, so the existence of another user's records never
// leaks through side effects.
package auth

import (
	"errors"

	"github.com/iliyamo/train-fare-settlement/internal/model"
)

// ErrForbidden is returned when the principal's role is not in the
// allowed set or when a user-role principal targets a resource owned by
// someone else. Handlers translate it into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// Principal is the authenticated actor: its user id and role as decoded
// from the access token. Signature mechanics live in the middleware; the
// core only consumes the (id, role) pair.
type Principal struct {
	ID   uint64
	Role string
}

// Authorize checks that the principal's role intersects allowed. When the
// "user" role is allowed and the principal is a user, the principal must
// additionally own the resource (ID == ownerID); admins bypass the
// ownership check.
func Authorize(p Principal, allowed []string, ownerID uint64) error {
	ok := false
	for _, r := range allowed {
		if p.Role == r {
			ok = true
			break
		}
	}
	if !ok {
		return ErrForbidden
	}
	if p.Role == model.RoleUser && p.ID != ownerID {
		return ErrForbidden
	}
	return nil
}

// AuthorizeRole is Authorize without an ownership scope, for resources
// that are not owned by a user (trains, stations, travels).
func AuthorizeRole(p Principal, allowed []string) error {
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return ErrForbidden
}
