// Package access decides whether a principal may perform an operation.
//
// Reads are open to everyone; writes need an authenticated principal that is
// staff or holds the treasury capability. Account administration is narrower:
// its writes need staff. The predicates are pure: no I/O, no errors, no
// panics on zero values.
package access

import (
	"net/http"

	"github.com/sgics/sgics/internal/server/models"
)

// Principal is the caller as seen by the access predicate. The zero value is
// the anonymous caller.
type Principal struct {
	UserID        string
	Authenticated bool
	IsStaff       bool
	IsTreasurer   bool
}

// Anonymous is the principal of a request without valid credentials.
var Anonymous = Principal{}

// FromUser maps a stored account to a principal. Inactive or missing
// accounts are anonymous; a NULL treasury flag is false.
func FromUser(u *models.User) Principal {
	if u == nil || !u.IsActive {
		return Anonymous
	}
	return Principal{
		UserID:        u.ID,
		Authenticated: true,
		IsStaff:       u.IsStaff,
		IsTreasurer:   u.Treasurer(),
	}
}

// Operation is the kind of access requested.
type Operation int

const (
	// Safe operations only read: list, retrieve.
	Safe Operation = iota
	// Unsafe operations change state: create, update, delete.
	Unsafe
)

func (o Operation) String() string {
	if o == Safe {
		return "safe"
	}
	return "unsafe"
}

// Classify maps an HTTP method to an Operation. GET, HEAD and OPTIONS are
// safe; every other method, including unknown ones, is unsafe.
func Classify(method string) Operation {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return Safe
	default:
		return Unsafe
	}
}

// Authorize reports whether p may perform op.
func Authorize(p Principal, op Operation) bool {
	if op == Safe {
		return true
	}
	return p.Authenticated && (p.IsStaff || p.IsTreasurer)
}

// AuthorizeObject is the object-level check run after the target row has
// been loaded. There is no ownership exception: it reapplies Authorize.
func AuthorizeObject(p Principal, op Operation, _ any) bool {
	return Authorize(p, op)
}

// AuthorizeAdmin is Authorize for account administration. The treasury
// capability covers domain records only, so writes here need staff.
func AuthorizeAdmin(p Principal, op Operation) bool {
	if op == Safe {
		return true
	}
	return p.Authenticated && p.IsStaff
}

// AuthorizeAccount is AuthorizeObject for a loaded account. On top of the
// object rule, writes need staff and cannot target the caller's own account.
func AuthorizeAccount(p Principal, op Operation, target *models.User) bool {
	if !AuthorizeObject(p, op, target) || !AuthorizeAdmin(p, op) {
		return false
	}
	if op == Safe || target == nil {
		return true
	}
	return target.ID != p.UserID
}
