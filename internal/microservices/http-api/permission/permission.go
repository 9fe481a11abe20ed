// Package permission holds the access rules for every resource. All rules are
// pure functions of the caller, the operation class and, for object-level
// rules, the owner of the target.
package permission

import (
	"net/http"

	"reviewhub/internal/microservices/http-api/models"
)

// Operation is the class of a request: safe reads or unsafe writes.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
)

func (op Operation) String() string {
	if op == OpRead {
		return "read"
	}
	return "write"
}

// OperationFromMethod classifies an HTTP method. GET, HEAD and OPTIONS are safe.
func OperationFromMethod(method string) Operation {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return OpRead
	}
	return OpWrite
}

// Caller is the identity a request acts as. The zero value is anonymous.
type Caller struct {
	UserID   string
	Username string
	Role     models.Role
	IsStaff  bool
}

// Anonymous is the caller of a request without credentials.
var Anonymous = Caller{}

// CallerFromUser builds a caller from a stored user record.
func CallerFromUser(u *models.User) Caller {
	return Caller{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		IsStaff:  u.IsStaff,
	}
}

func (c Caller) Authenticated() bool {
	return c.UserID != ""
}

// IsAdmin is true iff the caller is authenticated and has the admin role or the staff flag.
func (c Caller) IsAdmin() bool {
	return c.Authenticated() && (c.Role == models.RoleAdmin || c.IsStaff)
}

func (c Caller) IsModerator() bool {
	return c.Authenticated() && c.Role == models.RoleModerator
}

// Decision is the outcome of a rule.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny:unauthenticated"
	default:
		return "deny:forbidden"
	}
}

// Rule is a collection-level rule.
type Rule func(c Caller, op Operation) Decision

// Authenticated allows any identified caller for any operation.
func Authenticated(c Caller, _ Operation) Decision {
	if !c.Authenticated() {
		return DenyUnauthenticated
	}
	return Allow
}

// IsAdmin allows admins and staff for any operation.
func IsAdmin(c Caller, _ Operation) Decision {
	if !c.Authenticated() {
		return DenyUnauthenticated
	}
	if !c.IsAdmin() {
		return DenyForbidden
	}
	return Allow
}

// IsAdminOrReadOnly allows every read and admin writes.
func IsAdminOrReadOnly(c Caller, op Operation) Decision {
	if op == OpRead {
		return Allow
	}
	return IsAdmin(c, op)
}

// IsAuthenticatedOrReadOnly allows every read and writes by identified callers.
func IsAuthenticatedOrReadOnly(c Caller, op Operation) Decision {
	if op == OpRead {
		return Allow
	}
	return Authenticated(c, op)
}

// IsAuthorOrStaffOrReadOnly is the object-level rule for reviews and comments.
// Writes need authorship, the moderator role or admin rights.
func IsAuthorOrStaffOrReadOnly(c Caller, op Operation, ownerID string) Decision {
	if op == OpRead {
		return Allow
	}
	if !c.Authenticated() {
		return DenyUnauthenticated
	}
	if c.UserID == ownerID || c.IsModerator() || c.IsAdmin() {
		return Allow
	}
	return DenyForbidden
}

// All combines rules; the first denial wins.
func All(rules ...Rule) Rule {
	return func(c Caller, op Operation) Decision {
		for _, rule := range rules {
			if d := rule(c, op); !d.Allowed() {
				return d
			}
		}
		return Allow
	}
}
