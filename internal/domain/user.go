// Package domain contains core domain models.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Role is the account role. Roles are stored but do not gate any behavior.
type Role string

// Account roles.
const (
	RoleOrdinary      Role = "ordinary"
	RoleAdministrator Role = "administrator"
	RoleSeller        Role = "seller"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOrdinary, RoleAdministrator, RoleSeller:
		return true
	}
	return false
}

// ParseRole returns the canonical role for name, ignoring case. The aliases
// "user" and "admin" map to RoleOrdinary and RoleAdministrator. An empty
// name stays empty; unknown names come back lowercased and fail IsValid.
func ParseRole(name string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(name))); r {
	case "user":
		return RoleOrdinary
	case "admin":
		return RoleAdministrator
	default:
		return r
	}
}

// User is a storefront account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

// NormalizeEmail returns the canonical form of an email address used for
// storage and lookup. A Caser is stateful, so one is created per call.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}
