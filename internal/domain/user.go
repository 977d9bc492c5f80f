package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the coarse-grained permission level attached to a user and to
// every session. Ordering matters: admin > member > guest.
type Role string

const (
	// RoleGuest is never persisted; it is the default for anonymous sessions.
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Satisfies reports whether a holder of role r may perform an action
// gated on the required role.
func (r Role) Satisfies(required Role) bool {
	return r.rank() >= required.rank()
}

// ParseRole maps a stored role string onto the known enumeration.
func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleGuest:
		return RoleGuest, nil
	case RoleMember:
		return RoleMember, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return RoleGuest, fmt.Errorf("unknown role %q", value)
}

// User is a registered account. Guests have no User record.
type User struct {
	ID           int64
	Email        string
	Name         string
	Affiliation  string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email address so uniqueness
// checks are case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
