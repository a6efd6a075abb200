// Package user registers guest and host accounts and answers the
// synchronous lookups other services make against the account base. Every
// registration is announced on the bus so downstream projections can build
// their own copies of the contact data.
package user

import (
	"strconv"
	"strings"
	"time"
)

// Role says whether an account books dinners or hosts them.
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleHost  Role = "HOST"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleGuest, RoleHost:
		return Role(s), true
	}
	return "", false
}

// User is a registered account. PasswordHash never leaves this package.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
