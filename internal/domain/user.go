package domain

import (
	"strings"
	"time"
)

// Role enumerates the closed set of operator roles.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleCustomerSupport Role = "customer_support"
	RoleTechnical       Role = "technical"
)

// Roles returns all valid roles, for validation and metadata endpoints.
func Roles() []Role {
	return []Role{RoleAdmin, RoleCustomerSupport, RoleTechnical}
}

// ValidRole reports whether r is a member of the closed role set.
func ValidRole(r Role) bool {
	for _, candidate := range Roles() {
		if candidate == r {
			return true
		}
	}
	return false
}

// User is the identity record for support and technical staff.
type User struct {
	ID             int64
	EmployeeID     *string
	Email          *string
	PasswordHash   string
	FirstName      *string
	LastName       *string
	PhoneNumber    *string
	Avatar         *string
	WorkExperience *string
	Role           Role
	Active         bool
	LastLogin      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName composes the display name from the name parts, falling back to
// "Unknown" when both are empty.
func (u *User) FullName() string {
	first := ""
	if u.FirstName != nil {
		first = *u.FirstName
	}
	last := ""
	if u.LastName != nil {
		last = *u.LastName
	}
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		return "Unknown"
	}
	return name
}
