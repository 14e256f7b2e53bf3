package enums

import "fmt"

// UserRole scopes what an authenticated caller may do.
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleVendor UserRole = "vendor"
	UserRoleUser   UserRole = "user"
)

var validUserRoleValues = []UserRole{
	UserRoleAdmin,
	UserRoleVendor,
	UserRoleUser,
}

// String implements fmt.Stringer.
func (s UserRole) String() string {
	return string(s)
}

// IsValid reports whether the value is a known UserRole.
func (s UserRole) IsValid() bool {
	for _, candidate := range validUserRoleValues {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoleValues {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
