package enums

import "fmt"

// UserRole is the organization-level role carried in access tokens.
type UserRole string

const (
	RoleOwner          UserRole = "OWNER"
	RoleAdmin          UserRole = "ADMIN"
	RoleCentralManager UserRole = "CENTRAL_MANAGER"
	RoleCentralStaff   UserRole = "CENTRAL_STAFF"
	RoleOutletManager  UserRole = "OUTLET_MANAGER"
	RoleCashier        UserRole = "CASHIER"
)

var validUserRoles = []UserRole{
	RoleOwner,
	RoleAdmin,
	RoleCentralManager,
	RoleCentralStaff,
	RoleOutletManager,
	RoleCashier,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
