package enums

import "fmt"

// UserRole describes the access role attached to an account.
type UserRole string

const (
	UserRoleCustomer   UserRole = "customer"
	UserRoleStoreOwner UserRole = "store_owner"
	UserRoleAdmin      UserRole = "admin"
	UserRoleDelivery   UserRole = "delivery"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleStoreOwner,
	UserRoleAdmin,
	UserRoleDelivery,
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

// ParseUserRole converts the raw string to UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
