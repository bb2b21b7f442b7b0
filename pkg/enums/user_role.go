package enums

import "fmt"

// UserRole represents the caller's permission level.
type UserRole string

const (
	UserRoleUser          UserRole = "user"
	UserRoleAdmin         UserRole = "admin"
	UserRoleSchoolManager UserRole = "school_manager"
	UserRoleSuperAdmin    UserRole = "super_admin"
)

var validUserRoles = []UserRole{
	UserRoleUser,
	UserRoleAdmin,
	UserRoleSchoolManager,
	UserRoleSuperAdmin,
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

// IsElevated reports whether the role may act on requests it does not own.
func (u UserRole) IsElevated() bool {
	switch u {
	case UserRoleAdmin, UserRoleSchoolManager, UserRoleSuperAdmin:
		return true
	default:
		return false
	}
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
