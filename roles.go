package authcore

// RoleValidator defines the interface for role-based access control validation
type RoleValidator interface {
	// CanManageAccounts checks if the role may provision, suspend, or delete accounts
	CanManageAccounts() bool

	// HasRole checks if the principal has a specific role
	HasRole(role string) bool

	// IsAtLeast checks if the principal's role is at least the minimum required role
	IsAtLeast(minRole AccountRole) bool
}

// IsValid checks if the role is one of the predefined valid roles
func roleIsValid(r AccountRole) bool {
	switch r {
	case RoleStandard, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleCanManageAccounts reports whether a role grants account administration.
func RoleCanManageAccounts(r AccountRole) bool {
	return r == RoleAdmin
}

// RoleIsAtLeast checks if a role meets the minimum required level
func RoleIsAtLeast(r, minRole AccountRole) bool {
	roleHierarchy := map[AccountRole]int{
		RoleStandard: 0,
		RoleAdmin:    1,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []AccountRole {
	return []AccountRole{
		RoleStandard,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into an AccountRole
func ParseRole(roleStr string) (AccountRole, bool) {
	role := AccountRole(roleStr)
	return role, roleIsValid(role)
}
