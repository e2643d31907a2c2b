package domain

import "time"

// UserRole enumerates access levels for internal users.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleCSAdmin    UserRole = "CS_ADMIN"
	RoleAgent      UserRole = "AGENT"
	RoleViewer     UserRole = "VIEWER"
)

// UserStatus enumerates account states.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is an internal operator (admin or support agent).
type User struct {
	ID           string
	CompanyID    *string
	DepartmentID *string
	TeamID       *string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
