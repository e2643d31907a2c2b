package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateUserRequest payload for admin-driven account creation.
type CreateUserRequest struct {
	CompanyID    *string `json:"company_id"`
	DepartmentID *string `json:"department_id"`
	TeamID       *string `json:"team_id"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	FirstName    string  `json:"first_name" validate:"required"`
	LastName     string  `json:"last_name"`
	Role         string  `json:"role" validate:"omitempty,oneof=SUPER_ADMIN CS_ADMIN AGENT VIEWER"`
}

// UpdateUserRequest payload for partial profile updates.
type UpdateUserRequest struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	DepartmentID *string `json:"department_id"`
	TeamID       *string `json:"team_id"`
	Role         *string `json:"role" validate:"omitempty,oneof=SUPER_ADMIN CS_ADMIN AGENT VIEWER"`
	Status       *string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
}

// UserResponse is the public account shape; the password hash never leaves
// the service.
type UserResponse struct {
	ID           string            `json:"id"`
	CompanyID    *string           `json:"company_id,omitempty"`
	DepartmentID *string           `json:"department_id,omitempty"`
	TeamID       *string           `json:"team_id,omitempty"`
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name"`
	LastName     string            `json:"last_name"`
	Role         domain.UserRole   `json:"role"`
	Status       domain.UserStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// NewUserResponse maps a user to its response shape.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		CompanyID:    user.CompanyID,
		DepartmentID: user.DepartmentID,
		TeamID:       user.TeamID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         user.Role,
		Status:       user.Status,
		CreatedAt:    user.CreatedAt,
	}
}
