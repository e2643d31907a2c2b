package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateCompanyRequest payload for tenant registration.
type CreateCompanyRequest struct {
	Name  string `json:"name" validate:"required"`
	Code  string `json:"code" validate:"required,alphanum,max=32"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// UpdateCompanyRequest payload for partial tenant updates.
type UpdateCompanyRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

// CompanyResponse is the public tenant shape.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCompanyResponse maps a company to its response shape.
func NewCompanyResponse(company *domain.Company) CompanyResponse {
	return CompanyResponse{
		ID:        company.ID,
		Name:      company.Name,
		Code:      company.Code,
		Email:     company.Email,
		Phone:     company.Phone,
		IsActive:  company.IsActive,
		CreatedAt: company.CreatedAt,
	}
}

// CreateDepartmentRequest payload for department creation.
type CreateDepartmentRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateDepartmentRequest payload for partial department updates.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// DepartmentResponse is the public department shape.
type DepartmentResponse struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDepartmentResponse maps a department to its response shape.
func NewDepartmentResponse(dept *domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:          dept.ID,
		CompanyID:   dept.CompanyID,
		Name:        dept.Name,
		Description: dept.Description,
		IsActive:    dept.IsActive,
		CreatedAt:   dept.CreatedAt,
	}
}

// CreateTeamRequest payload for team creation.
type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateTeamRequest payload for partial team updates.
type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// TeamResponse is the public team shape.
type TeamResponse struct {
	ID           string    `json:"id"`
	DepartmentID string    `json:"department_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTeamResponse maps a team to its response shape.
func NewTeamResponse(team *domain.Team) TeamResponse {
	return TeamResponse{
		ID:           team.ID,
		DepartmentID: team.DepartmentID,
		Name:         team.Name,
		Description:  team.Description,
		IsActive:     team.IsActive,
		CreatedAt:    team.CreatedAt,
	}
}
