package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// OrgService manages the tenant hierarchy: companies, their departments and
// the teams under each department.
type OrgService struct {
	companies   repository.CompanyRepository
	departments repository.DepartmentRepository
	teams       repository.TeamRepository
}

// OrgDependencies bundles requirements for the org service.
type OrgDependencies struct {
	CompanyRepo    repository.CompanyRepository
	DepartmentRepo repository.DepartmentRepository
	TeamRepo       repository.TeamRepository
}

// NewOrgService builds the service.
func NewOrgService(deps OrgDependencies) *OrgService {
	return &OrgService{
		companies:   deps.CompanyRepo,
		departments: deps.DepartmentRepo,
		teams:       deps.TeamRepo,
	}
}

// CreateCompanyInput captures tenant registration fields.
type CreateCompanyInput struct {
	Name  string
	Code  string
	Email string
	Phone string
}

// CreateCompany registers a tenant. The code is the stable external handle
// and must be unique.
func (s *OrgService) CreateCompany(ctx context.Context, input CreateCompanyInput) (*domain.Company, error) {
	if _, err := s.companies.GetByCode(ctx, input.Code); err == nil {
		return nil, apperrors.NewConflict("company code already in use", map[string]any{"code": input.Code})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	company := &domain.Company{
		Name:     input.Name,
		Code:     input.Code,
		Email:    input.Email,
		Phone:    input.Phone,
		IsActive: true,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// GetCompany loads one tenant.
func (s *OrgService) GetCompany(ctx context.Context, companyID string) (*domain.Company, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("company", map[string]any{"company_id": companyID})
		}
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// ListCompanies returns the active tenants.
func (s *OrgService) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	companies, err := s.companies.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return companies, nil
}

// UpdateCompanyInput captures mutable tenant fields.
type UpdateCompanyInput struct {
	Name     *string
	Email    *string
	Phone    *string
	IsActive *bool
}

// UpdateCompany applies a partial tenant update. The code is immutable.
func (s *OrgService) UpdateCompany(ctx context.Context, companyID string, input UpdateCompanyInput) (*domain.Company, error) {
	company, err := s.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		company.Name = *input.Name
	}
	if input.Email != nil {
		company.Email = *input.Email
	}
	if input.Phone != nil {
		company.Phone = *input.Phone
	}
	if input.IsActive != nil {
		company.IsActive = *input.IsActive
	}
	if err := s.companies.Update(ctx, company); err != nil {
		return nil, apperrors.MapError(err)
	}
	return company, nil
}

// CreateDepartmentInput captures department creation fields.
type CreateDepartmentInput struct {
	CompanyID   string
	Name        string
	Description string
}

// CreateDepartment adds a department under an active company.
func (s *OrgService) CreateDepartment(ctx context.Context, input CreateDepartmentInput) (*domain.Department, error) {
	company, err := s.GetCompany(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, apperrors.NewConflict("company is inactive", map[string]any{"company_id": company.ID})
	}

	dept := &domain.Department{
		CompanyID:   input.CompanyID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// ListDepartments returns a company's active departments.
func (s *OrgService) ListDepartments(ctx context.Context, companyID string) ([]domain.Department, error) {
	departments, err := s.departments.ListActiveByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return departments, nil
}

// UpdateDepartmentInput captures mutable department fields.
type UpdateDepartmentInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// UpdateDepartment applies a partial department update.
func (s *OrgService) UpdateDepartment(ctx context.Context, departmentID string, input UpdateDepartmentInput) (*domain.Department, error) {
	dept, err := s.getDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		dept.Name = *input.Name
	}
	if input.Description != nil {
		dept.Description = *input.Description
	}
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}
	if err := s.departments.Update(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}

// CreateTeamInput captures team creation fields.
type CreateTeamInput struct {
	DepartmentID string
	Name         string
	Description  string
}

// CreateTeam adds a team under an active department.
func (s *OrgService) CreateTeam(ctx context.Context, input CreateTeamInput) (*domain.Team, error) {
	dept, err := s.getDepartment(ctx, input.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !dept.IsActive {
		return nil, apperrors.NewConflict("department is inactive", map[string]any{"department_id": dept.ID})
	}

	team := &domain.Team{
		DepartmentID: input.DepartmentID,
		Name:         input.Name,
		Description:  input.Description,
		IsActive:     true,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// ListTeams returns a department's active teams.
func (s *OrgService) ListTeams(ctx context.Context, departmentID string) ([]domain.Team, error) {
	teams, err := s.teams.ListActiveByDepartment(ctx, departmentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}

// UpdateTeamInput captures mutable team fields.
type UpdateTeamInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// UpdateTeam applies a partial team update.
func (s *OrgService) UpdateTeam(ctx context.Context, teamID string, input UpdateTeamInput) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, apperrors.MapError(err)
	}
	if input.Name != nil {
		team.Name = *input.Name
	}
	if input.Description != nil {
		team.Description = *input.Description
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

func (s *OrgService) getDepartment(ctx context.Context, departmentID string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": departmentID})
		}
		return nil, apperrors.MapError(err)
	}
	return dept, nil
}
