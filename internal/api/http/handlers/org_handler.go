package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// OrgHandler exposes tenant hierarchy management: companies, departments, teams.
type OrgHandler struct {
	org *service.OrgService
}

// NewOrgHandler constructs handler.
func NewOrgHandler(orgService *service.OrgService) *OrgHandler {
	return &OrgHandler{org: orgService}
}

// CreateCompany handles POST /companies.
func (h *OrgHandler) CreateCompany(c *fiber.Ctx) error {
	var req dto.CreateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	company, err := h.org.CreateCompany(c.Context(), service.CreateCompanyInput{
		Name:  req.Name,
		Code:  req.Code,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

// GetCompany handles GET /companies/:id.
func (h *OrgHandler) GetCompany(c *fiber.Ctx) error {
	company, err := h.org.GetCompany(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

// ListCompanies handles GET /companies.
func (h *OrgHandler) ListCompanies(c *fiber.Ctx) error {
	companies, err := h.org.ListCompanies(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		items = append(items, dto.NewCompanyResponse(&companies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateCompany handles PATCH /companies/:id.
func (h *OrgHandler) UpdateCompany(c *fiber.Ctx) error {
	var req dto.UpdateCompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	company, err := h.org.UpdateCompany(c.Context(), c.Params("id"), service.UpdateCompanyInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

// CreateDepartment handles POST /companies/:id/departments.
func (h *OrgHandler) CreateDepartment(c *fiber.Ctx) error {
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dept, err := h.org.CreateDepartment(c.Context(), service.CreateDepartmentInput{
		CompanyID:   c.Params("id"),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// ListDepartments handles GET /companies/:id/departments.
func (h *OrgHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.org.ListDepartments(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for i := range departments {
		items = append(items, dto.NewDepartmentResponse(&departments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateDepartment handles PATCH /departments/:id.
func (h *OrgHandler) UpdateDepartment(c *fiber.Ctx) error {
	var req dto.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dept, err := h.org.UpdateDepartment(c.Context(), c.Params("id"), service.UpdateDepartmentInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDepartmentResponse(dept)})
}

// CreateTeam handles POST /departments/:id/teams.
func (h *OrgHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	team, err := h.org.CreateTeam(c.Context(), service.CreateTeamInput{
		DepartmentID: c.Params("id"),
		Name:         req.Name,
		Description:  req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTeamResponse(team)})
}

// ListTeams handles GET /departments/:id/teams.
func (h *OrgHandler) ListTeams(c *fiber.Ctx) error {
	teams, err := h.org.ListTeams(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, dto.NewTeamResponse(&teams[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateTeam handles PATCH /teams/:id.
func (h *OrgHandler) UpdateTeam(c *fiber.Ctx) error {
	var req dto.UpdateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	team, err := h.org.UpdateTeam(c.Context(), c.Params("id"), service.UpdateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTeamResponse(team)})
}
