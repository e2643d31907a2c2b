package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SLAHandler exposes SLA policy management and breach reporting.
type SLAHandler struct {
	slas *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{slas: slaService}
}

type slaPolicyRequest struct {
	CompanyID       string `json:"company_id" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Priority        string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	ResponseHours   int    `json:"response_hours" validate:"required,min=1"`
	ResolutionHours int    `json:"resolution_hours" validate:"required,min=1"`
}

type slaPolicyResponse struct {
	ID              string                `json:"id"`
	CompanyID       string                `json:"company_id"`
	Name            string                `json:"name"`
	Priority        domain.TicketPriority `json:"priority"`
	ResponseHours   int                   `json:"response_hours"`
	ResolutionHours int                   `json:"resolution_hours"`
	IsActive        bool                  `json:"is_active"`
}

func newSLAPolicyResponse(policy *domain.SLAPolicy) slaPolicyResponse {
	return slaPolicyResponse{
		ID:              policy.ID,
		CompanyID:       policy.CompanyID,
		Name:            policy.Name,
		Priority:        policy.Priority,
		ResponseHours:   policy.ResponseHours,
		ResolutionHours: policy.ResolutionHours,
		IsActive:        policy.IsActive,
	}
}

// Create handles POST /sla/policies.
func (h *SLAHandler) Create(c *fiber.Ctx) error {
	var req slaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	policy, err := h.slas.CreatePolicy(c.Context(), &domain.SLAPolicy{
		CompanyID:       req.CompanyID,
		Name:            req.Name,
		Priority:        domain.TicketPriority(req.Priority),
		ResponseHours:   req.ResponseHours,
		ResolutionHours: req.ResolutionHours,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": newSLAPolicyResponse(policy)})
}

// List handles GET /sla/policies?company_id=...
func (h *SLAHandler) List(c *fiber.Ctx) error {
	companyID := c.Query("company_id")
	if companyID == "" {
		return apperrors.NewValidationError("company_id query parameter required", nil)
	}
	policies, err := h.slas.ListPolicies(c.Context(), companyID)
	if err != nil {
		return err
	}
	items := make([]slaPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, newSLAPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Breaches handles GET /sla/breaches?company_id=...
func (h *SLAHandler) Breaches(c *fiber.Ctx) error {
	companyID := c.Query("company_id")
	if companyID == "" {
		return apperrors.NewValidationError("company_id query parameter required", nil)
	}
	breaches, err := h.slas.ListBreaches(c.Context(), companyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": breaches})
}
