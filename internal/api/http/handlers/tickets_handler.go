package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages ticket endpoints for operators.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	_, actor, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.Context(), service.CreateTicketInput{
		CompanyID:    req.CompanyID,
		CustomerID:   req.CustomerID,
		DepartmentID: req.DepartmentID,
		TeamID:       req.TeamID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         domain.TicketType(req.Type),
		Priority:     domain.TicketPriority(req.Priority),
		Source:       domain.TicketSourceManual,
		Actor:        actor,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	if _, _, err := requirePrincipal(c); err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.Context(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	if _, _, err := requirePrincipal(c); err != nil {
		return err
	}
	ticket, comments, err := h.tickets.GetTicket(c.Context(), c.Params("id"), true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket, comments)})
}

// UpdateStatus handles PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	_, actor, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateStatus(c.Context(), c.Params("id"), domain.TicketStatus(req.Status), actor, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Assign handles POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	_, actor, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var ticket *domain.Ticket
	switch {
	case req.AssigneeUserID != nil && req.TeamID != nil:
		return apperrors.NewValidationError("assignee_user_id and team_id are mutually exclusive", nil)
	case req.AssigneeUserID != nil:
		ticket, err = h.tickets.AssignTicket(c.Context(), c.Params("id"), *req.AssigneeUserID, actor)
	case req.TeamID != nil:
		ticket, err = h.tickets.AssignToTeam(c.Context(), c.Params("id"), *req.TeamID, actor)
	default:
		return apperrors.NewValidationError("assignee_user_id or team_id required", nil)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// SelfAssign handles POST /tickets/:id/assign/self.
func (h *TicketsHandler) SelfAssign(c *fiber.Ctx) error {
	principal, actor, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.AssignTicket(c.Context(), c.Params("id"), principal.User.ID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// AddComment handles POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	_, actor, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.tickets.AddComment(c.Context(), c.Params("id"), actor, req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketCommentResponse{
		ID:         comment.ID,
		AuthorType: comment.AuthorType,
		AuthorID:   comment.AuthorID,
		Content:    comment.Content,
		IsInternal: comment.IsInternal,
		CreatedAt:  comment.CreatedAt,
	}})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, events.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, events.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal, events.Actor{Type: domain.CommentAuthorUser, UserID: &principal.User.ID}, nil
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if companyID := c.Query("company_id"); companyID != "" {
		filter.CompanyID = &companyID
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		filter.CustomerID = &customerID
	}
	if channelID := c.Query("channel_id"); channelID != "" {
		filter.ChannelID = &channelID
	}
	if assigneeID := c.Query("assignee_user_id"); assigneeID != "" {
		filter.AssigneeID = &assigneeID
	}
	if teamID := c.Query("team_id"); teamID != "" {
		filter.TeamID = &teamID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if typeStr := c.Query("type"); typeStr != "" {
		for _, part := range strings.Split(typeStr, ",") {
			filter.Types = append(filter.Types, domain.TicketType(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))

	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
