package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// allowedTransitions defines the legal ticket status graph. DONE can be
// reopened back to PROCESS; CLOSED and CANCELLED are final.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusWait:      {domain.TicketStatusProcess, domain.TicketStatusDone, domain.TicketStatusCancelled},
	domain.TicketStatusProcess:   {domain.TicketStatusWait, domain.TicketStatusDone, domain.TicketStatusCancelled},
	domain.TicketStatusDone:      {domain.TicketStatusProcess, domain.TicketStatusClosed},
	domain.TicketStatusClosed:    {},
	domain.TicketStatusCancelled: {},
}

func isValidTransition(from, to domain.TicketStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TicketService owns the ticket lifecycle: creation, status moves, comments
// and assignment.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.TicketCommentRepository
	customers  repository.CustomerRepository
	users      repository.UserRepository
	teams      repository.TeamRepository
	slas       repository.SLARepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CommentRepo  repository.TicketCommentRepository
	CustomerRepo repository.CustomerRepository
	UserRepo     repository.UserRepository
	TeamRepo     repository.TeamRepository
	SLARepo      repository.SLARepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewTicketService creates the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		customers:  deps.CustomerRepo,
		users:      deps.UserRepo,
		teams:      deps.TeamRepo,
		slas:       deps.SLARepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicketInput captures ticket creation fields.
type CreateTicketInput struct {
	CompanyID    string
	CustomerID   string
	ChannelID    *string
	DepartmentID *string
	TeamID       *string
	Title        string
	Description  string
	Type         domain.TicketType
	Priority     domain.TicketPriority
	Source       domain.TicketSource
	Actor        events.Actor
}

// CreateTicket persists a new ticket, stamps SLA deadlines for the priority
// and publishes ticket_created.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	customer, err := s.customers.GetByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": input.CustomerID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if input.Type == "" {
		input.Type = domain.TicketTypeInquiry
	}
	if input.Source == "" {
		input.Source = domain.TicketSourceManual
	}

	ticket := &domain.Ticket{
		TicketNumber: newTicketNumber(input.Source),
		CompanyID:    input.CompanyID,
		CustomerID:   customer.ID,
		ChannelID:    input.ChannelID,
		DepartmentID: input.DepartmentID,
		TeamID:       input.TeamID,
		Title:        input.Title,
		Description:  input.Description,
		Type:         input.Type,
		Source:       input.Source,
		Status:       domain.TicketStatusWait,
		Priority:     input.Priority,
	}
	s.applySLA(ctx, ticket)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    input.Actor,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			CustomerID:   ticket.CustomerID,
			Source:       ticket.Source,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket loads a ticket with its comment thread.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string, includeInternal bool) (*domain.Ticket, []domain.TicketComment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, includeInternal)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, nil
}

// ListTickets applies the filter and returns matching tickets.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus moves a ticket along the lifecycle graph.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actor events.Actor, comment string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status == newStatus {
		return ticket, nil
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict(
			fmt.Sprintf("cannot transition ticket from %s to %s", ticket.Status, newStatus),
			map[string]any{"from": ticket.Status, "to": newStatus},
		)
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	now := time.Now()
	if newStatus == domain.TicketStatusDone && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = &now
	}
	if newStatus == domain.TicketStatusProcess {
		ticket.ResolvedAt = nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if comment != "" {
		statusComment := &domain.TicketComment{
			TicketID:   ticket.ID,
			AuthorType: actor.Type,
			AuthorID:   actor.UserID,
			Content:    comment,
			IsInternal: true,
		}
		if err := s.comments.Create(ctx, statusComment); err != nil {
			s.logger.Warn("failed to record status comment", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// AssignTicket sets the assignee. WAIT tickets move to PROCESS on assignment.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, assigneeUserID string, actor events.Actor) (*domain.Ticket, error) {
	assignee, err := s.users.GetByID(ctx, assigneeUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": assigneeUserID})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Status != domain.UserStatusActive {
		return nil, apperrors.NewConflict("assignee is not active", map[string]any{"user_id": assigneeUserID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}

	ticket.AssigneeID = &assignee.ID
	if assignee.TeamID != nil {
		ticket.TeamID = assignee.TeamID
	}
	if assignee.DepartmentID != nil {
		ticket.DepartmentID = assignee.DepartmentID
	}
	if ticket.Status == domain.TicketStatusWait {
		ticket.Status = domain.TicketStatusProcess
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketAssignedPayload{
			AssigneeUserID: ticket.AssigneeID,
			TeamID:         ticket.TeamID,
		},
	})
	return ticket, nil
}

// AssignToTeam routes a ticket to a team and clears the assignee.
func (s *TicketService) AssignToTeam(ctx context.Context, ticketID, teamID string, actor events.Actor) (*domain.Ticket, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, apperrors.MapError(err)
	}
	if !team.IsActive {
		return nil, apperrors.NewConflict("team is inactive", map[string]any{"team_id": teamID})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}

	ticket.TeamID = &team.ID
	ticket.DepartmentID = &team.DepartmentID
	ticket.AssigneeID = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketAssignedPayload{
			AssigneeUserID: nil,
			TeamID:         ticket.TeamID,
		},
	})
	return ticket, nil
}

// AddComment appends to the ticket thread. The first public agent reply
// stamps the ticket's first-response time.
func (s *TicketService) AddComment(ctx context.Context, ticketID string, actor events.Actor, content string, isInternal bool) (*domain.TicketComment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Status == domain.TicketStatusClosed || ticket.Status == domain.TicketStatusCancelled {
		return nil, apperrors.NewConflict("ticket is closed", map[string]any{"status": ticket.Status})
	}

	comment := &domain.TicketComment{
		TicketID:   ticket.ID,
		AuthorType: actor.Type,
		AuthorID:   actor.UserID,
		Content:    content,
		IsInternal: isInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if actor.Type == domain.CommentAuthorUser && !isInternal && ticket.FirstRespondedAt == nil {
		now := time.Now()
		ticket.FirstRespondedAt = &now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			s.logger.Warn("failed to stamp first response", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorType:  comment.AuthorType,
			AuthorID:    comment.AuthorID,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

func (s *TicketService) applySLA(ctx context.Context, ticket *domain.Ticket) {
	policy, err := s.slas.GetForPriority(ctx, ticket.CompanyID, ticket.Priority)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("failed to load SLA policy",
				zap.String("company_id", ticket.CompanyID),
				zap.String("priority", string(ticket.Priority)),
				zap.Error(err))
		}
		return
	}
	now := time.Now()
	responseDue := policy.ResponseDue(now)
	resolutionDue := policy.ResolutionDue(now)
	ticket.ResponseDueAt = &responseDue
	ticket.ResolutionDueAt = &resolutionDue
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

// newTicketNumber derives a human-readable ticket number. Channel tickets
// keep the MSG prefix so agents can spot webhook-created tickets at a glance.
func newTicketNumber(source domain.TicketSource) string {
	prefix := "TCK"
	if source == domain.TicketSourceChannel {
		prefix = "MSG"
	}
	return prefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + strconv.Itoa(rand.Intn(10))
}

func stringPreview(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max]) + "..."
}
