package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SLAService manages per-priority response and resolution policies.
type SLAService struct {
	policies repository.SLARepository
	tickets  repository.TicketRepository
}

// NewSLAService builds the service.
func NewSLAService(policies repository.SLARepository, tickets repository.TicketRepository) *SLAService {
	return &SLAService{policies: policies, tickets: tickets}
}

// CreatePolicy persists a new SLA policy.
func (s *SLAService) CreatePolicy(ctx context.Context, policy *domain.SLAPolicy) (*domain.SLAPolicy, error) {
	if policy.ResponseHours <= 0 || policy.ResolutionHours <= 0 {
		return nil, apperrors.NewValidationError("SLA windows must be positive", nil)
	}
	if policy.ResolutionHours < policy.ResponseHours {
		return nil, apperrors.NewValidationError("resolution window cannot be shorter than response window", nil)
	}
	policy.IsActive = true
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// UpdatePolicy replaces an existing policy's windows.
func (s *SLAService) UpdatePolicy(ctx context.Context, policy *domain.SLAPolicy) (*domain.SLAPolicy, error) {
	if policy.ResponseHours <= 0 || policy.ResolutionHours <= 0 {
		return nil, apperrors.NewValidationError("SLA windows must be positive", nil)
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policy.ID})
		}
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// ListPolicies returns the company's policies.
func (s *SLAService) ListPolicies(ctx context.Context, companyID string) ([]domain.SLAPolicy, error) {
	policies, err := s.policies.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

// SLABreach describes one overdue ticket.
type SLABreach struct {
	TicketID          string                `json:"ticket_id"`
	TicketNumber      string                `json:"ticket_number"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	ResponseOverdue   bool                  `json:"response_overdue"`
	ResolutionOverdue bool                  `json:"resolution_overdue"`
	OverdueSince      time.Time             `json:"overdue_since"`
}

// ListBreaches scans open tickets for missed response or resolution windows.
func (s *SLAService) ListBreaches(ctx context.Context, companyID string) ([]SLABreach, error) {
	open := []domain.TicketStatus{domain.TicketStatusWait, domain.TicketStatusProcess}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CompanyID: &companyID,
		Statuses:  open,
		Limit:     500,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	var breaches []SLABreach
	for _, ticket := range tickets {
		responseOverdue := ticket.FirstRespondedAt == nil &&
			ticket.ResponseDueAt != nil && now.After(*ticket.ResponseDueAt)
		resolutionOverdue := ticket.ResolvedAt == nil &&
			ticket.ResolutionDueAt != nil && now.After(*ticket.ResolutionDueAt)
		if !responseOverdue && !resolutionOverdue {
			continue
		}
		overdueSince := ticket.ResolutionDueAt
		if responseOverdue {
			overdueSince = ticket.ResponseDueAt
		}
		breaches = append(breaches, SLABreach{
			TicketID:          ticket.ID,
			TicketNumber:      ticket.TicketNumber,
			Status:            ticket.Status,
			Priority:          ticket.Priority,
			ResponseOverdue:   responseOverdue,
			ResolutionOverdue: resolutionOverdue,
			OverdueSince:      *overdueSince,
		})
	}
	return breaches, nil
}
