package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload for manual ticket creation.
type CreateTicketRequest struct {
	CompanyID    string  `json:"company_id" validate:"required"`
	CustomerID   string  `json:"customer_id" validate:"required"`
	DepartmentID *string `json:"department_id"`
	TeamID       *string `json:"team_id"`
	Title        string  `json:"title" validate:"required,max=200"`
	Description  string  `json:"description" validate:"required"`
	Type         string  `json:"type" validate:"omitempty,oneof=INQUIRY COMPLAINT REQUEST INCIDENT"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=WAIT PROCESS DONE CLOSED CANCELLED"`
	Comment string `json:"comment"`
}

// AssignTicketRequest payload; exactly one of the targets must be set.
type AssignTicketRequest struct {
	AssigneeUserID *string `json:"assignee_user_id"`
	TeamID         *string `json:"team_id"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	Content    string `json:"content" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// TicketSummary response shape for list endpoints.
type TicketSummary struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	CompanyID    string                `json:"company_id"`
	CustomerID   string                `json:"customer_id"`
	ChannelID    *string               `json:"channel_id,omitempty"`
	AssigneeID   *string               `json:"assignee_user_id,omitempty"`
	Title        string                `json:"title"`
	Type         domain.TicketType     `json:"type"`
	Source       domain.TicketSource   `json:"source"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with the comment thread.
type TicketDetailResponse struct {
	TicketSummary
	Description      string                  `json:"description"`
	DepartmentID     *string                 `json:"department_id,omitempty"`
	TeamID           *string                 `json:"team_id,omitempty"`
	ResponseDueAt    *time.Time              `json:"response_due_at,omitempty"`
	ResolutionDueAt  *time.Time              `json:"resolution_due_at,omitempty"`
	FirstRespondedAt *time.Time              `json:"first_responded_at,omitempty"`
	ResolvedAt       *time.Time              `json:"resolved_at,omitempty"`
	Comments         []TicketCommentResponse `json:"comments"`
}

// TicketCommentResponse represents one thread entry.
type TicketCommentResponse struct {
	ID         string                   `json:"id"`
	AuthorType domain.CommentAuthorType `json:"author_type"`
	AuthorID   *string                  `json:"author_id,omitempty"`
	Content    string                   `json:"content"`
	IsInternal bool                     `json:"is_internal"`
	CreatedAt  time.Time                `json:"created_at"`
}

// NewTicketSummary maps a ticket to its summary shape.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		CompanyID:    ticket.CompanyID,
		CustomerID:   ticket.CustomerID,
		ChannelID:    ticket.ChannelID,
		AssigneeID:   ticket.AssigneeID,
		Title:        ticket.Title,
		Type:         ticket.Type,
		Source:       ticket.Source,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// NewTicketDetail maps a ticket plus comments to the detail shape.
func NewTicketDetail(ticket *domain.Ticket, comments []domain.TicketComment) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketSummary:    NewTicketSummary(ticket),
		Description:      ticket.Description,
		DepartmentID:     ticket.DepartmentID,
		TeamID:           ticket.TeamID,
		ResponseDueAt:    ticket.ResponseDueAt,
		ResolutionDueAt:  ticket.ResolutionDueAt,
		FirstRespondedAt: ticket.FirstRespondedAt,
		ResolvedAt:       ticket.ResolvedAt,
		Comments:         make([]TicketCommentResponse, 0, len(comments)),
	}
	for _, comment := range comments {
		resp.Comments = append(resp.Comments, TicketCommentResponse{
			ID:         comment.ID,
			AuthorType: comment.AuthorType,
			AuthorID:   comment.AuthorID,
			Content:    comment.Content,
			IsInternal: comment.IsInternal,
			CreatedAt:  comment.CreatedAt,
		})
	}
	return resp
}
