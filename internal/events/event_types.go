package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventCommentAdded        EventType = "ticket_comment_added"
	EventMessageReceived     EventType = "channel_message_received"
	EventMessageSent         EventType = "channel_message_sent"
	EventChannelStatusChange EventType = "channel_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   domain.CommentAuthorType `json:"type"`
	UserID *string                  `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ChannelID string      `json:"channel_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	CustomerID   string                `json:"customer_id"`
	Source       domain.TicketSource   `json:"source"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeUserID *string `json:"assignee_user_id,omitempty"`
	TeamID         *string `json:"team_id,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string                   `json:"comment_id"`
	AuthorType  domain.CommentAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
	IsInternal  bool                     `json:"is_internal"`
	BodyPreview string                   `json:"body_preview"`
}

// ChannelMessagePayload payload for inbound and outbound channel traffic.
type ChannelMessagePayload struct {
	MessageID   string                  `json:"message_id"`
	ExternalID  string                  `json:"external_id,omitempty"`
	Direction   domain.MessageDirection `json:"direction"`
	MessageType string                  `json:"message_type"`
	SenderID    string                  `json:"sender_id,omitempty"`
	BodyPreview string                  `json:"body_preview"`
}

// ChannelStatusChangedPayload payload.
type ChannelStatusChangedPayload struct {
	OldStatus domain.ChannelStatus `json:"old_status"`
	NewStatus domain.ChannelStatus `json:"new_status"`
	Reason    string               `json:"reason,omitempty"`
}
