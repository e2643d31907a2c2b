package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. WAIT and PROCESS are
// the non-terminal states; inbound channel messages reuse tickets in either.
type TicketStatus string

const (
	TicketStatusWait      TicketStatus = "WAIT"
	TicketStatusProcess   TicketStatus = "PROCESS"
	TicketStatusDone      TicketStatus = "DONE"
	TicketStatusClosed    TicketStatus = "CLOSED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// IsTerminal reports whether the status ends the ticket lifecycle.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusDone || s == TicketStatusClosed || s == TicketStatusCancelled
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketType categorizes the request.
type TicketType string

const (
	TicketTypeInquiry   TicketType = "INQUIRY"
	TicketTypeComplaint TicketType = "COMPLAINT"
	TicketTypeRequest   TicketType = "REQUEST"
	TicketTypeIncident  TicketType = "INCIDENT"
)

// TicketSource records how the ticket entered the system.
type TicketSource string

const (
	TicketSourceManual  TicketSource = "MANUAL"
	TicketSourceChannel TicketSource = "CHANNEL"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	TicketNumber     string
	CompanyID        string
	CustomerID       string
	ChannelID        *string
	DepartmentID     *string
	TeamID           *string
	AssigneeID       *string
	Title            string
	Description      string
	Type             TicketType
	Source           TicketSource
	Status           TicketStatus
	Priority         TicketPriority
	ResponseDueAt    *time.Time
	ResolutionDueAt  *time.Time
	FirstRespondedAt *time.Time
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
