package domain

import "time"

// SLAPolicy defines per-priority response and resolution windows in hours.
type SLAPolicy struct {
	ID              string
	CompanyID       string
	Name            string
	Priority        TicketPriority
	ResponseHours   int
	ResolutionHours int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResponseDue computes the first-response deadline from the ticket open time.
func (p SLAPolicy) ResponseDue(openedAt time.Time) time.Time {
	return openedAt.Add(time.Duration(p.ResponseHours) * time.Hour)
}

// ResolutionDue computes the resolution deadline from the ticket open time.
func (p SLAPolicy) ResolutionDue(openedAt time.Time) time.Time {
	return openedAt.Add(time.Duration(p.ResolutionHours) * time.Hour)
}
