package domain

import "time"

// Customer is an external person who contacts support through a channel.
// ExternalID holds the provider-side sender identifier (telegram user id,
// facebook PSID, zalo user id, or an email address).
type Customer struct {
	ID         string
	CompanyID  string
	CIF        string
	ExternalID string
	FirstName  string
	LastName   string
	Email      *string
	Phone      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
