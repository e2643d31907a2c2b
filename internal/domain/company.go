package domain

import "time"

// Company is the tenant boundary; channels, users and tickets belong to one company.
type Company struct {
	ID        string
	Name      string
	Code      string
	Email     string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
