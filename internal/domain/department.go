package domain

import "time"

// Department represents a high-level organizational unit within a company.
type Department struct {
	ID          string
	CompanyID   string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
