package domain

import "time"

// CommentAuthorType indicates who authored a comment.
type CommentAuthorType string

const (
	CommentAuthorCustomer CommentAuthorType = "CUSTOMER"
	CommentAuthorUser     CommentAuthorType = "USER"
	CommentAuthorSystem   CommentAuthorType = "SYSTEM"
)

// TicketComment captures communications in a ticket thread. Internal comments
// are never shown to the customer.
type TicketComment struct {
	ID         string
	TicketID   string
	AuthorType CommentAuthorType
	AuthorID   *string
	Content    string
	IsInternal bool
	CreatedAt  time.Time
}
