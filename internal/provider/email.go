package provider

import (
	"context"
	"time"
)

// Email provider type tags.
const (
	EmailProviderGmail   = "gmail"
	EmailProviderOutlook = "outlook"
)

// EmailConfig carries credentials for one mailbox. JSON tags match the opaque
// config blob stored on a channel record, so the blob unmarshals directly.
type EmailConfig struct {
	Type         string `json:"provider"`
	Email        string `json:"email"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
	RefreshToken string `json:"refreshToken,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	TenantID     string `json:"tenantId,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// Identity returns the stable cache identity for this mailbox.
func (c EmailConfig) Identity() string {
	return c.Email
}

// EmailAttachment is a file carried by an email. Content holds the decoded
// bytes; transports re-encode to base64 where their wire format requires it.
type EmailAttachment struct {
	Filename    string
	Content     []byte
	ContentType string
	Size        int64
	ContentID   string
}

// EmailMessage is the common shape for both outbound and fetched emails.
type EmailMessage struct {
	ID          string
	MessageID   string
	ThreadID    string
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Body        string
	IsHTML      bool
	Attachments []EmailAttachment
	InReplyTo   string
	References  []string
	ReceivedAt  time.Time
	SentAt      time.Time
}

// EmailSendResult reports the outcome of a send. Providers never surface
// upstream failures as errors on the send path; callers branch on Success.
type EmailSendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// EmailListOptions filters mailbox listing.
type EmailListOptions struct {
	MaxResults       int
	PageToken        string
	Query            string
	LabelIDs         []string
	IncludeSpamTrash bool
}

// EmailListResult is one page of mailbox messages.
type EmailListResult struct {
	Messages      []EmailMessage
	NextPageToken string
	TotalCount    int
}

// UserProfile describes the authenticated mailbox owner.
type UserProfile struct {
	Email  string
	Name   string
	Avatar string
}

// EmailProvider adapts one third-party email API to the common contract.
// Initialize fails fast on incomplete configuration; every other operation
// reports upstream failure in-band (zero value, false, or Success=false)
// rather than returning an error.
type EmailProvider interface {
	Initialize(cfg EmailConfig) error
	TestConnection(ctx context.Context) bool
	SendEmail(ctx context.Context, msg EmailMessage) EmailSendResult
	GetEmails(ctx context.Context, opts EmailListOptions) EmailListResult
	GetEmail(ctx context.Context, messageID string) *EmailMessage
	MarkAsRead(ctx context.Context, messageID string) bool
	DeleteEmail(ctx context.Context, messageID string) bool
	ReplyToEmail(ctx context.Context, originalMessageID string, reply EmailMessage) EmailSendResult
	ProviderType() string
	GetUserProfile(ctx context.Context) UserProfile
}
