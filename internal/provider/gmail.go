package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const defaultGmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// GmailProvider adapts the Gmail REST API. Authentication uses an OAuth2
// refresh token; access tokens are renewed transparently by the token source.
type GmailProvider struct {
	cfg     EmailConfig
	rest    *restClient
	baseURL string
	logger  *zap.Logger

	// set by options, bypasses the oauth2 transport in tests
	rawClient *http.Client
}

// GmailOption configures the provider.
type GmailOption func(*GmailProvider)

// WithGmailBaseURL overrides the Gmail API endpoint.
func WithGmailBaseURL(base string) GmailOption {
	return func(p *GmailProvider) {
		p.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithGmailHTTPClient supplies a pre-authenticated HTTP client.
func WithGmailHTTPClient(client *http.Client) GmailOption {
	return func(p *GmailProvider) {
		p.rawClient = client
	}
}

// NewGmailProvider constructs an uninitialized provider.
func NewGmailProvider(logger *zap.Logger, opts ...GmailOption) *GmailProvider {
	p := &GmailProvider{baseURL: defaultGmailBaseURL, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize validates the config and builds the authenticated client.
func (p *GmailProvider) Initialize(cfg EmailConfig) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return errors.New("gmail: client id and client secret are required")
	}
	if cfg.RefreshToken == "" {
		return errors.New("gmail: refresh token is required")
	}
	p.cfg = cfg

	if p.rawClient != nil {
		p.rest = newRESTClient(p.rawClient)
	} else {
		conf := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     googleEndpoint,
		}
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken, AccessToken: cfg.AccessToken}
		p.rest = newRESTClient(conf.Client(context.Background(), token))
	}

	p.logger.Info("gmail provider initialized", zap.String("email", cfg.Email))
	return nil
}

// TestConnection probes the profile endpoint.
func (p *GmailProvider) TestConnection(ctx context.Context) bool {
	var out struct {
		EmailAddress string `json:"emailAddress"`
	}
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/users/me/profile", nil, nil, &out)
	if err != nil {
		p.logger.Warn("gmail connection test failed", zap.Error(err))
		return false
	}
	return out.EmailAddress != ""
}

// SendEmail builds an RFC 822 message and posts it base64url-encoded.
func (p *GmailProvider) SendEmail(ctx context.Context, msg EmailMessage) EmailSendResult {
	if len(msg.To) == 0 {
		return EmailSendResult{Success: false, Error: "at least one recipient is required"}
	}
	raw := buildMIMEMessage(msg)

	var out struct {
		ID string `json:"id"`
	}
	body := map[string]string{"raw": base64.RawURLEncoding.EncodeToString([]byte(raw))}
	_, err := p.rest.doJSON(ctx, http.MethodPost, p.baseURL+"/users/me/messages/send", nil, body, &out)
	if err != nil {
		p.logger.Warn("gmail send failed", zap.Error(err))
		return EmailSendResult{Success: false, Error: err.Error()}
	}
	return EmailSendResult{Success: true, MessageID: out.ID}
}

// GetEmails lists messages and resolves each to its full form.
func (p *GmailProvider) GetEmails(ctx context.Context, opts EmailListOptions) EmailListResult {
	q := url.Values{}
	max := opts.MaxResults
	if max <= 0 {
		max = 10
	}
	q.Set("maxResults", strconv.Itoa(max))
	if opts.PageToken != "" {
		q.Set("pageToken", opts.PageToken)
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	labels := opts.LabelIDs
	if len(labels) == 0 {
		labels = []string{"INBOX"}
	}
	for _, label := range labels {
		q.Add("labelIds", label)
	}
	if opts.IncludeSpamTrash {
		q.Set("includeSpamTrash", "true")
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		NextPageToken      string `json:"nextPageToken"`
		ResultSizeEstimate int    `json:"resultSizeEstimate"`
	}
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/users/me/messages?"+q.Encode(), nil, nil, &out)
	if err != nil {
		p.logger.Warn("gmail list failed", zap.Error(err))
		return EmailListResult{}
	}

	result := EmailListResult{NextPageToken: out.NextPageToken, TotalCount: out.ResultSizeEstimate}
	for _, ref := range out.Messages {
		if full := p.GetEmail(ctx, ref.ID); full != nil {
			result.Messages = append(result.Messages, *full)
		}
	}
	return result
}

// GetEmail fetches one message in full form.
func (p *GmailProvider) GetEmail(ctx context.Context, messageID string) *EmailMessage {
	var out gmailMessage
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/users/me/messages/"+url.PathEscape(messageID)+"?format=full", nil, nil, &out)
	if err != nil {
		p.logger.Warn("gmail get failed", zap.String("message_id", messageID), zap.Error(err))
		return nil
	}
	msg := parseGmailMessage(out)
	return &msg
}

// MarkAsRead removes the UNREAD label.
func (p *GmailProvider) MarkAsRead(ctx context.Context, messageID string) bool {
	body := map[string][]string{"removeLabelIds": {"UNREAD"}}
	_, err := p.rest.doJSON(ctx, http.MethodPost, p.baseURL+"/users/me/messages/"+url.PathEscape(messageID)+"/modify", nil, body, nil)
	if err != nil {
		p.logger.Warn("gmail mark-as-read failed", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	return true
}

// DeleteEmail permanently removes a message.
func (p *GmailProvider) DeleteEmail(ctx context.Context, messageID string) bool {
	_, err := p.rest.doJSON(ctx, http.MethodDelete, p.baseURL+"/users/me/messages/"+url.PathEscape(messageID), nil, nil, nil)
	if err != nil {
		p.logger.Warn("gmail delete failed", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	return true
}

// ReplyToEmail threads the reply onto the original message and sends it.
func (p *GmailProvider) ReplyToEmail(ctx context.Context, originalMessageID string, reply EmailMessage) EmailSendResult {
	original := p.GetEmail(ctx, originalMessageID)
	if original == nil {
		return EmailSendResult{Success: false, Error: "original message not found"}
	}

	reply.InReplyTo = original.MessageID
	reply.References = append([]string{}, original.References...)
	if original.MessageID != "" {
		reply.References = append(reply.References, original.MessageID)
	}
	if !strings.HasPrefix(reply.Subject, "Re:") {
		reply.Subject = "Re: " + original.Subject
	}
	return p.SendEmail(ctx, reply)
}

// ProviderType returns the provider tag.
func (p *GmailProvider) ProviderType() string {
	return EmailProviderGmail
}

// GetUserProfile resolves the mailbox owner, falling back to the configured
// address when the API is unreachable.
func (p *GmailProvider) GetUserProfile(ctx context.Context) UserProfile {
	var out struct {
		EmailAddress string `json:"emailAddress"`
	}
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/users/me/profile", nil, nil, &out)
	if err != nil {
		p.logger.Warn("gmail profile lookup failed", zap.Error(err))
		return UserProfile{Email: p.cfg.Email}
	}
	return UserProfile{Email: out.EmailAddress, Name: p.cfg.DisplayName}
}

// gmailMessage mirrors the wire shape of a full-format Gmail message.
type gmailMessage struct {
	ID           string    `json:"id"`
	ThreadID     string    `json:"threadId"`
	InternalDate string    `json:"internalDate"`
	Payload      gmailPart `json:"payload"`
}

type gmailPart struct {
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []gmailHeader `json:"headers"`
	Body     gmailBody     `json:"body"`
	Parts    []gmailPart   `json:"parts"`
}

type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type gmailBody struct {
	Data         string `json:"data"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachmentId"`
}

func parseGmailMessage(raw gmailMessage) EmailMessage {
	header := func(name string) string {
		for _, h := range raw.Payload.Headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
		return ""
	}

	msg := EmailMessage{
		ID:        raw.ID,
		MessageID: header("Message-ID"),
		ThreadID:  raw.ThreadID,
		From:      header("From"),
		To:        splitAddressList(header("To")),
		Cc:        splitAddressList(header("Cc")),
		Subject:   header("Subject"),
		Body:      extractGmailBody(raw.Payload),
		InReplyTo: header("In-Reply-To"),
	}
	if refs := header("References"); refs != "" {
		msg.References = strings.Fields(refs)
	}
	if ms, err := strconv.ParseInt(raw.InternalDate, 10, 64); err == nil {
		msg.ReceivedAt = time.UnixMilli(ms)
	}
	for _, part := range raw.Payload.Parts {
		if part.Filename != "" && part.Body.AttachmentID != "" {
			msg.Attachments = append(msg.Attachments, EmailAttachment{
				Filename:    part.Filename,
				ContentType: part.MimeType,
				Size:        part.Body.Size,
			})
		}
	}
	return msg
}

func extractGmailBody(payload gmailPart) string {
	if payload.Body.Data != "" {
		return decodeBase64URL(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" || part.MimeType == "text/html" {
			if part.Body.Data != "" {
				return decodeBase64URL(part.Body.Data)
			}
		}
	}
	return ""
}

func decodeBase64URL(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

func splitAddressList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// buildMIMEMessage renders the message as an RFC 822 multipart document with
// base64 attachment parts.
func buildMIMEMessage(msg EmailMessage) string {
	boundary := fmt.Sprintf("boundary_%d", time.Now().UnixNano())
	var b strings.Builder

	writeHeader := func(name, value string) {
		if value != "" {
			b.WriteString(name + ": " + value + "\r\n")
		}
	}
	writeHeader("From", msg.From)
	writeHeader("To", strings.Join(msg.To, ", "))
	writeHeader("Cc", strings.Join(msg.Cc, ", "))
	writeHeader("Bcc", strings.Join(msg.Bcc, ", "))
	writeHeader("Subject", msg.Subject)
	writeHeader("In-Reply-To", msg.InReplyTo)
	writeHeader("References", strings.Join(msg.References, " "))
	writeHeader("MIME-Version", "1.0")
	b.WriteString(`Content-Type: multipart/mixed; boundary="` + boundary + `"` + "\r\n\r\n")

	contentType := "text/plain"
	if msg.IsHTML {
		contentType = "text/html"
	}
	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: " + contentType + "; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body + "\r\n\r\n")

	for _, att := range msg.Attachments {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: " + att.ContentType + "\r\n")
		b.WriteString(`Content-Disposition: attachment; filename="` + att.Filename + `"` + "\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(base64.StdEncoding.EncodeToString(att.Content) + "\r\n\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.String()
}
