package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"

// OutlookProvider adapts the Microsoft Graph mail API using a caller-supplied
// access token. Token acquisition against the tenant happens upstream; the
// provider only consumes the resulting bearer token.
type OutlookProvider struct {
	cfg     EmailConfig
	rest    *restClient
	baseURL string
	logger  *zap.Logger
	client  *http.Client
}

// OutlookOption configures the provider.
type OutlookOption func(*OutlookProvider)

// WithOutlookBaseURL overrides the Graph endpoint.
func WithOutlookBaseURL(base string) OutlookOption {
	return func(p *OutlookProvider) {
		p.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithOutlookHTTPClient swaps the HTTP client.
func WithOutlookHTTPClient(client *http.Client) OutlookOption {
	return func(p *OutlookProvider) {
		p.client = client
	}
}

// NewOutlookProvider constructs an uninitialized provider.
func NewOutlookProvider(logger *zap.Logger, opts ...OutlookOption) *OutlookProvider {
	p := &OutlookProvider{baseURL: defaultGraphBaseURL, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize validates the config.
func (p *OutlookProvider) Initialize(cfg EmailConfig) error {
	if cfg.AccessToken == "" {
		return errors.New("outlook: access token is required")
	}
	if cfg.TenantID == "" {
		return errors.New("outlook: tenant id is required")
	}
	p.cfg = cfg
	p.rest = newRESTClient(p.client)
	p.logger.Info("outlook provider initialized", zap.String("email", cfg.Email))
	return nil
}

func (p *OutlookProvider) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.cfg.AccessToken}
}

// TestConnection probes the /me endpoint.
func (p *OutlookProvider) TestConnection(ctx context.Context) bool {
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/me", p.authHeaders(), nil, nil)
	if err != nil {
		p.logger.Warn("outlook connection test failed", zap.Error(err))
		return false
	}
	return true
}

// SendEmail posts to /me/sendMail. Graph acknowledges with 202 and an empty
// body, so no provider message id is available on this path.
func (p *OutlookProvider) SendEmail(ctx context.Context, msg EmailMessage) EmailSendResult {
	if len(msg.To) == 0 {
		return EmailSendResult{Success: false, Error: "at least one recipient is required"}
	}
	body := map[string]any{
		"message":         toGraphMessage(msg),
		"saveToSentItems": true,
	}
	_, err := p.rest.doJSON(ctx, http.MethodPost, p.baseURL+"/me/sendMail", p.authHeaders(), body, nil)
	if err != nil {
		p.logger.Warn("outlook send failed", zap.Error(err))
		return EmailSendResult{Success: false, Error: err.Error()}
	}
	return EmailSendResult{Success: true}
}

// GetEmails lists the newest messages, optionally filtered by search query.
func (p *OutlookProvider) GetEmails(ctx context.Context, opts EmailListOptions) EmailListResult {
	max := opts.MaxResults
	if max <= 0 {
		max = 10
	}
	q := url.Values{}
	q.Set("$top", strconv.Itoa(max))
	q.Set("$orderby", "receivedDateTime desc")
	if opts.Query != "" {
		q.Set("$search", `"`+opts.Query+`"`)
	}

	var out struct {
		Value    []graphMessage `json:"value"`
		NextLink string         `json:"@odata.nextLink"`
	}
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/me/messages?"+q.Encode(), p.authHeaders(), nil, &out)
	if err != nil {
		p.logger.Warn("outlook list failed", zap.Error(err))
		return EmailListResult{}
	}

	result := EmailListResult{NextPageToken: out.NextLink, TotalCount: len(out.Value)}
	for _, raw := range out.Value {
		result.Messages = append(result.Messages, fromGraphMessage(raw))
	}
	return result
}

// GetEmail fetches one message by id.
func (p *OutlookProvider) GetEmail(ctx context.Context, messageID string) *EmailMessage {
	var out graphMessage
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/me/messages/"+url.PathEscape(messageID), p.authHeaders(), nil, &out)
	if err != nil {
		p.logger.Warn("outlook get failed", zap.String("message_id", messageID), zap.Error(err))
		return nil
	}
	msg := fromGraphMessage(out)
	return &msg
}

// MarkAsRead patches the isRead flag.
func (p *OutlookProvider) MarkAsRead(ctx context.Context, messageID string) bool {
	body := map[string]bool{"isRead": true}
	_, err := p.rest.doJSON(ctx, http.MethodPatch, p.baseURL+"/me/messages/"+url.PathEscape(messageID), p.authHeaders(), body, nil)
	if err != nil {
		p.logger.Warn("outlook mark-as-read failed", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	return true
}

// DeleteEmail removes a message.
func (p *OutlookProvider) DeleteEmail(ctx context.Context, messageID string) bool {
	_, err := p.rest.doJSON(ctx, http.MethodDelete, p.baseURL+"/me/messages/"+url.PathEscape(messageID), p.authHeaders(), nil, nil)
	if err != nil {
		p.logger.Warn("outlook delete failed", zap.String("message_id", messageID), zap.Error(err))
		return false
	}
	return true
}

// ReplyToEmail posts to the message's reply action.
func (p *OutlookProvider) ReplyToEmail(ctx context.Context, originalMessageID string, reply EmailMessage) EmailSendResult {
	body := map[string]any{"message": toGraphMessage(reply)}
	_, err := p.rest.doJSON(ctx, http.MethodPost, p.baseURL+"/me/messages/"+url.PathEscape(originalMessageID)+"/reply", p.authHeaders(), body, nil)
	if err != nil {
		p.logger.Warn("outlook reply failed", zap.String("message_id", originalMessageID), zap.Error(err))
		return EmailSendResult{Success: false, Error: err.Error()}
	}
	return EmailSendResult{Success: true}
}

// ProviderType returns the provider tag.
func (p *OutlookProvider) ProviderType() string {
	return EmailProviderOutlook
}

// GetUserProfile resolves the signed-in account.
func (p *OutlookProvider) GetUserProfile(ctx context.Context) UserProfile {
	var out struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/me", p.authHeaders(), nil, &out)
	if err != nil {
		p.logger.Warn("outlook profile lookup failed", zap.Error(err))
		return UserProfile{Email: p.cfg.Email}
	}
	email := out.Mail
	if email == "" {
		email = out.UserPrincipalName
	}
	return UserProfile{Email: email, Name: out.DisplayName}
}

// graphMessage mirrors the Graph wire shape for mail messages.
type graphMessage struct {
	ID                string `json:"id"`
	InternetMessageID string `json:"internetMessageId"`
	Subject           string `json:"subject"`
	Body              struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	From             *graphRecipient  `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	CcRecipients     []graphRecipient `json:"ccRecipients"`
	ReceivedDateTime string           `json:"receivedDateTime"`
	SentDateTime     string           `json:"sentDateTime"`
	Attachments      []struct {
		Name         string `json:"name"`
		ContentType  string `json:"contentType"`
		Size         int64  `json:"size"`
		ContentBytes string `json:"contentBytes"`
	} `json:"attachments"`
}

type graphRecipient struct {
	EmailAddress struct {
		Address string `json:"address"`
	} `json:"emailAddress"`
}

func toGraphMessage(msg EmailMessage) map[string]any {
	contentType := "Text"
	if msg.IsHTML {
		contentType = "HTML"
	}
	out := map[string]any{
		"subject":      msg.Subject,
		"body":         map[string]string{"contentType": contentType, "content": msg.Body},
		"toRecipients": toGraphRecipients(msg.To),
	}
	if len(msg.Cc) > 0 {
		out["ccRecipients"] = toGraphRecipients(msg.Cc)
	}
	if len(msg.Bcc) > 0 {
		out["bccRecipients"] = toGraphRecipients(msg.Bcc)
	}
	if len(msg.Attachments) > 0 {
		attachments := make([]map[string]any, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, map[string]any{
				"@odata.type":  "#microsoft.graph.fileAttachment",
				"name":         att.Filename,
				"contentType":  att.ContentType,
				"contentBytes": base64.StdEncoding.EncodeToString(att.Content),
			})
		}
		out["attachments"] = attachments
	}
	return out
}

func toGraphRecipients(addresses []string) []map[string]any {
	out := make([]map[string]any, 0, len(addresses))
	for _, addr := range addresses {
		out = append(out, map[string]any{"emailAddress": map[string]string{"address": addr}})
	}
	return out
}

func fromGraphMessage(raw graphMessage) EmailMessage {
	msg := EmailMessage{
		ID:        raw.ID,
		MessageID: raw.InternetMessageID,
		Subject:   raw.Subject,
		Body:      raw.Body.Content,
		IsHTML:    strings.EqualFold(raw.Body.ContentType, "HTML"),
	}
	if raw.From != nil {
		msg.From = raw.From.EmailAddress.Address
	}
	for _, r := range raw.ToRecipients {
		msg.To = append(msg.To, r.EmailAddress.Address)
	}
	for _, r := range raw.CcRecipients {
		msg.Cc = append(msg.Cc, r.EmailAddress.Address)
	}
	if t, err := time.Parse(time.RFC3339, raw.ReceivedDateTime); err == nil {
		msg.ReceivedAt = t
	}
	if t, err := time.Parse(time.RFC3339, raw.SentDateTime); err == nil {
		msg.SentAt = t
	}
	for _, att := range raw.Attachments {
		decoded, _ := base64.StdEncoding.DecodeString(att.ContentBytes)
		msg.Attachments = append(msg.Attachments, EmailAttachment{
			Filename:    att.Name,
			ContentType: att.ContentType,
			Size:        att.Size,
			Content:     decoded,
		})
	}
	return msg
}
