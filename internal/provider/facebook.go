package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultFacebookBaseURL = "https://graph.facebook.com/v18.0"

// FacebookProvider adapts the Facebook Messenger Graph API for both the plain
// and fanpage variants. Inbound traffic arrives exclusively through page
// webhooks; there is no history API, so GetMessages always returns an empty
// page.
type FacebookProvider struct {
	cfg     MessagingConfig
	rest    *restClient
	baseURL string
	logger  *zap.Logger
	client  *http.Client
}

// FacebookOption configures the provider.
type FacebookOption func(*FacebookProvider)

// WithFacebookBaseURL overrides the Graph endpoint.
func WithFacebookBaseURL(base string) FacebookOption {
	return func(p *FacebookProvider) {
		p.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithFacebookHTTPClient swaps the HTTP client.
func WithFacebookHTTPClient(client *http.Client) FacebookOption {
	return func(p *FacebookProvider) {
		p.client = client
	}
}

// NewFacebookProvider constructs an uninitialized provider.
func NewFacebookProvider(logger *zap.Logger, opts ...FacebookOption) *FacebookProvider {
	p := &FacebookProvider{baseURL: defaultFacebookBaseURL, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize validates the config.
func (p *FacebookProvider) Initialize(cfg MessagingConfig) error {
	if cfg.AccessToken == "" {
		return errors.New("facebook: access token is required")
	}
	if cfg.Type == MessagingProviderFacebookFanpage && cfg.PageID == "" {
		return errors.New("facebook: page id is required for the fanpage variant")
	}
	p.cfg = cfg
	p.rest = newRESTClient(p.client)
	p.logger.Info("facebook provider initialized",
		zap.String("app_id", cfg.AppID),
		zap.String("page_id", cfg.PageID))
	return nil
}

func (p *FacebookProvider) tokenQuery() string {
	return "access_token=" + url.QueryEscape(p.cfg.AccessToken)
}

// TestConnection probes the token against /me.
func (p *FacebookProvider) TestConnection(ctx context.Context) bool {
	_, err := p.rest.doJSON(ctx, http.MethodGet, p.baseURL+"/me?"+p.tokenQuery(), nil, nil, nil)
	if err != nil {
		p.logger.Warn("facebook connection test failed", zap.Error(err))
		return false
	}
	return true
}

// SendMessage posts a send-API payload built from the common message shape.
func (p *FacebookProvider) SendMessage(ctx context.Context, msg MessagingMessage) MessagingSendResult {
	payload := buildFacebookPayload(msg)

	var out struct {
		MessageID string `json:"message_id"`
	}
	_, err := p.rest.doJSON(ctx, http.MethodPost, p.baseURL+"/me/messages?"+p.tokenQuery(), nil, payload, &out)
	if err != nil {
		p.logger.Warn("facebook send failed", zap.Error(err))
		return MessagingSendResult{Success: false, Error: err.Error()}
	}
	return MessagingSendResult{
		Success:    true,
		MessageID:  out.MessageID,
		ExternalID: out.MessageID,
		Timestamp:  time.Now(),
	}
}

// GetMessages is webhook-only for Facebook; documented empty result.
func (p *FacebookProvider) GetMessages(ctx context.Context, opts MessagingListOptions) MessagingListResult {
	p.logger.Debug("facebook has no history API; messages arrive via webhooks only")
	return MessagingListResult{}
}

// GetMessage is not supported by the Graph send API.
func (p *FacebookProvider) GetMessage(ctx context.Context, messageID string) *MessagingMessage {
	return nil
}

// MarkAsRead sends the mark_seen sender action.
func (p *FacebookProvider) MarkAsRead(ctx context.Context, recipientID string) bool {
	payload := map[string]any{
		"recipient":     map[string]string{"id": recipientID},
		"sender_action": "mark_seen",
	}
	_, err := p.rest.doJSON(ctx, http.MethodPost, p.baseURL+"/me/messages?"+p.tokenQuery(), nil, payload, nil)
	if err != nil {
		p.logger.Warn("facebook mark-as-read failed", zap.String("recipient_id", recipientID), zap.Error(err))
		return false
	}
	return true
}

// GetContact resolves a PSID to a profile.
func (p *FacebookProvider) GetContact(ctx context.Context, contactID string) *MessagingContact {
	var out struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		ProfilePic string `json:"profile_pic"`
	}
	endpoint := fmt.Sprintf("%s/%s?fields=first_name,last_name,profile_pic&%s", p.baseURL, url.PathEscape(contactID), p.tokenQuery())
	_, err := p.rest.doJSON(ctx, http.MethodGet, endpoint, nil, nil, &out)
	if err != nil {
		p.logger.Warn("facebook contact lookup failed", zap.String("contact_id", contactID), zap.Error(err))
		return nil
	}
	return &MessagingContact{
		ID:     contactID,
		Name:   strings.TrimSpace(out.FirstName + " " + out.LastName),
		Avatar: out.ProfilePic,
	}
}

// SetupWebhook only validates the callback URL; page webhook subscriptions
// are managed in the Facebook app dashboard.
func (p *FacebookProvider) SetupWebhook(ctx context.Context, webhookURL, verifyToken string) bool {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		p.logger.Warn("invalid webhook url", zap.String("url", webhookURL), zap.Error(err))
		return false
	}
	p.logger.Info("facebook webhook configured", zap.String("url", webhookURL))
	return true
}

// VerifyWebhook checks the X-Hub-Signature-256 value ("sha256=<hex>") against
// the app secret. Without an app secret nothing can be verified, so the
// request is rejected.
func (p *FacebookProvider) VerifyWebhook(signature string, body []byte) bool {
	if p.cfg.AppSecret == "" {
		return false
	}
	return verifyPrefixedSignature(p.cfg.AppSecret, body, signature)
}

// ProcessWebhookEvent normalizes a page webhook delivery into events.
func (p *FacebookProvider) ProcessWebhookEvent(ctx context.Context, body []byte) ([]WebhookEvent, error) {
	var payload facebookWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("facebook: decode webhook payload: %w", err)
	}
	if payload.Object != "page" {
		return nil, nil
	}

	var events []WebhookEvent
	for _, entry := range payload.Entry {
		for _, raw := range entry.Messaging {
			if event := p.parseMessagingEvent(raw); event != nil {
				events = append(events, *event)
			}
		}
	}
	return events, nil
}

// ProviderType returns the provider tag.
func (p *FacebookProvider) ProviderType() string {
	return MessagingProviderFacebook
}

// Capabilities reports the static capability matrix.
func (p *FacebookProvider) Capabilities() MessagingCapabilities {
	return MessagingCapabilities{
		SupportsFiles:        true,
		SupportsImages:       true,
		SupportsAudio:        true,
		SupportsVideo:        true,
		SupportsLocation:     true,
		SupportsStickers:     false,
		SupportsRichMessages: true,
		MaxFileSize:          25 << 20,
		SupportedFileTypes:   []string{"image/*", "video/*", "audio/*", "application/pdf"},
	}
}

type facebookWebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []facebookMessagingEvent `json:"messaging"`
	} `json:"entry"`
}

type facebookMessagingEvent struct {
	Timestamp int64 `json:"timestamp"`
	Sender    struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message *struct {
		MID         string `json:"mid"`
		Text        string `json:"text"`
		Attachments []struct {
			Type    string `json:"type"`
			Payload struct {
				URL      string `json:"url"`
				MimeType string `json:"mime_type"`
			} `json:"payload"`
		} `json:"attachments"`
	} `json:"message"`
	Delivery *struct {
		MIDs      []string `json:"mids"`
		Watermark int64    `json:"watermark"`
	} `json:"delivery"`
	Read *struct {
		Watermark int64 `json:"watermark"`
	} `json:"read"`
	Postback *struct {
		Payload string `json:"payload"`
		Title   string `json:"title"`
	} `json:"postback"`
	Referral *struct {
		Ref    string `json:"ref"`
		Source string `json:"source"`
		Type   string `json:"type"`
	} `json:"referral"`
}

func (p *FacebookProvider) parseMessagingEvent(raw facebookMessagingEvent) *WebhookEvent {
	ts := time.UnixMilli(raw.Timestamp)
	base := WebhookEvent{
		Timestamp:   ts,
		SenderID:    raw.Sender.ID,
		RecipientID: raw.Recipient.ID,
	}

	switch {
	case raw.Message != nil:
		kind := KindText
		var attachments []MessagingAttachment
		for _, att := range raw.Message.Attachments {
			attachments = append(attachments, MessagingAttachment{
				Type:     MessageKind(att.Type),
				URL:      att.Payload.URL,
				MimeType: att.Payload.MimeType,
			})
		}
		if len(attachments) > 0 {
			kind = attachments[0].Type
		}
		base.Type = EventMessage
		base.Message = &MessagingMessage{
			ExternalID:  raw.Message.MID,
			Content:     raw.Message.Text,
			MessageType: kind,
			Direction:   Inbound,
			SenderID:    raw.Sender.ID,
			RecipientID: raw.Recipient.ID,
			ChannelID:   p.cfg.PageID,
			Timestamp:   ts,
			Attachments: attachments,
		}
	case raw.Delivery != nil:
		base.Type = EventDelivery
		base.Delivery = &DeliveryEvent{MessageIDs: raw.Delivery.MIDs, Watermark: raw.Delivery.Watermark}
	case raw.Read != nil:
		base.Type = EventRead
		base.Read = &ReadEvent{Watermark: raw.Read.Watermark}
	case raw.Postback != nil:
		base.Type = EventPostback
		base.Postback = &PostbackEvent{Payload: raw.Postback.Payload, Title: raw.Postback.Title}
	case raw.Referral != nil:
		base.Type = EventReferral
		base.Referral = &ReferralEvent{Ref: raw.Referral.Ref, Source: raw.Referral.Source, Type: raw.Referral.Type}
	default:
		return nil
	}
	return &base
}

// buildFacebookPayload maps the common message shape onto the send API wire
// format. Media kinds reference the first attachment by URL.
func buildFacebookPayload(msg MessagingMessage) map[string]any {
	payload := map[string]any{
		"recipient": map[string]string{"id": msg.RecipientID},
	}

	switch msg.MessageType {
	case KindImage, KindFile, KindAudio, KindVideo:
		if len(msg.Attachments) > 0 {
			att := msg.Attachments[0]
			attType := string(att.Type)
			if attType == "" {
				attType = "file"
			}
			payload["message"] = map[string]any{
				"attachment": map[string]any{
					"type": attType,
					"payload": map[string]any{
						"url":         att.URL,
						"is_reusable": true,
					},
				},
			}
			return payload
		}
		fallthrough
	default:
		payload["message"] = map[string]string{"text": msg.Content}
	}
	return payload
}
