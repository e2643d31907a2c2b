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

const defaultZaloBaseURL = "https://openapi.zalo.me/v2.0/oa"

// ZaloProvider adapts the Zalo Official Account API. Zalo responses wrap
// everything in an {error, message, data} envelope where error 0 is success.
type ZaloProvider struct {
	cfg     MessagingConfig
	rest    *restClient
	baseURL string
	logger  *zap.Logger
	client  *http.Client
}

// ZaloOption configures the provider.
type ZaloOption func(*ZaloProvider)

// WithZaloBaseURL overrides the OA endpoint.
func WithZaloBaseURL(base string) ZaloOption {
	return func(p *ZaloProvider) {
		p.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithZaloHTTPClient swaps the HTTP client.
func WithZaloHTTPClient(client *http.Client) ZaloOption {
	return func(p *ZaloProvider) {
		p.client = client
	}
}

// NewZaloProvider constructs an uninitialized provider.
func NewZaloProvider(logger *zap.Logger, opts ...ZaloOption) *ZaloProvider {
	p := &ZaloProvider{baseURL: defaultZaloBaseURL, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize validates the config.
func (p *ZaloProvider) Initialize(cfg MessagingConfig) error {
	if cfg.AccessToken == "" {
		return errors.New("zalo: access token is required")
	}
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return errors.New("zalo: app id and app secret are required")
	}
	p.cfg = cfg
	p.rest = newRESTClient(p.client)
	p.logger.Info("zalo provider initialized", zap.String("app_id", cfg.AppID))
	return nil
}

func (p *ZaloProvider) authHeaders() map[string]string {
	return map[string]string{"access_token": p.cfg.AccessToken}
}

// zaloEnvelope is the OA response wrapper; error 0 means success.
type zaloEnvelope struct {
	Error   int             `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *ZaloProvider) call(ctx context.Context, method, endpoint string, in any) (*zaloEnvelope, error) {
	var out zaloEnvelope
	_, err := p.rest.doJSON(ctx, method, endpoint, p.authHeaders(), in, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != 0 {
		return nil, fmt.Errorf("zalo api error %d: %s", out.Error, out.Message)
	}
	return &out, nil
}

// TestConnection probes the OA profile endpoint.
func (p *ZaloProvider) TestConnection(ctx context.Context) bool {
	if _, err := p.call(ctx, http.MethodGet, p.baseURL+"/getoa", nil); err != nil {
		p.logger.Warn("zalo connection test failed", zap.Error(err))
		return false
	}
	return true
}

// SendMessage posts an OA message payload built from the common shape.
func (p *ZaloProvider) SendMessage(ctx context.Context, msg MessagingMessage) MessagingSendResult {
	payload := buildZaloPayload(msg)
	env, err := p.call(ctx, http.MethodPost, p.baseURL+"/message", payload)
	if err != nil {
		p.logger.Warn("zalo send failed", zap.Error(err))
		return MessagingSendResult{Success: false, Error: err.Error()}
	}

	var data struct {
		MessageID string `json:"message_id"`
	}
	_ = json.Unmarshal(env.Data, &data)
	return MessagingSendResult{
		Success:    true,
		MessageID:  data.MessageID,
		ExternalID: data.MessageID,
		Timestamp:  time.Now(),
	}
}

// GetMessages pages through the OA conversation listing.
func (p *ZaloProvider) GetMessages(ctx context.Context, opts MessagingListOptions) MessagingListResult {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	query, _ := json.Marshal(map[string]int{"offset": opts.Offset, "count": limit})
	endpoint := p.baseURL + "/conversation?data=" + url.QueryEscape(string(query))

	env, err := p.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.logger.Warn("zalo list failed", zap.Error(err))
		return MessagingListResult{}
	}

	var raw []zaloConversationMessage
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		p.logger.Warn("zalo list decode failed", zap.Error(err))
		return MessagingListResult{}
	}

	result := MessagingListResult{
		HasMore:    len(raw) == limit,
		NextOffset: opts.Offset + limit,
	}
	for _, m := range raw {
		result.Messages = append(result.Messages, p.parseConversationMessage(m))
	}
	return result
}

// GetMessage is not supported by the OA API.
func (p *ZaloProvider) GetMessage(ctx context.Context, messageID string) *MessagingMessage {
	return nil
}

// MarkAsRead is a no-op: Zalo marks messages read when the OA responds.
func (p *ZaloProvider) MarkAsRead(ctx context.Context, messageID string) bool {
	return true
}

// GetContact resolves a follower profile.
func (p *ZaloProvider) GetContact(ctx context.Context, contactID string) *MessagingContact {
	query, _ := json.Marshal(map[string]string{"user_id": contactID})
	endpoint := p.baseURL + "/getprofile?data=" + url.QueryEscape(string(query))

	env, err := p.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.logger.Warn("zalo contact lookup failed", zap.String("contact_id", contactID), zap.Error(err))
		return nil
	}

	var profile struct {
		DisplayName string `json:"display_name"`
		Avatar      string `json:"avatar"`
		UserIDByApp string `json:"user_id_by_app"`
		UserGender  int    `json:"user_gender"`
		UserAlias   string `json:"user_alias"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		return nil
	}
	return &MessagingContact{
		ID:     contactID,
		Name:   profile.DisplayName,
		Avatar: profile.Avatar,
		Metadata: map[string]any{
			"userIdByApp": profile.UserIDByApp,
			"userGender":  profile.UserGender,
			"userAlias":   profile.UserAlias,
		},
	}
}

// SetupWebhook only validates the callback URL; OA webhooks are registered in
// the Zalo developer console.
func (p *ZaloProvider) SetupWebhook(ctx context.Context, webhookURL, verifyToken string) bool {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		p.logger.Warn("invalid webhook url", zap.String("url", webhookURL), zap.Error(err))
		return false
	}
	p.logger.Info("zalo webhook configured", zap.String("url", webhookURL))
	return true
}

// VerifyWebhook checks the raw hex HMAC-SHA256 signature against the app
// secret. Without an app secret nothing can be verified, so the request is
// rejected.
func (p *ZaloProvider) VerifyWebhook(signature string, body []byte) bool {
	if p.cfg.AppSecret == "" {
		return false
	}
	return verifyHexSignature(p.cfg.AppSecret, body, signature)
}

// ProcessWebhookEvent normalizes a user_send_*/user_received/user_seen event.
func (p *ZaloProvider) ProcessWebhookEvent(ctx context.Context, body []byte) ([]WebhookEvent, error) {
	var payload zaloWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("zalo: decode webhook payload: %w", err)
	}

	ts := time.UnixMilli(payload.Timestamp)
	var events []WebhookEvent

	switch payload.EventName {
	case "user_send_text", "user_send_image", "user_send_file", "user_send_audio":
		msg := p.parseWebhookMessage(payload, ts)
		events = append(events, WebhookEvent{
			Type:      EventMessage,
			Timestamp: ts,
			SenderID:  payload.Sender.ID,
			Message:   &msg,
		})
	case "user_received_message":
		events = append(events, WebhookEvent{
			Type:      EventDelivery,
			Timestamp: ts,
			SenderID:  payload.Sender.ID,
			Delivery:  &DeliveryEvent{MessageIDs: []string{payload.Message.MsgID}, Watermark: payload.Timestamp},
		})
	case "user_seen_message":
		events = append(events, WebhookEvent{
			Type:      EventRead,
			Timestamp: ts,
			SenderID:  payload.Sender.ID,
			Read:      &ReadEvent{Watermark: payload.Timestamp},
		})
	}
	return events, nil
}

// ProviderType returns the provider tag.
func (p *ZaloProvider) ProviderType() string {
	return MessagingProviderZalo
}

// Capabilities reports the static capability matrix. OA video and location
// support is limited, so both are off.
func (p *ZaloProvider) Capabilities() MessagingCapabilities {
	return MessagingCapabilities{
		SupportsFiles:        true,
		SupportsImages:       true,
		SupportsAudio:        true,
		SupportsVideo:        false,
		SupportsLocation:     false,
		SupportsStickers:     true,
		SupportsRichMessages: true,
		MaxFileSize:          10 << 20,
		SupportedFileTypes:   []string{"image/*", "audio/*", "application/pdf"},
	}
}

type zaloWebhookPayload struct {
	AppID     string `json:"app_id"`
	EventName string `json:"event_name"`
	Timestamp int64  `json:"timestamp,string"`
	Sender    struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message struct {
		MsgID string `json:"msg_id"`
		Text  string `json:"text"`
		URL   string `json:"url"`
		Thumb string `json:"thumb"`
		Name  string `json:"name"`
		Size  int64  `json:"size,string"`
	} `json:"message"`
}

type zaloConversationMessage struct {
	MessageID string `json:"message_id"`
	Src       int    `json:"src"`
	Time      int64  `json:"time"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

func (p *ZaloProvider) parseConversationMessage(m zaloConversationMessage) MessagingMessage {
	direction := Inbound
	if m.Src == 1 { // 1 = sent by the OA
		direction = Outbound
	}
	kind := KindText
	if m.Type != "" && m.Type != "text" {
		kind = MessageKind(m.Type)
	}
	return MessagingMessage{
		ExternalID:  m.MessageID,
		Content:     m.Message,
		MessageType: kind,
		Direction:   direction,
		SenderID:    m.FromID,
		RecipientID: m.ToID,
		ChannelID:   p.cfg.AppID,
		Timestamp:   time.UnixMilli(m.Time),
	}
}

func (p *ZaloProvider) parseWebhookMessage(payload zaloWebhookPayload, ts time.Time) MessagingMessage {
	kind := KindText
	content := ""
	var attachments []MessagingAttachment

	switch payload.EventName {
	case "user_send_text":
		content = payload.Message.Text
	case "user_send_image":
		kind = KindImage
		attachments = append(attachments, MessagingAttachment{
			Type:      KindImage,
			URL:       payload.Message.URL,
			Thumbnail: payload.Message.Thumb,
		})
	case "user_send_file":
		kind = KindFile
		attachments = append(attachments, MessagingAttachment{
			Type:     KindFile,
			URL:      payload.Message.URL,
			Filename: payload.Message.Name,
			Size:     payload.Message.Size,
		})
	case "user_send_audio":
		kind = KindAudio
		attachments = append(attachments, MessagingAttachment{
			Type: KindAudio,
			URL:  payload.Message.URL,
		})
	}

	return MessagingMessage{
		ExternalID:  payload.Message.MsgID,
		Content:     content,
		MessageType: kind,
		Direction:   Inbound,
		SenderID:    payload.Sender.ID,
		ChannelID:   p.cfg.AppID,
		Timestamp:   ts,
		Attachments: attachments,
		Metadata: map[string]any{
			"eventName": payload.EventName,
			"appId":     payload.AppID,
		},
	}
}

// buildZaloPayload maps the common message shape onto the OA wire format.
func buildZaloPayload(msg MessagingMessage) map[string]any {
	payload := map[string]any{
		"recipient": map[string]string{"user_id": msg.RecipientID},
	}

	switch msg.MessageType {
	case KindImage:
		if len(msg.Attachments) > 0 {
			payload["message"] = map[string]any{
				"attachment": map[string]any{
					"type": "template",
					"payload": map[string]any{
						"template_type": "media",
						"elements": []map[string]any{{
							"media_type": "image",
							"url":        msg.Attachments[0].URL,
						}},
					},
				},
			}
			return payload
		}
	case KindFile:
		if len(msg.Attachments) > 0 {
			payload["message"] = map[string]any{
				"attachment": map[string]any{
					"type":    "file",
					"payload": map[string]any{"url": msg.Attachments[0].URL},
				},
			}
			return payload
		}
	}

	payload["message"] = map[string]string{"text": msg.Content}
	return payload
}
