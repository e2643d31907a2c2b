package provider

import (
	"context"
	"time"
)

// Messaging provider type tags.
const (
	MessagingProviderFacebook        = "facebook"
	MessagingProviderFacebookFanpage = "facebook_fanpage"
	MessagingProviderTelegram        = "telegram"
	MessagingProviderZalo            = "zalo"
)

// MessageKind is the closed set of message content kinds.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindFile     MessageKind = "file"
	KindAudio    MessageKind = "audio"
	KindVideo    MessageKind = "video"
	KindLocation MessageKind = "location"
	KindSticker  MessageKind = "sticker"
)

// Direction marks message flow relative to this system.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// MessagingConfig carries credentials for one bot or page. JSON tags match
// the opaque config blob stored on a channel record.
type MessagingConfig struct {
	Type          string `json:"provider"`
	AppID         string `json:"appId,omitempty"`
	AppSecret     string `json:"appSecret,omitempty"`
	AccessToken   string `json:"accessToken,omitempty"`
	BotToken      string `json:"botToken,omitempty"`
	PageID        string `json:"pageId,omitempty"`
	VerifyToken   string `json:"verifyToken,omitempty"`
	WebhookURL    string `json:"webhookUrl,omitempty"`
	WebhookSecret string `json:"webhookSecret,omitempty"`
}

// Identity returns the stable cache identity: app id where present,
// otherwise the bot token.
func (c MessagingConfig) Identity() string {
	if c.AppID != "" {
		return c.AppID
	}
	return c.BotToken
}

// MessagingAttachment references media carried by a message.
type MessagingAttachment struct {
	Type      MessageKind
	URL       string
	Filename  string
	Size      int64
	MimeType  string
	Thumbnail string
}

// MessagingMessage is the common message shape across messaging providers.
type MessagingMessage struct {
	ID          string
	ExternalID  string
	Content     string
	MessageType MessageKind
	Direction   Direction
	SenderID    string
	RecipientID string
	ChannelID   string
	Timestamp   time.Time
	Attachments []MessagingAttachment
	Metadata    map[string]any
	ReplyTo     string
}

// MessagingContact describes a conversation peer.
type MessagingContact struct {
	ID       string
	Name     string
	Avatar   string
	Phone    string
	Email    string
	Metadata map[string]any
}

// MessagingSendResult reports a send outcome; callers branch on Success.
type MessagingSendResult struct {
	Success    bool
	MessageID  string
	ExternalID string
	Timestamp  time.Time
	Error      string
}

// MessagingListOptions filters historical message listing.
type MessagingListOptions struct {
	Limit    int
	Offset   int
	Since    time.Time
	Until    time.Time
	SenderID string
}

// MessagingListResult is one page of historical messages. Providers without a
// history API return an empty page; ingestion for those is webhook-only.
type MessagingListResult struct {
	Messages   []MessagingMessage
	HasMore    bool
	NextOffset int
}

// WebhookEventKind tags the normalized inbound event variants.
type WebhookEventKind string

const (
	EventMessage  WebhookEventKind = "message"
	EventDelivery WebhookEventKind = "delivery"
	EventRead     WebhookEventKind = "read"
	EventPostback WebhookEventKind = "postback"
	EventReferral WebhookEventKind = "referral"
)

// WebhookEvent is a normalized notification derived from a provider's inbound
// push payload. Exactly one variant payload is set, matching Type.
type WebhookEvent struct {
	Type        WebhookEventKind
	Timestamp   time.Time
	SenderID    string
	RecipientID string
	Message     *MessagingMessage
	Delivery    *DeliveryEvent
	Read        *ReadEvent
	Postback    *PostbackEvent
	Referral    *ReferralEvent
}

// DeliveryEvent confirms upstream delivery of previously sent messages.
type DeliveryEvent struct {
	MessageIDs []string
	Watermark  int64
}

// ReadEvent marks all messages up to Watermark as read by the peer.
type ReadEvent struct {
	Watermark int64
}

// PostbackEvent carries a button/callback interaction.
type PostbackEvent struct {
	Payload string
	Title   string
}

// ReferralEvent carries an entry-point referral.
type ReferralEvent struct {
	Ref    string
	Source string
	Type   string
}

// MessagingCapabilities is the static capability matrix a provider reports,
// independent of live account state.
type MessagingCapabilities struct {
	SupportsFiles        bool     `json:"supportsFiles"`
	SupportsImages       bool     `json:"supportsImages"`
	SupportsAudio        bool     `json:"supportsAudio"`
	SupportsVideo        bool     `json:"supportsVideo"`
	SupportsLocation     bool     `json:"supportsLocation"`
	SupportsStickers     bool     `json:"supportsStickers"`
	SupportsRichMessages bool     `json:"supportsRichMessages"`
	MaxFileSize          int64    `json:"maxFileSize"`
	SupportedFileTypes   []string `json:"supportedFileTypes"`
}

// MessagingProvider adapts one third-party messaging API to the common
// contract. VerifyWebhook must pass before ProcessWebhookEvent output is
// trusted whenever a signature is present on the request.
type MessagingProvider interface {
	Initialize(cfg MessagingConfig) error
	TestConnection(ctx context.Context) bool
	SendMessage(ctx context.Context, msg MessagingMessage) MessagingSendResult
	GetMessages(ctx context.Context, opts MessagingListOptions) MessagingListResult
	GetMessage(ctx context.Context, messageID string) *MessagingMessage
	MarkAsRead(ctx context.Context, messageID string) bool
	GetContact(ctx context.Context, contactID string) *MessagingContact
	SetupWebhook(ctx context.Context, webhookURL, verifyToken string) bool
	VerifyWebhook(signature string, body []byte) bool
	ProcessWebhookEvent(ctx context.Context, body []byte) ([]WebhookEvent, error)
	ProviderType() string
	Capabilities() MessagingCapabilities
}
