package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramProvider adapts the Telegram Bot API. The bot client is constructed
// without the usual connect-time getMe probe so initialization stays offline;
// TestConnection performs the probe on demand. Telegram has no history API,
// so inbound traffic is webhook-only.
type TelegramProvider struct {
	cfg    MessagingConfig
	bot    *tgbotapi.BotAPI
	logger *zap.Logger

	endpoint string
	client   tgbotapi.HTTPClient
}

// TelegramOption configures the provider.
type TelegramOption func(*TelegramProvider)

// WithTelegramEndpoint overrides the Bot API endpoint format string.
func WithTelegramEndpoint(endpoint string) TelegramOption {
	return func(p *TelegramProvider) {
		p.endpoint = endpoint
	}
}

// WithTelegramHTTPClient swaps the HTTP client used by the bot.
func WithTelegramHTTPClient(client tgbotapi.HTTPClient) TelegramOption {
	return func(p *TelegramProvider) {
		p.client = client
	}
}

// NewTelegramProvider constructs an uninitialized provider.
func NewTelegramProvider(logger *zap.Logger, opts ...TelegramOption) *TelegramProvider {
	p := &TelegramProvider{endpoint: tgbotapi.APIEndpoint, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize validates the config and builds the bot client.
func (p *TelegramProvider) Initialize(cfg MessagingConfig) error {
	if cfg.BotToken == "" {
		return errors.New("telegram: bot token is required")
	}
	p.cfg = cfg

	bot := &tgbotapi.BotAPI{
		Token:  cfg.BotToken,
		Buffer: 100,
		Client: p.client,
	}
	if bot.Client == nil {
		bot.Client = defaultTelegramClient()
	}
	bot.SetAPIEndpoint(p.endpoint)
	p.bot = bot

	p.logger.Info("telegram provider initialized", zap.String("bot_token", maskToken(cfg.BotToken)))
	return nil
}

// TestConnection probes getMe.
func (p *TelegramProvider) TestConnection(ctx context.Context) bool {
	me, err := p.bot.GetMe()
	if err != nil {
		p.logger.Warn("telegram connection test failed", zap.Error(err))
		return false
	}
	return me.ID != 0
}

// SendMessage dispatches to the Bot API method matching the message kind.
func (p *TelegramProvider) SendMessage(ctx context.Context, msg MessagingMessage) MessagingSendResult {
	chatID, err := strconv.ParseInt(msg.RecipientID, 10, 64)
	if err != nil {
		return MessagingSendResult{Success: false, Error: fmt.Sprintf("invalid telegram chat id %q", msg.RecipientID)}
	}

	chattable, err := telegramChattable(chatID, msg)
	if err != nil {
		return MessagingSendResult{Success: false, Error: err.Error()}
	}

	sent, err := p.bot.Send(chattable)
	if err != nil {
		p.logger.Warn("telegram send failed", zap.Error(err))
		return MessagingSendResult{Success: false, Error: err.Error()}
	}

	id := strconv.Itoa(sent.MessageID)
	return MessagingSendResult{
		Success:    true,
		MessageID:  id,
		ExternalID: id,
		Timestamp:  time.Unix(int64(sent.Date), 0),
	}
}

// GetMessages is webhook-only for Telegram; documented empty result.
func (p *TelegramProvider) GetMessages(ctx context.Context, opts MessagingListOptions) MessagingListResult {
	p.logger.Debug("telegram has no history API; messages arrive via webhooks only")
	return MessagingListResult{}
}

// GetMessage is not supported by the Bot API.
func (p *TelegramProvider) GetMessage(ctx context.Context, messageID string) *MessagingMessage {
	return nil
}

// MarkAsRead is a no-op: Telegram marks messages read implicitly.
func (p *TelegramProvider) MarkAsRead(ctx context.Context, messageID string) bool {
	return true
}

// GetContact resolves a private chat peer through getChatMember.
func (p *TelegramProvider) GetContact(ctx context.Context, contactID string) *MessagingContact {
	id, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return nil
	}
	member, err := p.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: id, UserID: id},
	})
	if err != nil {
		p.logger.Warn("telegram contact lookup failed", zap.String("contact_id", contactID), zap.Error(err))
		return nil
	}
	user := member.User
	if user == nil {
		return nil
	}
	return &MessagingContact{
		ID:   strconv.FormatInt(user.ID, 10),
		Name: strings.TrimSpace(user.FirstName + " " + user.LastName),
		Metadata: map[string]any{
			"username":     user.UserName,
			"languageCode": user.LanguageCode,
		},
	}
}

// SetupWebhook registers the callback URL, passing the webhook secret as the
// Bot API secret token when configured.
func (p *TelegramProvider) SetupWebhook(ctx context.Context, webhookURL, verifyToken string) bool {
	params := tgbotapi.Params{"url": webhookURL}
	if p.cfg.WebhookSecret != "" {
		params["secret_token"] = p.cfg.WebhookSecret
	}
	resp, err := p.bot.MakeRequest("setWebhook", params)
	if err != nil {
		p.logger.Warn("telegram webhook setup failed", zap.String("url", webhookURL), zap.Error(err))
		return false
	}
	p.logger.Info("telegram webhook configured", zap.String("url", webhookURL), zap.Bool("ok", resp.Ok))
	return resp.Ok
}

// VerifyWebhook compares the X-Telegram-Bot-Api-Secret-Token header value
// against the configured webhook secret. With no secret configured,
// verification is skipped.
func (p *TelegramProvider) VerifyWebhook(signature string, body []byte) bool {
	if p.cfg.WebhookSecret == "" {
		return true
	}
	return secureCompare(signature, p.cfg.WebhookSecret)
}

// ProcessWebhookEvent normalizes a Bot API update into events. Media file
// paths are resolved through getFile when reachable; failures degrade to an
// attachment without a URL, keeping the file id in metadata.
func (p *TelegramProvider) ProcessWebhookEvent(ctx context.Context, body []byte) ([]WebhookEvent, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return nil, fmt.Errorf("telegram: decode webhook payload: %w", err)
	}

	var events []WebhookEvent
	if update.Message != nil && update.Message.From != nil {
		msg := p.parseTelegramMessage(update.Message)
		events = append(events, WebhookEvent{
			Type:      EventMessage,
			Timestamp: time.Unix(int64(update.Message.Date), 0),
			SenderID:  strconv.FormatInt(update.Message.From.ID, 10),
			Message:   &msg,
		})
	}
	if cb := update.CallbackQuery; cb != nil && cb.From != nil {
		postback := &PostbackEvent{Payload: cb.Data}
		if cb.Message != nil {
			postback.Title = cb.Message.Text
		}
		events = append(events, WebhookEvent{
			Type:      EventPostback,
			Timestamp: time.Now(),
			SenderID:  strconv.FormatInt(cb.From.ID, 10),
			Postback:  postback,
		})
	}
	return events, nil
}

// ProviderType returns the provider tag.
func (p *TelegramProvider) ProviderType() string {
	return MessagingProviderTelegram
}

// Capabilities reports the static capability matrix.
func (p *TelegramProvider) Capabilities() MessagingCapabilities {
	return MessagingCapabilities{
		SupportsFiles:        true,
		SupportsImages:       true,
		SupportsAudio:        true,
		SupportsVideo:        true,
		SupportsLocation:     true,
		SupportsStickers:     true,
		SupportsRichMessages: true,
		MaxFileSize:          50 << 20,
		SupportedFileTypes:   []string{"*/*"},
	}
}

func (p *TelegramProvider) parseTelegramMessage(tm *tgbotapi.Message) MessagingMessage {
	kind := KindText
	content := tm.Text
	if content == "" {
		content = tm.Caption
	}
	var attachments []MessagingAttachment

	switch {
	case len(tm.Photo) > 0:
		kind = KindImage
		photo := tm.Photo[len(tm.Photo)-1] // highest resolution last
		attachments = append(attachments, MessagingAttachment{
			Type: KindImage,
			URL:  p.fileURL(photo.FileID),
			Size: int64(photo.FileSize),
		})
	case tm.Document != nil:
		kind = KindFile
		attachments = append(attachments, MessagingAttachment{
			Type:     KindFile,
			URL:      p.fileURL(tm.Document.FileID),
			Filename: tm.Document.FileName,
			Size:     int64(tm.Document.FileSize),
			MimeType: tm.Document.MimeType,
		})
	case tm.Audio != nil:
		kind = KindAudio
		attachments = append(attachments, MessagingAttachment{
			Type:     KindAudio,
			URL:      p.fileURL(tm.Audio.FileID),
			Size:     int64(tm.Audio.FileSize),
			MimeType: tm.Audio.MimeType,
		})
	case tm.Video != nil:
		kind = KindVideo
		attachments = append(attachments, MessagingAttachment{
			Type:     KindVideo,
			URL:      p.fileURL(tm.Video.FileID),
			Size:     int64(tm.Video.FileSize),
			MimeType: tm.Video.MimeType,
		})
	case tm.Location != nil:
		kind = KindLocation
		content = fmt.Sprintf("Location: %f, %f", tm.Location.Latitude, tm.Location.Longitude)
	case tm.Sticker != nil:
		kind = KindSticker
		content = tm.Sticker.Emoji
		if content == "" {
			content = "Sticker"
		}
		attachments = append(attachments, MessagingAttachment{
			Type: KindImage,
			URL:  p.fileURL(tm.Sticker.FileID),
			Size: int64(tm.Sticker.FileSize),
		})
	}

	metadata := map[string]any{
		"username":  tm.From.UserName,
		"firstName": tm.From.FirstName,
		"lastName":  tm.From.LastName,
	}
	var chatID int64
	if tm.Chat != nil {
		chatID = tm.Chat.ID
		metadata["chatType"] = tm.Chat.Type
		metadata["chatTitle"] = tm.Chat.Title
	}
	if tm.Location != nil {
		metadata["location"] = map[string]float64{
			"latitude":  tm.Location.Latitude,
			"longitude": tm.Location.Longitude,
		}
	}

	return MessagingMessage{
		ExternalID:  strconv.Itoa(tm.MessageID),
		Content:     content,
		MessageType: kind,
		Direction:   Inbound,
		SenderID:    strconv.FormatInt(tm.From.ID, 10),
		ChannelID:   strconv.FormatInt(chatID, 10),
		Timestamp:   time.Unix(int64(tm.Date), 0),
		Attachments: attachments,
		Metadata:    metadata,
	}
}

// fileURL resolves a file id to its download URL via getFile. Bot API file
// references are short-lived, so resolution happens at parse time.
func (p *TelegramProvider) fileURL(fileID string) string {
	file, err := p.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		p.logger.Warn("telegram file resolution failed", zap.String("file_id", fileID), zap.Error(err))
		return ""
	}
	return file.Link(p.cfg.BotToken)
}

func telegramChattable(chatID int64, msg MessagingMessage) (tgbotapi.Chattable, error) {
	firstAttachmentURL := func() (tgbotapi.RequestFileData, error) {
		if len(msg.Attachments) == 0 || msg.Attachments[0].URL == "" {
			return nil, fmt.Errorf("telegram: %s message requires an attachment url", msg.MessageType)
		}
		return tgbotapi.FileURL(msg.Attachments[0].URL), nil
	}

	switch msg.MessageType {
	case KindImage:
		file, err := firstAttachmentURL()
		if err != nil {
			return nil, err
		}
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = msg.Content
		return photo, nil
	case KindFile:
		file, err := firstAttachmentURL()
		if err != nil {
			return nil, err
		}
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = msg.Content
		return doc, nil
	case KindAudio:
		file, err := firstAttachmentURL()
		if err != nil {
			return nil, err
		}
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = msg.Content
		return audio, nil
	case KindVideo:
		file, err := firstAttachmentURL()
		if err != nil {
			return nil, err
		}
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = msg.Content
		return video, nil
	case KindLocation:
		lat, latOK := metadataFloat(msg.Metadata, "latitude")
		lon, lonOK := metadataFloat(msg.Metadata, "longitude")
		if !latOK || !lonOK {
			return nil, errors.New("telegram: location message requires latitude and longitude metadata")
		}
		return tgbotapi.NewLocation(chatID, lat, lon), nil
	default:
		return tgbotapi.NewMessage(chatID, msg.Content), nil
	}
}

func metadataFloat(metadata map[string]any, key string) (float64, bool) {
	if metadata == nil {
		return 0, false
	}
	switch v := metadata[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func defaultTelegramClient() tgbotapi.HTTPClient {
	return &http.Client{Timeout: 30 * time.Second}
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "..."
	}
	return token[:10] + "..."
}
