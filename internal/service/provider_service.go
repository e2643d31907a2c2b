package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/provider"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const webhookDedupTTL = 24 * time.Hour

// ProviderService routes channel operations to the right provider instance:
// it resolves the channel, decodes its config, obtains a provider from the
// factory and records an activity-log entry for successful traffic.
type ProviderService struct {
	channels       repository.ChannelRepository
	messages       repository.ChannelMessageRepository
	factory        *provider.Factory
	intake         *TicketIntakeService
	redis          *persistence.Redis
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	webhookBaseURL string
}

// ProviderDependencies bundles requirements for the provider service.
type ProviderDependencies struct {
	ChannelRepo    repository.ChannelRepository
	MessageRepo    repository.ChannelMessageRepository
	Factory        *provider.Factory
	Intake         *TicketIntakeService
	Redis          *persistence.Redis
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	WebhookBaseURL string
}

// NewProviderService creates the service.
func NewProviderService(deps ProviderDependencies) *ProviderService {
	return &ProviderService{
		channels:       deps.ChannelRepo,
		messages:       deps.MessageRepo,
		factory:        deps.Factory,
		intake:         deps.Intake,
		redis:          deps.Redis,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		webhookBaseURL: strings.TrimRight(deps.WebhookBaseURL, "/"),
	}
}

// SendEmail sends through the channel's mailbox and logs the send on success.
func (s *ProviderService) SendEmail(ctx context.Context, channelID string, msg provider.EmailMessage) (provider.EmailSendResult, error) {
	p, channel, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return provider.EmailSendResult{}, err
	}
	result := p.SendEmail(ctx, msg)
	if result.Success {
		s.logOutboundEmail(ctx, channel, msg, result)
	}
	return result, nil
}

// ReplyToEmail replies within the original email's thread.
func (s *ProviderService) ReplyToEmail(ctx context.Context, channelID, originalMessageID string, reply provider.EmailMessage) (provider.EmailSendResult, error) {
	p, channel, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return provider.EmailSendResult{}, err
	}
	result := p.ReplyToEmail(ctx, originalMessageID, reply)
	if result.Success {
		s.logOutboundEmail(ctx, channel, reply, result)
	}
	return result, nil
}

// GetEmails lists mailbox messages for the channel.
func (s *ProviderService) GetEmails(ctx context.Context, channelID string, opts provider.EmailListOptions) (provider.EmailListResult, error) {
	p, _, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return provider.EmailListResult{}, err
	}
	return p.GetEmails(ctx, opts), nil
}

// GetEmail fetches a single mailbox message.
func (s *ProviderService) GetEmail(ctx context.Context, channelID, messageID string) (*provider.EmailMessage, error) {
	p, _, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return p.GetEmail(ctx, messageID), nil
}

// MarkEmailAsRead flags the message read in the upstream mailbox.
func (s *ProviderService) MarkEmailAsRead(ctx context.Context, channelID, messageID string) (bool, error) {
	p, _, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return false, err
	}
	return p.MarkAsRead(ctx, messageID), nil
}

// DeleteEmail removes the message from the upstream mailbox.
func (s *ProviderService) DeleteEmail(ctx context.Context, channelID, messageID string) (bool, error) {
	p, _, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return false, err
	}
	return p.DeleteEmail(ctx, messageID), nil
}

// GetEmailProfile returns the mailbox owner profile.
func (s *ProviderService) GetEmailProfile(ctx context.Context, channelID string) (provider.UserProfile, error) {
	p, _, err := s.emailProvider(ctx, channelID)
	if err != nil {
		return provider.UserProfile{}, err
	}
	return p.GetUserProfile(ctx), nil
}

// SendMessage sends through the channel's messaging provider and logs the
// send on success.
func (s *ProviderService) SendMessage(ctx context.Context, channelID string, msg provider.MessagingMessage) (provider.MessagingSendResult, error) {
	p, channel, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return provider.MessagingSendResult{}, err
	}
	result := p.SendMessage(ctx, msg)
	if result.Success {
		s.logOutboundMessage(ctx, channel, msg, result)
	}
	return result, nil
}

// GetMessages lists conversation history where the provider supports it.
func (s *ProviderService) GetMessages(ctx context.Context, channelID string, opts provider.MessagingListOptions) (provider.MessagingListResult, error) {
	p, _, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return provider.MessagingListResult{}, err
	}
	return p.GetMessages(ctx, opts), nil
}

// GetContact resolves a conversation peer's profile.
func (s *ProviderService) GetContact(ctx context.Context, channelID, contactID string) (*provider.MessagingContact, error) {
	p, _, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return p.GetContact(ctx, contactID), nil
}

// MarkMessageAsRead flags the conversation read upstream.
func (s *ProviderService) MarkMessageAsRead(ctx context.Context, channelID, messageID string) (bool, error) {
	p, _, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return false, err
	}
	return p.MarkAsRead(ctx, messageID), nil
}

// TestConnection re-probes the channel's live credentials. Every call hits
// the upstream API; nothing is cached.
func (s *ProviderService) TestConnection(ctx context.Context, channelID string) (provider.ConnectionTestResult, error) {
	channel, err := s.resolveChannel(ctx, channelID)
	if err != nil {
		return provider.ConnectionTestResult{}, err
	}
	if channel.Type == domain.ChannelTypeEmail {
		cfg, cfgErr := emailConfigFromChannel(channel)
		if cfgErr != nil {
			return provider.ConnectionTestResult{}, apperrors.NewInvalidConfig("invalid channel configuration", []string{cfgErr.Error()})
		}
		return s.factory.TestEmailConnection(ctx, cfg), nil
	}
	cfg, cfgErr := messagingConfigFromChannel(channel)
	if cfgErr != nil {
		return provider.ConnectionTestResult{}, apperrors.NewInvalidConfig("invalid channel configuration", []string{cfgErr.Error()})
	}
	return s.factory.TestMessagingConnection(ctx, cfg), nil
}

// SetupWebhook registers this service's inbound endpoint with the provider.
func (s *ProviderService) SetupWebhook(ctx context.Context, channelID string) (bool, error) {
	p, channel, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return false, err
	}
	if s.webhookBaseURL == "" {
		return false, apperrors.NewValidationError("webhook base URL is not configured", nil)
	}

	cfg, err := messagingConfigFromChannel(channel)
	if err != nil {
		return false, apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
	}
	webhookURL := s.webhookBaseURL + "/api/v1/webhooks/" + channel.ID
	ok := p.SetupWebhook(ctx, webhookURL, cfg.VerifyToken)
	if ok {
		s.logger.Info("webhook registered",
			zap.String("channel_id", channel.ID),
			zap.String("url", webhookURL))
	}
	return ok, nil
}

// VerifyWebhookSubscription answers a subscription handshake: the provided
// token must match the channel's verify token.
func (s *ProviderService) VerifyWebhookSubscription(ctx context.Context, channelID, verifyToken string) error {
	_, channel, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return err
	}
	cfg, err := messagingConfigFromChannel(channel)
	if err != nil {
		return apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
	}
	if cfg.VerifyToken == "" || subtle.ConstantTimeCompare([]byte(cfg.VerifyToken), []byte(verifyToken)) != 1 {
		return apperrors.NewUnauthorized("verify token mismatch")
	}
	return nil
}

// EmailProviderInfo describes one buildable email provider type.
type EmailProviderInfo struct {
	Type         string                     `json:"type"`
	Capabilities provider.EmailCapabilities `json:"capabilities"`
}

// MessagingProviderInfo describes one buildable messaging provider type.
type MessagingProviderInfo struct {
	Type         string                         `json:"type"`
	Capabilities provider.MessagingCapabilities `json:"capabilities"`
}

// ProviderCatalog lists every provider type the factory can build along with
// its static capability matrix.
type ProviderCatalog struct {
	Email     []EmailProviderInfo     `json:"email"`
	Messaging []MessagingProviderInfo `json:"messaging"`
}

// Catalog reports supported provider types and capabilities. The matrix is
// static; no provider is constructed and nothing touches the network.
func (s *ProviderService) Catalog() ProviderCatalog {
	var catalog ProviderCatalog
	for _, providerType := range s.factory.SupportedEmailProviders() {
		caps, _ := s.factory.EmailProviderCapabilities(providerType)
		catalog.Email = append(catalog.Email, EmailProviderInfo{Type: providerType, Capabilities: caps})
	}
	for _, providerType := range s.factory.SupportedMessagingProviders() {
		caps, _ := s.factory.MessagingProviderCapabilities(providerType)
		catalog.Messaging = append(catalog.Messaging, MessagingProviderInfo{Type: providerType, Capabilities: caps})
	}
	return catalog
}

// WebhookIngestResult summarizes one webhook delivery.
type WebhookIngestResult struct {
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// HandleWebhook verifies, deduplicates and ingests one inbound webhook
// delivery. Per-event failures are collected rather than aborting the batch;
// providers retry the whole delivery on a non-2xx response, so a poison
// event must not block its siblings.
func (s *ProviderService) HandleWebhook(ctx context.Context, channelID, signature string, body []byte) (*WebhookIngestResult, error) {
	p, channel, err := s.messagingProvider(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if !p.VerifyWebhook(signature, body) {
		return nil, apperrors.NewUnauthorized("invalid webhook signature")
	}

	webhookEvents, err := p.ProcessWebhookEvent(ctx, body)
	if err != nil {
		return nil, apperrors.NewValidationError("unprocessable webhook payload", map[string]any{"reason": err.Error()})
	}

	result := &WebhookIngestResult{}
	for _, event := range webhookEvents {
		if event.Type != provider.EventMessage || event.Message == nil {
			result.Skipped++
			continue
		}
		msg := *event.Message
		if msg.SenderID == "" {
			msg.SenderID = event.SenderID
		}

		duplicate, dupErr := s.isDuplicate(ctx, channel.ID, msg.ExternalID)
		if dupErr != nil {
			s.logger.Warn("dedup check failed", zap.String("channel_id", channel.ID), zap.Error(dupErr))
		}
		if duplicate {
			result.Skipped++
			continue
		}

		if ingestErr := s.ingestInbound(ctx, channel, p, msg); ingestErr != nil {
			result.Errors = append(result.Errors, ingestErr.Error())
			s.logger.Error("webhook event ingestion failed",
				zap.String("channel_id", channel.ID),
				zap.String("external_id", msg.ExternalID),
				zap.Error(ingestErr))
			continue
		}
		result.Processed++
	}

	if result.Processed == 0 && len(result.Errors) > 0 {
		return result, apperrors.NewUpstreamFailure("all webhook events failed ingestion", map[string]any{"errors": result.Errors})
	}
	return result, nil
}

func (s *ProviderService) ingestInbound(ctx context.Context, channel *domain.Channel, p provider.MessagingProvider, msg provider.MessagingMessage) error {
	var contact *provider.MessagingContact
	if msg.SenderID != "" {
		contact = p.GetContact(ctx, msg.SenderID)
	}

	record := &domain.ChannelMessage{
		ChannelID:   channel.ID,
		Direction:   domain.DirectionReceived,
		MessageType: string(msg.MessageType),
		Content:     messageBody(msg),
		Metadata:    msg.Metadata,
	}
	if msg.ExternalID != "" {
		externalID := msg.ExternalID
		record.ExternalID = &externalID
	}
	if err := s.messages.Create(ctx, record); err != nil {
		return err
	}

	s.publishMessageEvent(ctx, channel.ID, events.EventMessageReceived, events.ChannelMessagePayload{
		MessageID:   record.ID,
		ExternalID:  msg.ExternalID,
		Direction:   domain.DirectionReceived,
		MessageType: record.MessageType,
		SenderID:    msg.SenderID,
		BodyPreview: stringPreview(record.Content, 120),
	})

	if _, err := s.intake.IngestInboundMessage(ctx, channel, msg, contact); err != nil {
		return err
	}
	return nil
}

// isDuplicate checks the redis dedup key, falling back to the activity log
// when redis is unreachable.
func (s *ProviderService) isDuplicate(ctx context.Context, channelID, externalID string) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	if s.redis != nil && s.redis.Client != nil {
		key := fmt.Sprintf("webhook:dedup:%s:%s", channelID, externalID)
		set, err := s.redis.Client.SetNX(ctx, key, 1, webhookDedupTTL).Result()
		if err == nil {
			return !set, nil
		}
		s.logger.Warn("redis dedup unavailable", zap.Error(err))
	}
	exists, err := s.messages.ExistsByExternalID(ctx, channelID, externalID)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *ProviderService) emailProvider(ctx context.Context, channelID string) (provider.EmailProvider, *domain.Channel, error) {
	channel, err := s.resolveChannel(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if channel.Type != domain.ChannelTypeEmail {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("channel %s is not an email channel", channelID),
			map[string]any{"channel_type": channel.Type},
		)
	}
	cfg, err := emailConfigFromChannel(channel)
	if err != nil {
		return nil, nil, apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
	}
	p, err := s.factory.CreateEmailProvider(cfg)
	if err != nil {
		return nil, nil, mapFactoryError(err)
	}
	return p, channel, nil
}

func (s *ProviderService) messagingProvider(ctx context.Context, channelID string) (provider.MessagingProvider, *domain.Channel, error) {
	channel, err := s.resolveChannel(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if !channel.IsMessaging() {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("channel %s is not a messaging channel", channelID),
			map[string]any{"channel_type": channel.Type},
		)
	}
	cfg, err := messagingConfigFromChannel(channel)
	if err != nil {
		return nil, nil, apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
	}
	p, err := s.factory.CreateMessagingProvider(cfg)
	if err != nil {
		return nil, nil, mapFactoryError(err)
	}
	return p, channel, nil
}

func (s *ProviderService) resolveChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("channel", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.MapError(err)
	}
	return channel, nil
}

func (s *ProviderService) logOutboundEmail(ctx context.Context, channel *domain.Channel, msg provider.EmailMessage, result provider.EmailSendResult) {
	record := &domain.ChannelMessage{
		ChannelID:   channel.ID,
		Direction:   domain.DirectionSent,
		MessageType: "email",
		Content:     stringPreview(msg.Subject+": "+msg.Body, 500),
		Metadata:    map[string]any{"to": msg.To, "subject": msg.Subject},
	}
	if result.MessageID != "" {
		messageID := result.MessageID
		record.ExternalID = &messageID
	}
	if err := s.messages.Create(ctx, record); err != nil {
		s.logger.Warn("failed to log outbound email", zap.String("channel_id", channel.ID), zap.Error(err))
		return
	}
	s.publishMessageEvent(ctx, channel.ID, events.EventMessageSent, events.ChannelMessagePayload{
		MessageID:   record.ID,
		ExternalID:  result.MessageID,
		Direction:   domain.DirectionSent,
		MessageType: "email",
		BodyPreview: stringPreview(msg.Subject, 120),
	})
}

func (s *ProviderService) logOutboundMessage(ctx context.Context, channel *domain.Channel, msg provider.MessagingMessage, result provider.MessagingSendResult) {
	record := &domain.ChannelMessage{
		ChannelID:   channel.ID,
		Direction:   domain.DirectionSent,
		MessageType: string(msg.MessageType),
		Content:     messageBody(msg),
		Metadata:    msg.Metadata,
	}
	if result.ExternalID != "" {
		externalID := result.ExternalID
		record.ExternalID = &externalID
	}
	if err := s.messages.Create(ctx, record); err != nil {
		s.logger.Warn("failed to log outbound message", zap.String("channel_id", channel.ID), zap.Error(err))
		return
	}
	s.publishMessageEvent(ctx, channel.ID, events.EventMessageSent, events.ChannelMessagePayload{
		MessageID:   record.ID,
		ExternalID:  result.ExternalID,
		Direction:   domain.DirectionSent,
		MessageType: record.MessageType,
		SenderID:    msg.RecipientID,
		BodyPreview: stringPreview(record.Content, 120),
	})
}

func (s *ProviderService) publishMessageEvent(ctx context.Context, channelID string, eventType events.EventType, payload events.ChannelMessagePayload) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ChannelID: channelID,
		Actor:     events.Actor{Type: domain.CommentAuthorSystem},
		Timestamp: time.Now(),
		Payload:   payload,
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// mapFactoryError converts factory failures into API errors: unsupported
// provider types and validation failures are client errors, anything else
// surfaces as an upstream failure.
func mapFactoryError(err error) error {
	var unsupported *provider.UnsupportedProviderError
	if errors.As(err, &unsupported) {
		return apperrors.NewUnsupportedProvider(unsupported.Type)
	}
	if strings.HasPrefix(err.Error(), "invalid email config:") || strings.HasPrefix(err.Error(), "invalid messaging config:") {
		return apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
	}
	return apperrors.NewUpstreamFailure("provider initialization failed", map[string]any{"reason": err.Error()})
}
