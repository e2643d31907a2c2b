package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/provider"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// ChannelService manages channel records and validates their provider
// configuration before anything is persisted.
type ChannelService struct {
	channels   repository.ChannelRepository
	tickets    repository.TicketRepository
	factory    *provider.Factory
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ChannelDependencies bundles requirements for the channel service.
type ChannelDependencies struct {
	ChannelRepo repository.ChannelRepository
	TicketRepo  repository.TicketRepository
	Factory     *provider.Factory
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewChannelService creates the service.
func NewChannelService(deps ChannelDependencies) *ChannelService {
	return &ChannelService{
		channels:   deps.ChannelRepo,
		tickets:    deps.TicketRepo,
		factory:    deps.Factory,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateChannelInput captures channel creation fields.
type CreateChannelInput struct {
	CompanyID string
	Name      string
	Type      domain.ChannelType
	Config    json.RawMessage
}

// CreateChannel validates the config against the provider schema and
// persists the channel as ACTIVE.
func (s *ChannelService) CreateChannel(ctx context.Context, input CreateChannelInput) (*domain.Channel, error) {
	channel := &domain.Channel{
		CompanyID: input.CompanyID,
		Name:      input.Name,
		Type:      input.Type,
		Status:    domain.ChannelStatusActive,
		Config:    input.Config,
	}
	if err := s.validateConfig(channel); err != nil {
		return nil, err
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("channel created",
		zap.String("channel_id", channel.ID),
		zap.String("type", string(channel.Type)),
		zap.String("company_id", channel.CompanyID))
	return channel, nil
}

// UpdateChannel replaces name and config. A config change evicts the cached
// provider built from the previous credentials.
func (s *ChannelService) UpdateChannel(ctx context.Context, channelID, name string, config json.RawMessage) (*domain.Channel, error) {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	oldType, oldIdentity, identityErr := channelProviderIdentity(channel)

	if name != "" {
		channel.Name = name
	}
	if len(config) > 0 {
		channel.Config = config
	}
	if err := s.validateConfig(channel); err != nil {
		return nil, err
	}
	if err := s.channels.Update(ctx, channel); err != nil {
		return nil, apperrors.MapError(err)
	}

	if identityErr == nil && len(config) > 0 {
		s.factory.EvictChannel(oldType, oldIdentity)
	}
	return channel, nil
}

// GetChannel loads a channel by id.
func (s *ChannelService) GetChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	return s.getChannel(ctx, channelID)
}

// ListChannels returns the company's channels.
func (s *ChannelService) ListChannels(ctx context.Context, companyID string) ([]domain.Channel, error) {
	channels, err := s.channels.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return channels, nil
}

// SetStatus updates the channel lifecycle state and publishes the change.
func (s *ChannelService) SetStatus(ctx context.Context, channelID string, status domain.ChannelStatus, reason string) (*domain.Channel, error) {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel.Status == status {
		return channel, nil
	}
	oldStatus := channel.Status
	if err := s.channels.UpdateStatus(ctx, channelID, status); err != nil {
		return nil, apperrors.MapError(err)
	}
	channel.Status = status

	if s.dispatcher != nil {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventChannelStatusChange,
			ChannelID: channel.ID,
			Actor:     events.Actor{Type: domain.CommentAuthorSystem},
			Timestamp: time.Now(),
			Payload: events.ChannelStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: status,
				Reason:    reason,
			},
		}
		_ = s.dispatcher.Publish(ctx, event)
	}
	return channel, nil
}

// DeleteChannel removes the channel and evicts any cached provider. A channel
// with tickets cannot be deleted; the activity log goes with the channel.
func (s *ChannelService) DeleteChannel(ctx context.Context, channelID string) error {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return err
	}
	referencing, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{ChannelID: &channelID, Limit: 1})
	if err != nil {
		return apperrors.MapError(err)
	}
	if len(referencing) > 0 {
		return apperrors.NewConflict("channel has tickets", map[string]any{"channel_id": channelID})
	}
	if providerType, identity, idErr := channelProviderIdentity(channel); idErr == nil {
		s.factory.EvictChannel(providerType, identity)
	}
	if err := s.channels.Delete(ctx, channelID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TestChannel probes the live credentials. A failed probe flips the channel
// to ERROR; a successful probe on an ERROR channel restores ACTIVE.
func (s *ChannelService) TestChannel(ctx context.Context, channelID string) (provider.ConnectionTestResult, error) {
	channel, err := s.getChannel(ctx, channelID)
	if err != nil {
		return provider.ConnectionTestResult{}, err
	}

	var result provider.ConnectionTestResult
	if channel.Type == domain.ChannelTypeEmail {
		cfg, cfgErr := emailConfigFromChannel(channel)
		if cfgErr != nil {
			return provider.ConnectionTestResult{}, apperrors.NewInvalidConfig("invalid channel configuration", []string{cfgErr.Error()})
		}
		result = s.factory.TestEmailConnection(ctx, cfg)
	} else {
		cfg, cfgErr := messagingConfigFromChannel(channel)
		if cfgErr != nil {
			return provider.ConnectionTestResult{}, apperrors.NewInvalidConfig("invalid channel configuration", []string{cfgErr.Error()})
		}
		result = s.factory.TestMessagingConnection(ctx, cfg)
	}

	switch {
	case !result.Success && channel.Status == domain.ChannelStatusActive:
		if _, err := s.SetStatus(ctx, channelID, domain.ChannelStatusError, "connection test failed"); err != nil {
			s.logger.Warn("failed to flag channel error", zap.String("channel_id", channelID), zap.Error(err))
		}
	case result.Success && channel.Status == domain.ChannelStatusError:
		if _, err := s.SetStatus(ctx, channelID, domain.ChannelStatusActive, "connection test recovered"); err != nil {
			s.logger.Warn("failed to restore channel", zap.String("channel_id", channelID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *ChannelService) getChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("channel", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.MapError(err)
	}
	return channel, nil
}

func (s *ChannelService) validateConfig(channel *domain.Channel) error {
	if channel.Type == domain.ChannelTypeEmail {
		cfg, err := emailConfigFromChannel(channel)
		if err != nil {
			return apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
		}
		if result := s.factory.ValidateEmailConfig(cfg); !result.Valid {
			return apperrors.NewInvalidConfig("invalid channel configuration", result.Errors)
		}
		return nil
	}

	cfg, err := messagingConfigFromChannel(channel)
	if err != nil {
		return apperrors.NewInvalidConfig("invalid channel configuration", []string{err.Error()})
	}
	if result := s.factory.ValidateMessagingConfig(cfg); !result.Valid {
		return apperrors.NewInvalidConfig("invalid channel configuration", result.Errors)
	}
	return nil
}
