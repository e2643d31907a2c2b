package service

import (
	"encoding/json"
	"fmt"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/provider"
)

// emailConfigFromChannel decodes the channel's opaque config blob into the
// email provider config.
func emailConfigFromChannel(ch *domain.Channel) (provider.EmailConfig, error) {
	var cfg provider.EmailConfig
	if err := json.Unmarshal(ch.Config, &cfg); err != nil {
		return provider.EmailConfig{}, fmt.Errorf("decode channel %s config: %w", ch.ID, err)
	}
	return cfg, nil
}

// messagingConfigFromChannel decodes the channel's opaque config blob into
// the messaging provider config. When the blob omits the provider tag it is
// derived from the channel type.
func messagingConfigFromChannel(ch *domain.Channel) (provider.MessagingConfig, error) {
	var cfg provider.MessagingConfig
	if err := json.Unmarshal(ch.Config, &cfg); err != nil {
		return provider.MessagingConfig{}, fmt.Errorf("decode channel %s config: %w", ch.ID, err)
	}
	if cfg.Type == "" {
		switch ch.Type {
		case domain.ChannelTypeFacebook:
			if cfg.PageID != "" {
				cfg.Type = provider.MessagingProviderFacebookFanpage
			} else {
				cfg.Type = provider.MessagingProviderFacebook
			}
		case domain.ChannelTypeTelegram:
			cfg.Type = provider.MessagingProviderTelegram
		case domain.ChannelTypeZalo:
			cfg.Type = provider.MessagingProviderZalo
		}
	}
	return cfg, nil
}

// channelProviderIdentity resolves the (provider type, identity) cache key
// parts for a channel, used to evict cached providers on config changes.
func channelProviderIdentity(ch *domain.Channel) (providerType, identity string, err error) {
	if ch.Type == domain.ChannelTypeEmail {
		cfg, err := emailConfigFromChannel(ch)
		if err != nil {
			return "", "", err
		}
		return cfg.Type, cfg.Identity(), nil
	}
	cfg, err := messagingConfigFromChannel(ch)
	if err != nil {
		return "", "", err
	}
	return cfg.Type, cfg.Identity(), nil
}
