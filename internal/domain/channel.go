package domain

import (
	"encoding/json"
	"time"
)

// ChannelType enumerates supported integration kinds. EMAIL channels carry an
// email provider config (gmail/outlook); the rest carry a messaging config.
type ChannelType string

const (
	ChannelTypeEmail    ChannelType = "EMAIL"
	ChannelTypeFacebook ChannelType = "FACEBOOK"
	ChannelTypeTelegram ChannelType = "TELEGRAM"
	ChannelTypeZalo     ChannelType = "ZALO"
)

// ChannelStatus enumerates channel lifecycle states.
type ChannelStatus string

const (
	ChannelStatusActive   ChannelStatus = "ACTIVE"
	ChannelStatusInactive ChannelStatus = "INACTIVE"
	ChannelStatusError    ChannelStatus = "ERROR"
)

// Channel is a configured integration instance: one email inbox or one
// messaging bot/page. Config is the opaque provider-specific blob; it is
// validated against the provider's schema before any provider is built.
type Channel struct {
	ID        string
	CompanyID string
	Name      string
	Type      ChannelType
	Status    ChannelStatus
	Config    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsMessaging reports whether the channel routes through a messaging provider.
func (c *Channel) IsMessaging() bool {
	switch c.Type {
	case ChannelTypeFacebook, ChannelTypeTelegram, ChannelTypeZalo:
		return true
	}
	return false
}
