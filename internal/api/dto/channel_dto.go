package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateChannelRequest payload. Config is the provider-specific credential
// blob, validated against the provider schema before persistence.
type CreateChannelRequest struct {
	CompanyID string          `json:"company_id" validate:"required"`
	Name      string          `json:"name" validate:"required,max=120"`
	Type      string          `json:"type" validate:"required,oneof=EMAIL FACEBOOK TELEGRAM ZALO"`
	Config    json.RawMessage `json:"config" validate:"required"`
}

// UpdateChannelRequest payload.
type UpdateChannelRequest struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

// UpdateChannelStatusRequest payload.
type UpdateChannelStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE ERROR"`
	Reason string `json:"reason"`
}

// ChannelResponse is the public channel shape. The credential blob never
// leaves the service; only the provider tag is exposed.
type ChannelResponse struct {
	ID        string               `json:"id"`
	CompanyID string               `json:"company_id"`
	Name      string               `json:"name"`
	Type      domain.ChannelType   `json:"type"`
	Status    domain.ChannelStatus `json:"status"`
	Provider  string               `json:"provider,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewChannelResponse maps a channel to its response shape, redacting config.
func NewChannelResponse(channel *domain.Channel) ChannelResponse {
	var tag struct {
		Provider string `json:"provider"`
	}
	_ = json.Unmarshal(channel.Config, &tag)
	return ChannelResponse{
		ID:        channel.ID,
		CompanyID: channel.CompanyID,
		Name:      channel.Name,
		Type:      channel.Type,
		Status:    channel.Status,
		Provider:  tag.Provider,
		CreatedAt: channel.CreatedAt,
		UpdatedAt: channel.UpdatedAt,
	}
}

// ChannelMessageResponse is one activity-log entry.
type ChannelMessageResponse struct {
	ID          string                  `json:"id"`
	ChannelID   string                  `json:"channel_id"`
	ExternalID  *string                 `json:"external_id,omitempty"`
	Direction   domain.MessageDirection `json:"direction"`
	MessageType string                  `json:"message_type"`
	Content     string                  `json:"content"`
	Metadata    map[string]any          `json:"metadata,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewChannelMessageResponse maps an activity-log record.
func NewChannelMessageResponse(msg *domain.ChannelMessage) ChannelMessageResponse {
	return ChannelMessageResponse{
		ID:          msg.ID,
		ChannelID:   msg.ChannelID,
		ExternalID:  msg.ExternalID,
		Direction:   msg.Direction,
		MessageType: msg.MessageType,
		Content:     msg.Content,
		Metadata:    msg.Metadata,
		CreatedAt:   msg.CreatedAt,
	}
}
