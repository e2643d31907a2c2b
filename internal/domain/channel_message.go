package domain

import "time"

// MessageDirection marks whether an activity-log entry was sent or received.
type MessageDirection string

const (
	DirectionSent     MessageDirection = "sent"
	DirectionReceived MessageDirection = "received"
)

// ChannelMessage is the append-only activity log record for a channel.
// ExternalID is the provider-assigned message identifier when one exists.
type ChannelMessage struct {
	ID          string
	ChannelID   string
	ExternalID  *string
	Direction   MessageDirection
	MessageType string
	Content     string
	Metadata    map[string]any
	CreatedAt   time.Time
}
