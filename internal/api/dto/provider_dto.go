package dto

import (
	"encoding/base64"

	"github.com/spec-kit/support-desk/internal/provider"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// SendEmailRequest payload for channel email sends.
type SendEmailRequest struct {
	To          []string                 `json:"to" validate:"required,min=1,dive,email"`
	Cc          []string                 `json:"cc" validate:"omitempty,dive,email"`
	Bcc         []string                 `json:"bcc" validate:"omitempty,dive,email"`
	Subject     string                   `json:"subject" validate:"required"`
	Body        string                   `json:"body" validate:"required"`
	IsHTML      bool                     `json:"is_html"`
	Attachments []EmailAttachmentRequest `json:"attachments"`
}

// EmailAttachmentRequest carries base64-encoded file content.
type EmailAttachmentRequest struct {
	Filename    string `json:"filename" validate:"required"`
	Content     string `json:"content" validate:"required,base64"`
	ContentType string `json:"content_type"`
}

// ToEmailMessage converts the request into the provider message shape,
// decoding attachment content.
func (r SendEmailRequest) ToEmailMessage() (provider.EmailMessage, error) {
	msg := provider.EmailMessage{
		To:      r.To,
		Cc:      r.Cc,
		Bcc:     r.Bcc,
		Subject: r.Subject,
		Body:    r.Body,
		IsHTML:  r.IsHTML,
	}
	for _, att := range r.Attachments {
		content, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return provider.EmailMessage{}, apperrors.NewValidationError(
				"attachment content must be base64",
				map[string]any{"filename": att.Filename},
			)
		}
		msg.Attachments = append(msg.Attachments, provider.EmailAttachment{
			Filename:    att.Filename,
			Content:     content,
			ContentType: att.ContentType,
			Size:        int64(len(content)),
		})
	}
	return msg, nil
}

// ReplyEmailRequest payload for threaded replies.
type ReplyEmailRequest struct {
	OriginalMessageID string `json:"original_message_id" validate:"required"`
	Body              string `json:"body" validate:"required"`
	IsHTML            bool   `json:"is_html"`
}

// SendMessageRequest payload for channel messaging sends.
type SendMessageRequest struct {
	RecipientID string                       `json:"recipient_id" validate:"required"`
	Content     string                       `json:"content"`
	MessageType string                       `json:"message_type" validate:"omitempty,oneof=text image file audio video location sticker"`
	Attachments []MessagingAttachmentRequest `json:"attachments"`
	Metadata    map[string]any               `json:"metadata"`
}

// MessagingAttachmentRequest references hosted media by URL.
type MessagingAttachmentRequest struct {
	Type     string `json:"type" validate:"required,oneof=image file audio video"`
	URL      string `json:"url" validate:"required,url"`
	Filename string `json:"filename"`
}

// ToMessagingMessage converts the request into the provider message shape.
func (r SendMessageRequest) ToMessagingMessage() provider.MessagingMessage {
	kind := provider.MessageKind(r.MessageType)
	if kind == "" {
		kind = provider.KindText
	}
	msg := provider.MessagingMessage{
		RecipientID: r.RecipientID,
		Content:     r.Content,
		MessageType: kind,
		Direction:   provider.Outbound,
		Metadata:    r.Metadata,
	}
	for _, att := range r.Attachments {
		msg.Attachments = append(msg.Attachments, provider.MessagingAttachment{
			Type:     provider.MessageKind(att.Type),
			URL:      att.URL,
			Filename: att.Filename,
		})
	}
	return msg
}

// SendResultResponse is the common send outcome shape.
type SendResultResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ConnectionTestResponse reports a live credential probe.
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
