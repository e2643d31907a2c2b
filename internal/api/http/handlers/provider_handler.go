package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/provider"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// ProviderHandler exposes per-channel provider operations: email and
// messaging traffic, connection probes and webhook registration.
type ProviderHandler struct {
	providers *service.ProviderService
}

// NewProviderHandler constructs handler.
func NewProviderHandler(providerService *service.ProviderService) *ProviderHandler {
	return &ProviderHandler{providers: providerService}
}

// Catalog handles GET /providers.
func (h *ProviderHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.providers.Catalog()})
}

// SendEmail handles POST /channels/:id/emails.
func (h *ProviderHandler) SendEmail(c *fiber.Ctx) error {
	var req dto.SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	msg, err := req.ToEmailMessage()
	if err != nil {
		return err
	}

	result, err := h.providers.SendEmail(c.Context(), c.Params("id"), msg)
	if err != nil {
		return err
	}
	return sendEmailResult(c, result)
}

// ReplyEmail handles POST /channels/:id/emails/reply.
func (h *ProviderHandler) ReplyEmail(c *fiber.Ctx) error {
	var req dto.ReplyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	reply := provider.EmailMessage{Body: req.Body, IsHTML: req.IsHTML}
	result, err := h.providers.ReplyToEmail(c.Context(), c.Params("id"), req.OriginalMessageID, reply)
	if err != nil {
		return err
	}
	return sendEmailResult(c, result)
}

// ListEmails handles GET /channels/:id/emails.
func (h *ProviderHandler) ListEmails(c *fiber.Ctx) error {
	opts := provider.EmailListOptions{
		MaxResults: c.QueryInt("max_results", 25),
		PageToken:  c.Query("page_token"),
		Query:      c.Query("q"),
	}
	result, err := h.providers.GetEmails(c.Context(), c.Params("id"), opts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"messages":        result.Messages,
		"next_page_token": result.NextPageToken,
		"total_count":     result.TotalCount,
	}})
}

// GetEmail handles GET /channels/:id/emails/:messageId.
func (h *ProviderHandler) GetEmail(c *fiber.Ctx) error {
	msg, err := h.providers.GetEmail(c.Context(), c.Params("id"), c.Params("messageId"))
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.NewNotFound("email", map[string]any{"message_id": c.Params("messageId")})
	}
	return c.JSON(fiber.Map{"data": msg})
}

// MarkEmailRead handles POST /channels/:id/emails/:messageId/read.
func (h *ProviderHandler) MarkEmailRead(c *fiber.Ctx) error {
	ok, err := h.providers.MarkEmailAsRead(c.Context(), c.Params("id"), c.Params("messageId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": ok}})
}

// DeleteEmail handles DELETE /channels/:id/emails/:messageId.
func (h *ProviderHandler) DeleteEmail(c *fiber.Ctx) error {
	ok, err := h.providers.DeleteEmail(c.Context(), c.Params("id"), c.Params("messageId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": ok}})
}

// EmailProfile handles GET /channels/:id/emails/profile.
func (h *ProviderHandler) EmailProfile(c *fiber.Ctx) error {
	profile, err := h.providers.GetEmailProfile(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}

// SendMessage handles POST /channels/:id/messages.
func (h *ProviderHandler) SendMessage(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	result, err := h.providers.SendMessage(c.Context(), c.Params("id"), req.ToMessagingMessage())
	if err != nil {
		return err
	}
	resp := dto.SendResultResponse{Success: result.Success, MessageID: result.ExternalID, Error: result.Error}
	if !result.Success {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"data": resp})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetContact handles GET /channels/:id/contacts/:contactId.
func (h *ProviderHandler) GetContact(c *fiber.Ctx) error {
	contact, err := h.providers.GetContact(c.Context(), c.Params("id"), c.Params("contactId"))
	if err != nil {
		return err
	}
	if contact == nil {
		return apperrors.NewNotFound("contact", map[string]any{"contact_id": c.Params("contactId")})
	}
	return c.JSON(fiber.Map{"data": contact})
}

// TestConnection handles POST /channels/:id/connection/test. Every call
// probes the upstream API.
func (h *ProviderHandler) TestConnection(c *fiber.Ctx) error {
	result, err := h.providers.TestConnection(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConnectionTestResponse{Success: result.Success, Error: result.Error}})
}

// SetupWebhook handles POST /channels/:id/webhook.
func (h *ProviderHandler) SetupWebhook(c *fiber.Ctx) error {
	ok, err := h.providers.SetupWebhook(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"registered": ok}})
}

func sendEmailResult(c *fiber.Ctx, result provider.EmailSendResult) error {
	resp := dto.SendResultResponse{Success: result.Success, MessageID: result.MessageID, Error: result.Error}
	if !result.Success {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"data": resp})
	}
	return c.JSON(fiber.Map{"data": resp})
}
