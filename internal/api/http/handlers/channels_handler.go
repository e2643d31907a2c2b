package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// ChannelsHandler exposes channel management endpoints.
type ChannelsHandler struct {
	channels *service.ChannelService
	messages repository.ChannelMessageRepository
}

// NewChannelsHandler constructs handler.
func NewChannelsHandler(channelService *service.ChannelService, messages repository.ChannelMessageRepository) *ChannelsHandler {
	return &ChannelsHandler{channels: channelService, messages: messages}
}

// Create handles POST /channels.
func (h *ChannelsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	channel, err := h.channels.CreateChannel(c.Context(), service.CreateChannelInput{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		Type:      domain.ChannelType(req.Type),
		Config:    req.Config,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// Get handles GET /channels/:id.
func (h *ChannelsHandler) Get(c *fiber.Ctx) error {
	channel, err := h.channels.GetChannel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// List handles GET /channels?company_id=...
func (h *ChannelsHandler) List(c *fiber.Ctx) error {
	companyID := c.Query("company_id")
	if companyID == "" {
		return apperrors.NewValidationError("company_id query parameter required", nil)
	}
	channels, err := h.channels.ListChannels(c.Context(), companyID)
	if err != nil {
		return err
	}
	items := make([]dto.ChannelResponse, 0, len(channels))
	for i := range channels {
		items = append(items, dto.NewChannelResponse(&channels[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Update handles PATCH /channels/:id.
func (h *ChannelsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	channel, err := h.channels.UpdateChannel(c.Context(), c.Params("id"), req.Name, req.Config)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// UpdateStatus handles PATCH /channels/:id/status.
func (h *ChannelsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateChannelStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	channel, err := h.channels.SetStatus(c.Context(), c.Params("id"), domain.ChannelStatus(req.Status), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChannelResponse(channel)})
}

// Delete handles DELETE /channels/:id.
func (h *ChannelsHandler) Delete(c *fiber.Ctx) error {
	if err := h.channels.DeleteChannel(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Test handles POST /channels/:id/test.
func (h *ChannelsHandler) Test(c *fiber.Ctx) error {
	result, err := h.channels.TestChannel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ConnectionTestResponse{Success: result.Success, Error: result.Error}})
}

// Messages handles GET /channels/:id/messages (activity log).
func (h *ChannelsHandler) Messages(c *fiber.Ctx) error {
	channel, err := h.channels.GetChannel(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	messages, err := h.messages.ListByChannel(c.Context(), channel.ID, limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.ChannelMessageResponse, 0, len(messages))
	for i := range messages {
		items = append(items, dto.NewChannelMessageResponse(&messages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
