package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// Signature headers by provider. The first non-empty one wins; a channel
// only ever receives traffic from its own provider.
var signatureHeaders = []string{
	"X-Hub-Signature-256",             // facebook
	"X-Telegram-Bot-Api-Secret-Token", // telegram
	"X-ZEvent-Signature",              // zalo
}

// WebhooksHandler receives inbound provider pushes. These routes are
// unauthenticated; trust comes from signature verification.
type WebhooksHandler struct {
	providers *service.ProviderService
}

// NewWebhooksHandler constructs handler.
func NewWebhooksHandler(providerService *service.ProviderService) *WebhooksHandler {
	return &WebhooksHandler{providers: providerService}
}

// Verify handles GET /webhooks/:channelId, the subscription handshake.
// Facebook sends hub.mode/hub.verify_token/hub.challenge and expects the
// raw challenge echoed back.
func (h *WebhooksHandler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	verifyToken := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && mode != "subscribe" {
		return apperrors.NewValidationError("unsupported hub.mode", map[string]any{"mode": mode})
	}
	if err := h.providers.VerifyWebhookSubscription(c.Context(), c.Params("channelId"), verifyToken); err != nil {
		return err
	}
	return c.Status(http.StatusOK).SendString(challenge)
}

// Receive handles POST /webhooks/:channelId.
func (h *WebhooksHandler) Receive(c *fiber.Ctx) error {
	var signature string
	for _, header := range signatureHeaders {
		if value := c.Get(header); value != "" {
			signature = value
			break
		}
	}

	// Copy the body; fiber reuses its buffer after the handler returns.
	body := make([]byte, len(c.Body()))
	copy(body, c.Body())

	result, err := h.providers.HandleWebhook(c.Context(), c.Params("channelId"), signature, body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}
