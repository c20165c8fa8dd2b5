package payment

import (
	"errors"
	"strings"

	"github.com/amirasaad/presale/pkg/domain"
	"github.com/amirasaad/presale/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// WebhookResponse acknowledges a stored provider event.
type WebhookResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Webhook receives provider notifications. The body is passed on byte for
// byte since the signature covers the exact payload. Rejections are opaque.
func Webhook(svc Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// fasthttp reuses the body buffer after the handler returns.
		payload := append([]byte(nil), c.Body()...)
		if len(payload) == 0 {
			return common.ErrorJSON(c, fiber.StatusBadRequest, "empty request body")
		}

		headers := make(map[string]string)
		for k, v := range c.GetReqHeaders() {
			headers[k] = strings.Join(v, ",")
		}

		evt, err := svc.HandleWebhook(c.UserContext(), payload, headers)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrInvalidSignature):
			return common.ErrorJSON(c, fiber.StatusBadRequest, "invalid signature")
		case errors.Is(err, domain.ErrInvalidPayload):
			return common.ErrorJSON(c, fiber.StatusBadRequest, "invalid payload")
		default:
			log.Errorf("webhook processing failed: %v", err)
			return common.ErrorJSON(c, fiber.StatusInternalServerError, "internal error")
		}

		return c.JSON(WebhookResponse{ID: evt.ID, Status: string(evt.Status)})
	}
}
