package payment

import (
	"crypto/subtle"
	"time"

	"github.com/amirasaad/presale/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// ReconcileTokenHeader carries the shared secret of the reconciliation trigger.
const ReconcileTokenHeader = "X-Reconcile-Token"

// RunReconciliation triggers a sweep. The optional "at" query parameter
// (RFC 3339) replaces the current time as the reference date.
func RunReconciliation(svc Service, token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token != "" {
			given := c.Get(ReconcileTokenHeader)
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				return common.ErrorJSON(c, fiber.StatusUnauthorized, "invalid reconciliation token")
			}
		}

		var ref time.Time
		if at := c.Query("at"); at != "" {
			parsed, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return common.ErrorJSON(c, fiber.StatusBadRequest, "at must be an RFC 3339 timestamp")
			}
			ref = parsed
		}

		summary, err := svc.RunNightlyReconciliation(c.UserContext(), ref)
		if err != nil {
			log.Errorf("reconciliation failed: %v", err)
			return common.ErrorJSON(c, fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(summary)
	}
}
