package payment

import (
	"github.com/amirasaad/presale/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RoundProgress returns the funding progress of a round.
func RoundProgress(svc Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return common.ErrorJSON(c, fiber.StatusBadRequest, "invalid round id")
		}
		summary, err := svc.RoundProgress(c.UserContext(), id)
		if err != nil {
			return common.ErrorJSON(c, common.ErrorToStatusCode(err), err.Error())
		}
		return c.JSON(summary)
	}
}
