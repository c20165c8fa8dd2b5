package payment

import (
	"github.com/amirasaad/presale/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	ReservationID string `json:"reservationId" validate:"required,uuid"`
}

// CheckoutResponse is returned after a successful checkout.
type CheckoutResponse struct {
	TransactionID     string `json:"transactionId"`
	ReservationStatus string `json:"reservationStatus"`
	ClientSecret      string `json:"clientSecret"`
	Provider          string `json:"provider"`
	NextAction        string `json:"nextAction,omitempty"`
}

// Checkout charges a reservation. Failures answer 404 when something is
// missing and 400 otherwise, with the service message passed through.
func Checkout(svc Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[CheckoutRequest](c)
		if input == nil {
			return err // response already written
		}
		reservationID := uuid.MustParse(input.ReservationID)

		result, err := svc.InitiateReservationPayment(c.UserContext(), reservationID)
		if err != nil {
			status := fiber.StatusBadRequest
			if common.ErrorToStatusCode(err) == fiber.StatusNotFound {
				status = fiber.StatusNotFound
			}
			return common.ErrorJSON(c, status, err.Error())
		}

		return c.JSON(CheckoutResponse{
			TransactionID:     result.Transaction.ID.String(),
			ReservationStatus: string(result.Reservation.Status),
			ClientSecret:      result.ClientSecret,
			Provider:          svc.Provider(),
			NextAction:        result.NextAction,
		})
	}
}
