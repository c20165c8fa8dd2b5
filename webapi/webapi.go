// Package webapi assembles the HTTP server of the presale payment engine.
package webapi

import (
	"errors"
	"strings"
	"time"

	"github.com/amirasaad/presale/pkg/app"
	"github.com/amirasaad/presale/webapi/common"
	"github.com/amirasaad/presale/webapi/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			return common.ErrorJSON(c, status, err.Error())
		},
	})

	maxRequests, window := 100, time.Minute
	if a.Config != nil && a.Config.RateLimit != nil {
		maxRequests = a.Config.RateLimit.MaxRequests
		window = a.Config.RateLimit.Window
	}
	fiberApp.Use(limiter.New(limiter.Config{
		Max:          maxRequests,
		Expiration:   window,
		KeyGenerator: clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			return common.ErrorJSON(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Presale payment engine is running! 🚀")
	})

	token := ""
	if a.Config != nil && a.Config.Reconciliation != nil {
		token = a.Config.Reconciliation.TriggerToken
	}
	payment.Routes(fiberApp, a.PaymentService, token)
	return fiberApp
}

// clientKey identifies the caller for rate limiting: the first
// X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientKey(c *fiber.Ctx) string {
	if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return c.IP()
}
