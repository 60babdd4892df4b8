package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// APIKeyAuth checks for a valid API key. An empty validKey disables the check.
func APIKeyAuth(validKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if validKey == "" {
			return c.Next()
		}

		// Check header first
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":  apperrors.ErrUnauthorized.Code,
				"error": apperrors.ErrUnauthorized.Message,
				"hint":  "Provide X-API-Key header or api_key query parameter",
			})
		}

		return c.Next()
	}
}
