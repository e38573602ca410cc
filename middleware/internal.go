// middleware/internal.go
package middleware

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// InternalAPIKeyMiddleware guards callbacks from the AI pipeline. These
// arrive service-to-service, not through the user gateway.
func InternalAPIKeyMiddleware() fiber.Handler {
	expectedKey := os.Getenv("INTERNAL_API_KEY")
	if expectedKey == "" {
		log.Fatal("❌ INTERNAL_API_KEY is not set — AI callbacks cannot be authenticated")
	}

	return func(c *fiber.Ctx) error {
		if c.Get("X-Internal-Api-Key") != expectedKey {
			log.Printf("🚫 [INTERNAL] invalid internal API key for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid internal API key",
			})
		}
		return c.Next()
	}
}
