// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// UserContextMiddleware extracts the verified user identity set by the
// Gateway. Identity issuance lives upstream; this service only trusts the
// forwarded headers.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// c.Get returns a view into fiber's reused request buffer; these
		// values outlive the request (persisted on observations), so copy.
		userID := utils.CopyString(c.Get("X-User-ID"))
		rolesStr := utils.CopyString(c.Get("X-User-Roles"))

		if userID == "" {
			log.Printf("❌ [USER_CTX] X-User-ID required but missing: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)
		return c.Next()
	}
}
