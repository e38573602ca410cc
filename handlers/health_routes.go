// handlers/health_routes.go
package handlers

import (
	"time"

	"tree-mapping-system/store"

	"github.com/gofiber/fiber/v2"
)

// SetupHealthRoutes exposes the liveness endpoint. It bypasses gateway
// auth so infrastructure probes can reach it directly.
func SetupHealthRoutes(app *fiber.App, st store.Store) {
	app.Get("/health", func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if err := st.Ping(c.Context()); err != nil {
			dbStatus = "error"
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"db":        dbStatus,
		})
	})
}
