// handlers/zone_routes.go
package handlers

import (
	"errors"
	"strconv"

	"tree-mapping-system/middleware"
	"tree-mapping-system/models"
	"tree-mapping-system/services"
	"tree-mapping-system/store"

	"github.com/gofiber/fiber/v2"
)

func SetupZoneRoutes(app *fiber.App, zoneService *services.ZoneService) {
	securedGroup := app.Group("/zones", middleware.UserContextMiddleware())

	securedGroup.Get("/", func(c *fiber.Ctx) error {
		status := models.ZoneStatus(c.Query("status"))
		summaries, err := zoneService.GetZoneSummaries(c.Context(), status)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list zones",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"zones": summaries})
	})

	securedGroup.Get("/:id", func(c *fiber.Ctx) error {
		zone, err := zoneService.GetZone(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "zone not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get zone",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"zone": zone})
	})

	securedGroup.Get("/:id/trees", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		limit, _ := strconv.Atoi(c.Query("limit", "50"))

		trees, total, err := zoneService.GetZoneTrees(c.Context(), c.Params("id"), page, limit)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "zone not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list zone trees",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"trees": trees,
			"total": total,
			"page":  page,
			"limit": limit,
		})
	})
}
