// handlers/tree_routes.go
package handlers

import (
	"errors"
	"strconv"

	"tree-mapping-system/middleware"
	"tree-mapping-system/services"
	"tree-mapping-system/store"

	"github.com/gofiber/fiber/v2"
)

func SetupTreeRoutes(app *fiber.App, treeService *services.TreeService) {
	securedGroup := app.Group("/trees", middleware.UserContextMiddleware())

	securedGroup.Get("/", func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lat is required"})
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lng is required"})
		}
		radius, _ := strconv.ParseFloat(c.Query("radius", "500"), 64)

		trees, err := treeService.GetTreesInRadius(c.Context(), lng, lat, radius)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list trees",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"trees": trees})
	})

	securedGroup.Get("/:id", func(c *fiber.Ctx) error {
		tree, err := treeService.GetTree(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tree not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get tree",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"tree": tree})
	})
}
