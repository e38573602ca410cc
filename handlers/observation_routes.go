// handlers/observation_routes.go
package handlers

import (
	"errors"

	"tree-mapping-system/middleware"
	"tree-mapping-system/services"
	"tree-mapping-system/store"

	"github.com/gofiber/fiber/v2"
)

type createObservationRequest struct {
	Latitude          float64                    `json:"latitude"`
	Longitude         float64                    `json:"longitude"`
	GPSAccuracyMeters *float64                   `json:"gps_accuracy_meters"`
	Photos            []services.PhotoInput      `json:"photos"`
	Notes             *string                    `json:"notes"`
	Inspection        *services.InspectionInput  `json:"inspection"`
	SkipAI            bool                       `json:"skip_ai"`
}

func SetupObservationRoutes(app *fiber.App, observationService *services.ObservationService, treeService *services.TreeService) {
	securedGroup := app.Group("/observations", middleware.UserContextMiddleware())

	securedGroup.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req createObservationRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coordinates out of range"})
		}
		if len(req.Photos) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "at least one photo is required"})
		}
		for _, p := range req.Photos {
			if p.StorageKey == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo storage_key is required"})
			}
		}

		result, err := observationService.CreateObservation(c.Context(), services.CreateObservationInput{
			UserID:            userID,
			Latitude:          req.Latitude,
			Longitude:         req.Longitude,
			GPSAccuracyMeters: req.GPSAccuracyMeters,
			Photos:            req.Photos,
			Notes:             req.Notes,
			Inspection:        req.Inspection,
			SkipAI:            req.SkipAI,
		})
		if err != nil {
			var conflict *services.ConflictError
			if errors.As(err, &conflict) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error":          "tree is on cooldown",
					"tree_id":        conflict.TreeID,
					"cooldown_until": conflict.CooldownUntil,
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create observation",
				"cause": err.Error(),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(result)
	})

	securedGroup.Get("/:id", func(c *fiber.Ctx) error {
		obs, photos, err := observationService.GetObservation(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "observation not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get observation",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"observation": obs, "photos": photos})
	})

	// AI pipeline callback — internal key auth, not gateway user context
	internal := app.Group("/internal", middleware.InternalAPIKeyMiddleware())

	internal.Post("/observations/:id/ai-result", func(c *fiber.Ctx) error {
		var result services.AIResult
		if err := c.BodyParser(&result); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid AI result payload"})
		}

		if err := treeService.IngestAIResult(c.Context(), c.Params("id"), result); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "observation not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to ingest AI result",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"success": true})
	})
}
