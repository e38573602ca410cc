// handlers/upload_routes.go
package handlers

import (
	"tree-mapping-system/middleware"
	"tree-mapping-system/utils"

	"github.com/gofiber/fiber/v2"
)

type presignedURLRequest struct {
	ContentType string `json:"content_type"`
	PhotoType   string `json:"photo_type"`
}

func SetupUploadRoutes(app *fiber.App) {
	securedGroup := app.Group("/uploads", middleware.UserContextMiddleware())

	securedGroup.Post("/presigned-url", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req presignedURLRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ContentType != "image/jpeg" && req.ContentType != "image/heic" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_type must be image/jpeg or image/heic"})
		}
		if req.PhotoType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "photo_type is required"})
		}

		upload, err := utils.CreatePresignedUploadURL(c.Context(), userID, req.ContentType, req.PhotoType)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create presigned URL",
				"cause": err.Error(),
			})
		}
		return c.JSON(upload)
	})
}
