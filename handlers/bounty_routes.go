// handlers/bounty_routes.go
package handlers

import (
	"errors"
	"time"

	"tree-mapping-system/middleware"
	"tree-mapping-system/models"
	"tree-mapping-system/services"
	"tree-mapping-system/store"

	"github.com/gofiber/fiber/v2"
)

type createBountyRequest struct {
	ContractZoneID    *string          `json:"contract_zone_id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	ZoneType          models.ZoneType  `json:"zone_type"`
	ZoneIdentifier    string           `json:"zone_identifier"`
	Geometry          models.Geometry  `json:"geometry"`
	BountyAmountCents int              `json:"bounty_amount_cents"`
	BonusThreshold    *int             `json:"bonus_threshold"`
	BonusAmountCents  *int             `json:"bonus_amount_cents"`
	TotalBudgetCents  int              `json:"total_budget_cents"`
	StartsAt          time.Time        `json:"starts_at"`
	ExpiresAt         time.Time        `json:"expires_at"`
	TreeTargetCount   int              `json:"tree_target_count"`
}

type updateBountyRequest struct {
	Title             *string              `json:"title"`
	Description       *string              `json:"description"`
	BountyAmountCents *int                 `json:"bounty_amount_cents"`
	BonusThreshold    *int                 `json:"bonus_threshold"`
	BonusAmountCents  *int                 `json:"bonus_amount_cents"`
	TotalBudgetCents  *int                 `json:"total_budget_cents"`
	Status            *models.BountyStatus `json:"status"`
	StartsAt          *time.Time           `json:"starts_at"`
	ExpiresAt         *time.Time           `json:"expires_at"`
	TreeTargetCount   *int                 `json:"tree_target_count"`
}

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService) {
	securedGroup := app.Group("/bounties", middleware.UserContextMiddleware())

	securedGroup.Post("/", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req createBountyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}

		bounty, err := bountyService.CreateBounty(c.Context(), services.CreateBountyInput{
			CreatorID:         userID,
			ContractZoneID:    req.ContractZoneID,
			Title:             req.Title,
			Description:       req.Description,
			ZoneType:          req.ZoneType,
			ZoneIdentifier:    req.ZoneIdentifier,
			Geometry:          req.Geometry,
			BountyAmountCents: req.BountyAmountCents,
			BonusThreshold:    req.BonusThreshold,
			BonusAmountCents:  req.BonusAmountCents,
			TotalBudgetCents:  req.TotalBudgetCents,
			StartsAt:          req.StartsAt,
			ExpiresAt:         req.ExpiresAt,
			TreeTargetCount:   req.TreeTargetCount,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "contract zone not found"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to create bounty",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bounty": bounty})
	})

	securedGroup.Get("/active", func(c *fiber.Ctx) error {
		bounties, err := bountyService.GetActiveBounties(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list active bounties",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"bounties": bounties})
	})

	securedGroup.Get("/mine", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bounties, err := bountyService.GetMyBounties(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list bounties",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"bounties": bounties})
	})

	securedGroup.Get("/:id", func(c *fiber.Ctx) error {
		bounty, err := bountyService.GetBounty(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "bounty not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get bounty",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"bounty": bounty})
	})

	securedGroup.Patch("/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req updateBountyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		bounty, err := bountyService.UpdateBounty(c.Context(), c.Params("id"), userID, services.UpdateBountyInput{
			Title:             req.Title,
			Description:       req.Description,
			BountyAmountCents: req.BountyAmountCents,
			BonusThreshold:    req.BonusThreshold,
			BonusAmountCents:  req.BonusAmountCents,
			TotalBudgetCents:  req.TotalBudgetCents,
			Status:            req.Status,
			StartsAt:          req.StartsAt,
			ExpiresAt:         req.ExpiresAt,
			TreeTargetCount:   req.TreeTargetCount,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "bounty not found"})
			}
			if errors.Is(err, services.ErrNotBountyOwner) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to update bounty",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"bounty": bounty})
	})

	securedGroup.Get("/:id/leaderboard", func(c *fiber.Ctx) error {
		entries, err := bountyService.GetLeaderboard(c.Context(), c.Params("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "bounty not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"leaderboard": entries})
	})

	earningsGroup := app.Group("/user", middleware.UserContextMiddleware())
	earningsGroup.Get("/earnings", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		earnings, err := bountyService.GetUserEarnings(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get earnings",
				"cause": err.Error(),
			})
		}
		return c.JSON(earnings)
	})
}
