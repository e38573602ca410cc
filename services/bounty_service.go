package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tree-mapping-system/models"
	"tree-mapping-system/store"

	"github.com/gosimple/slug"
)

// BountyService is the monetary ledger around bounty programs. All spend
// goes through the store's locked claim path so spent_cents can never pass
// total_budget_cents, no matter how many claimants race.
type BountyService struct {
	Store store.Store
}

func NewBountyService(st store.Store) *BountyService {
	return &BountyService{Store: st}
}

// ClaimSummary is what gets attached to a submission response when a
// bounty paid out.
type ClaimSummary struct {
	BountyID    string `json:"bounty_id"`
	BountyTitle string `json:"bounty_title"`
	AmountCents int    `json:"amount_cents"`
	ClaimID     string `json:"claim_id"`
}

// CheckAndCreateClaim attempts a payout for a freshly mapped tree. Any
// failure is logged and swallowed — bounty claiming is a best-effort side
// effect and must never fail the observation that triggered it.
func (s *BountyService) CheckAndCreateClaim(ctx context.Context, treeID, observationID, userID string, lng, lat float64) *ClaimSummary {
	result, err := s.Store.ClaimBestBounty(ctx, treeID, observationID, userID, lng, lat, time.Now())
	if err != nil {
		log.Printf("⚠️  [BOUNTY] claim attempt failed for tree %s (obs %s): %v", treeID, observationID, err)
		return nil
	}
	if result == nil {
		return nil
	}

	log.Printf("💰 [BOUNTY] %d cents claimed on bounty %q by user %s for tree %s",
		result.Claim.AmountCents, result.BountyTitle, userID, treeID)
	return &ClaimSummary{
		BountyID:    result.Claim.BountyID,
		BountyTitle: result.BountyTitle,
		AmountCents: result.Claim.AmountCents,
		ClaimID:     result.Claim.ID,
	}
}

// CreateBountyInput mirrors the creation payload. Geometry comes either
// inline as GeoJSON or copied from a contract zone.
type CreateBountyInput struct {
	CreatorID         string
	ContractZoneID    *string
	Title             string
	Description       string
	ZoneType          models.ZoneType
	ZoneIdentifier    string
	Geometry          models.Geometry
	BountyAmountCents int
	BonusThreshold    *int
	BonusAmountCents  *int
	TotalBudgetCents  int
	StartsAt          time.Time
	ExpiresAt         time.Time
	TreeTargetCount   int
}

func (s *BountyService) CreateBounty(ctx context.Context, input CreateBountyInput) (*models.Bounty, error) {
	if input.BountyAmountCents <= 0 || input.TotalBudgetCents <= 0 {
		return nil, errors.New("bounty amounts must be positive")
	}
	if !input.ExpiresAt.After(input.StartsAt) {
		return nil, errors.New("expires_at must be after starts_at")
	}

	geometry := input.Geometry
	if input.ContractZoneID != nil {
		zone, err := s.Store.GetZone(ctx, *input.ContractZoneID)
		if err != nil {
			return nil, fmt.Errorf("resolve contract zone: %w", err)
		}
		geometry = zone.Geometry
	}

	identifier := input.ZoneIdentifier
	if identifier == "" {
		identifier = slug.Make(input.Title)
	}

	bounty := &models.Bounty{
		CreatorID:         input.CreatorID,
		ContractZoneID:    input.ContractZoneID,
		Title:             input.Title,
		Description:       input.Description,
		ZoneType:          input.ZoneType,
		ZoneIdentifier:    identifier,
		Geometry:          geometry,
		BountyAmountCents: input.BountyAmountCents,
		BonusThreshold:    input.BonusThreshold,
		BonusAmountCents:  input.BonusAmountCents,
		TotalBudgetCents:  input.TotalBudgetCents,
		Status:            models.BountyStatusDraft,
		StartsAt:          input.StartsAt,
		ExpiresAt:         input.ExpiresAt,
		TreeTargetCount:   input.TreeTargetCount,
	}
	if err := s.Store.CreateBounty(ctx, bounty); err != nil {
		return nil, err
	}
	return bounty, nil
}

// ErrNotBountyOwner is returned when someone edits a bounty they did not
// create.
var ErrNotBountyOwner = errors.New("you can only update your own bounties")

// UpdateBountyInput carries partial updates; nil fields are left alone.
type UpdateBountyInput struct {
	Title             *string
	Description       *string
	BountyAmountCents *int
	BonusThreshold    *int
	BonusAmountCents  *int
	TotalBudgetCents  *int
	Status            *models.BountyStatus
	StartsAt          *time.Time
	ExpiresAt         *time.Time
	TreeTargetCount   *int
}

func (s *BountyService) UpdateBounty(ctx context.Context, bountyID, creatorID string, input UpdateBountyInput) (*models.Bounty, error) {
	bounty, err := s.Store.GetBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if bounty.CreatorID != creatorID {
		return nil, ErrNotBountyOwner
	}

	if input.Title != nil {
		bounty.Title = *input.Title
	}
	if input.Description != nil {
		bounty.Description = *input.Description
	}
	if input.BountyAmountCents != nil {
		bounty.BountyAmountCents = *input.BountyAmountCents
	}
	if input.BonusThreshold != nil {
		bounty.BonusThreshold = input.BonusThreshold
	}
	if input.BonusAmountCents != nil {
		bounty.BonusAmountCents = input.BonusAmountCents
	}
	if input.TotalBudgetCents != nil {
		bounty.TotalBudgetCents = *input.TotalBudgetCents
	}
	if input.Status != nil {
		bounty.Status = *input.Status
	}
	if input.StartsAt != nil {
		bounty.StartsAt = *input.StartsAt
	}
	if input.ExpiresAt != nil {
		bounty.ExpiresAt = *input.ExpiresAt
	}
	if input.TreeTargetCount != nil {
		bounty.TreeTargetCount = *input.TreeTargetCount
	}

	if err := s.Store.UpdateBounty(ctx, bounty); err != nil {
		return nil, err
	}
	return bounty, nil
}

func (s *BountyService) GetBounty(ctx context.Context, id string) (*models.Bounty, error) {
	return s.Store.GetBounty(ctx, id)
}

func (s *BountyService) GetActiveBounties(ctx context.Context) ([]models.Bounty, error) {
	return s.Store.ActiveBounties(ctx, time.Now())
}

func (s *BountyService) GetMyBounties(ctx context.Context, creatorID string) ([]models.Bounty, error) {
	return s.Store.BountiesByCreator(ctx, creatorID)
}

func (s *BountyService) GetLeaderboard(ctx context.Context, bountyID string) ([]store.LeaderboardEntry, error) {
	return s.Store.BountyLeaderboard(ctx, bountyID, 50)
}

func (s *BountyService) GetUserEarnings(ctx context.Context, userID string) (*store.Earnings, error) {
	return s.Store.UserEarnings(ctx, userID)
}
