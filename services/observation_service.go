package services

import (
	"context"
	"log"
	"time"

	"tree-mapping-system/models"
	"tree-mapping-system/store"
	"tree-mapping-system/utils"
)

// AnalysisQueue is the outbound port to the external AI pipeline. Enqueue
// is at-most-once and fire-and-forget: the core never consumes a result
// from it on the success path, and a failed enqueue must not fail the
// submission (the requeue worker picks up stranded observations later).
type AnalysisQueue interface {
	EnqueueObservation(ctx context.Context, observationID string) error
}

// ObservationService orchestrates one submission end to end: tree
// resolution, cooldown gate, zone assignment, persistence, cooldown
// re-evaluation, AI handoff, and the bounty claim attempt.
type ObservationService struct {
	Store    store.Store
	Dedup    *DedupService
	Cooldown *CooldownService
	Zones    *ZoneService
	Bounties *BountyService
	Queue    AnalysisQueue // optional; nil skips the handoff
}

func NewObservationService(st store.Store, dedup *DedupService, cooldown *CooldownService, zones *ZoneService, bounties *BountyService, queue AnalysisQueue) *ObservationService {
	return &ObservationService{
		Store:    st,
		Dedup:    dedup,
		Cooldown: cooldown,
		Zones:    zones,
		Bounties: bounties,
		Queue:    queue,
	}
}

// PhotoInput references an already-uploaded object.
type PhotoInput struct {
	PhotoType  models.PhotoType `json:"photo_type"`
	StorageKey string           `json:"storage_key"`
}

// InspectionInput carries the optional Level 1 inspection fields.
type InspectionInput struct {
	ConditionRating         *string  `json:"condition_rating"`
	HeightEstimateM         *float64 `json:"height_estimate_m"`
	CanopySpreadM           *float64 `json:"canopy_spread_m"`
	CrownDieback            *bool    `json:"crown_dieback"`
	SiteType                *string  `json:"site_type"`
	OverheadUtilityConflict *bool    `json:"overhead_utility_conflict"`
	SidewalkDamage          *bool    `json:"sidewalk_damage"`
	RiskFlag                *bool    `json:"risk_flag"`
}

type CreateObservationInput struct {
	UserID            string
	Latitude          float64
	Longitude         float64
	GPSAccuracyMeters *float64
	Photos            []PhotoInput
	Notes             *string
	Inspection        *InspectionInput
	SkipAI            bool
}

// CreateObservationResult is the submission response body.
type CreateObservationResult struct {
	Tree        *models.Tree        `json:"tree"`
	Observation *models.Observation `json:"observation"`
	IsNewTree   bool                `json:"is_new_tree"`
	Claim       *ClaimSummary       `json:"claim,omitempty"`
}

// CreateObservation runs the reconciliation sequence for one submission.
//
// Failures in the dedup/cooldown/persist path abort the submission;
// failures in zone assignment and bounty claiming degrade to "no zone" /
// "no claim". An observation against a Cooling tree fails fast with a
// ConflictError before anything is written.
func (s *ObservationService) CreateObservation(ctx context.Context, input CreateObservationInput) (*CreateObservationResult, error) {
	now := time.Now()

	// 1. Cooldown gate on the current dedup candidate — read-only, so a
	// rejected submission leaves no trace.
	nearby, err := s.Dedup.FindNearestTree(ctx, input.Longitude, input.Latitude)
	if err != nil {
		return nil, err
	}
	if nearby != nil && s.Cooldown.IsOnCooldown(nearby.CooldownUntil) {
		return nil, &ConflictError{TreeID: nearby.ID, CooldownUntil: *nearby.CooldownUntil}
	}

	// 2. Resolve under the store's submission lock: merge into the
	// nearest tree or create a new one, never both.
	tree, isNew, err := s.Store.ResolveTree(ctx, input.Longitude, input.Latitude, store.DedupRadiusMeters, now)
	if err != nil {
		return nil, err
	}
	// A tree created or cooled between the gate and the lock still rejects.
	if !isNew && s.Cooldown.IsOnCooldown(tree.CooldownUntil) {
		return nil, &ConflictError{TreeID: tree.ID, CooldownUntil: *tree.CooldownUntil}
	}
	if !isNew {
		if err := s.Store.IncrementTreeStats(ctx, tree.ID, now); err != nil {
			return nil, err
		}
	}

	// 3. Zone assignment, best effort.
	if _, err := s.Zones.AssignTreeZone(ctx, tree.ID, input.Longitude, input.Latitude); err != nil {
		log.Printf("⚠️  [OBSERVATION] zone assignment failed for tree %s: %v", tree.ID, err)
	}

	// 4. Persist the observation and its photo records.
	obs := &models.Observation{
		TreeID:            &tree.ID,
		UserID:            input.UserID,
		Latitude:          input.Latitude,
		Longitude:         input.Longitude,
		GPSAccuracyMeters: input.GPSAccuracyMeters,
		Status:            models.ObservationStatusPendingUpload,
		Notes:             input.Notes,
	}
	if insp := input.Inspection; insp != nil {
		obs.ConditionRating = insp.ConditionRating
		obs.HeightEstimateM = insp.HeightEstimateM
		obs.CanopySpreadM = insp.CanopySpreadM
		obs.CrownDieback = insp.CrownDieback
		obs.SiteType = insp.SiteType
		obs.OverheadUtilityConflict = insp.OverheadUtilityConflict
		obs.SidewalkDamage = insp.SidewalkDamage
		obs.RiskFlag = insp.RiskFlag
	}

	photos := make([]models.Photo, len(input.Photos))
	for i, p := range input.Photos {
		photos[i] = models.Photo{PhotoType: p.PhotoType, StorageKey: p.StorageKey}
		if url := utils.PublicURL(p.StorageKey); url != "" {
			photos[i].StorageURL = &url
		}
	}

	if err := s.Store.CreateObservation(ctx, obs, photos); err != nil {
		return nil, err
	}

	// 5. Re-evaluate cooldown against the now-updated history.
	if _, err := s.Cooldown.CheckAndSetCooldown(ctx, tree.ID); err != nil {
		return nil, err
	}

	// 6. Hand off to the AI pipeline and advance status. The skip-AI fast
	// path goes straight to review.
	next := models.ObservationStatusPendingAI
	if input.SkipAI {
		next = models.ObservationStatusPendingReview
	} else if s.Queue != nil {
		if err := s.Queue.EnqueueObservation(ctx, obs.ID); err != nil {
			log.Printf("⚠️  [OBSERVATION] AI enqueue failed for %s (requeue worker will retry): %v", obs.ID, err)
		}
	}
	if err := s.Store.AdvanceObservationStatus(ctx, obs.ID, next); err != nil {
		return nil, err
	}
	obs.Status = next

	// 7. Bounty claim, best effort — never affects the outcome.
	claim := s.Bounties.CheckAndCreateClaim(ctx, tree.ID, obs.ID, input.UserID, input.Longitude, input.Latitude)

	updatedTree, err := s.Store.GetTree(ctx, tree.ID)
	if err != nil {
		return nil, err
	}

	return &CreateObservationResult{
		Tree:        updatedTree,
		Observation: obs,
		IsNewTree:   isNew,
		Claim:       claim,
	}, nil
}

// GetObservation returns one observation with its photos.
func (s *ObservationService) GetObservation(ctx context.Context, id string) (*models.Observation, []models.Photo, error) {
	return s.Store.GetObservation(ctx, id)
}
