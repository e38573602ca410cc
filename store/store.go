// Package store is the geometry-aware persistence layer. Services talk to
// the Store interface; PostgresStore backs it with PostGIS, MemoryStore
// backs it with go-geom for tests and local development.
package store

import (
	"context"
	"errors"
	"time"

	"tree-mapping-system/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("store: not found")

// DedupRadiusMeters — submissions within this distance of an existing tree
// merge into it.
const DedupRadiusMeters = 5.0

// NearbyTree is the dedup candidate returned by NearestTreeWithin: just
// enough of the tree row to run the cooldown gate without a second read.
type NearbyTree struct {
	ID                  string
	Latitude            float64
	Longitude           float64
	DistanceMeters      float64
	CooldownUntil       *time.Time
	ObservationCount    int
	UniqueObserverCount int
}

// TreeEstimates carries AI-derived aggregates for a tree. Confidence
// gating (only overwrite with higher confidence) happens inside the store
// so the update stays a single conditional write.
type TreeEstimates struct {
	SpeciesCommon     *string
	SpeciesScientific *string
	SpeciesConfidence *float64
	HealthStatus      *string
	HealthConfidence  *float64
	EstimatedDbhCm    *float64
	EstimatedHeightM  *float64
}

// ClaimResult is a successful bounty payout.
type ClaimResult struct {
	Claim       *models.BountyClaim
	BountyTitle string
}

// LeaderboardEntry aggregates one user's standing on a bounty.
type LeaderboardEntry struct {
	UserID           string `json:"user_id"`
	TreesCount       int    `json:"trees_count"`
	TotalEarnedCents int    `json:"total_earned_cents"`
}

// Earnings summarizes a user's claims across all bounties.
type Earnings struct {
	TotalEarnedCents int `json:"total_earned_cents"`
	PendingCents     int `json:"pending_cents"`
}

// Store is the spatial store contract consumed by the reconciliation core.
//
// Counter updates are relative (spent_cents = spent_cents + n), never
// read-modify-write in application memory, so invariants hold under
// concurrent writers.
type Store interface {
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// NearestTreeWithin returns the single closest tree within
	// radiusMeters of the point, or nil if none. Read-only.
	NearestTreeWithin(ctx context.Context, lng, lat, radiusMeters float64) (*NearbyTree, error)

	// ResolveTree finds the nearest tree within radiusMeters or creates a
	// new one (observation_count=1, unique_observer_count=1). Concurrent
	// calls for points in the same spatial cell are serialized, so two
	// submissions of one physical tree can never double-create it.
	ResolveTree(ctx context.Context, lng, lat, radiusMeters float64, now time.Time) (tree *models.Tree, isNew bool, err error)

	GetTree(ctx context.Context, id string) (*models.Tree, error)
	TreesWithin(ctx context.Context, lng, lat, radiusMeters float64) ([]models.Tree, error)
	IncrementTreeStats(ctx context.Context, treeID string, observedAt time.Time) error
	CountDistinctObservers(ctx context.Context, treeID string) (int, error)
	SetTreeObserverCount(ctx context.Context, treeID string, count int) error

	// SetTreeCooldown sets cooldown_until only when the tree is not
	// already cooling at now. Returns whether the write landed.
	SetTreeCooldown(ctx context.Context, treeID string, until, now time.Time) (bool, error)

	// ApplyTreeEstimates overwrites species/health aggregates only when
	// the incoming confidence beats the stored one; measurements always
	// refresh.
	ApplyTreeEstimates(ctx context.Context, treeID string, est TreeEstimates) error

	CreateObservation(ctx context.Context, obs *models.Observation, photos []models.Photo) error
	GetObservation(ctx context.Context, id string) (*models.Observation, []models.Photo, error)

	// AdvanceObservationStatus applies a lifecycle transition; illegal
	// moves per the transition table are rejected.
	AdvanceObservationStatus(ctx context.Context, id string, next models.ObservationStatus) error
	SetObservationAIResults(ctx context.Context, id string, species, health, measurement *string) error
	StaleObservations(ctx context.Context, status models.ObservationStatus, olderThan time.Time, limit int) ([]models.Observation, error)

	// ActiveZoneContaining returns the active zone whose polygon contains
	// the point, or nil. Overlaps tie-break by zone_type then id.
	ActiveZoneContaining(ctx context.Context, lng, lat float64) (*models.ContractZone, error)

	// AssignTreeZone writes tree.contract_zone_id only when it is still
	// null (sticky) and bumps the zone's mapped counter by one on success.
	AssignTreeZone(ctx context.Context, treeID, zoneID string) (bool, error)

	GetZone(ctx context.Context, id string) (*models.ContractZone, error)
	ListZones(ctx context.Context, status models.ZoneStatus) ([]models.ContractZone, error)
	ZoneTrees(ctx context.Context, zoneID string, page, limit int) ([]models.Tree, int64, error)

	CreateBounty(ctx context.Context, b *models.Bounty) error
	UpdateBounty(ctx context.Context, b *models.Bounty) error
	GetBounty(ctx context.Context, id string) (*models.Bounty, error)
	ActiveBounties(ctx context.Context, now time.Time) ([]models.Bounty, error)
	BountiesByCreator(ctx context.Context, creatorID string) ([]models.Bounty, error)

	// ClaimBestBounty runs the whole ledger step under a per-bounty lock:
	// pick the claimable bounty containing the point (highest amount,
	// then highest id) that has not already paid for this tree, compute
	// the payout, insert the claim, and apply the spend — with a budget
	// guard on the update so concurrent claimants cannot overspend.
	// Returns nil when no bounty applies or the budget is exhausted.
	ClaimBestBounty(ctx context.Context, treeID, observationID, userID string, lng, lat float64, now time.Time) (*ClaimResult, error)

	BountyLeaderboard(ctx context.Context, bountyID string, limit int) ([]LeaderboardEntry, error)
	UserEarnings(ctx context.Context, userID string) (*Earnings, error)

	// SweepBounties expires active bounties past expires_at and completes
	// those that met budget or tree target. Returns rows changed.
	SweepBounties(ctx context.Context, now time.Time) (int64, error)
}
