package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tree-mapping-system/models"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// MemoryStore is an in-process Store used by tests and local development.
// One mutex guards everything; the submission serialization Postgres gets
// from advisory locks falls out of that for free.
type MemoryStore struct {
	mu sync.Mutex

	trees        map[string]*models.Tree
	observations map[string]*models.Observation
	photos       map[string][]models.Photo
	zones        map[string]*models.ContractZone
	bounties     map[string]*models.Bounty
	claims       map[string]*models.BountyClaim
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trees:        map[string]*models.Tree{},
		observations: map[string]*models.Observation{},
		photos:       map[string][]models.Photo{},
		zones:        map[string]*models.ContractZone{},
		bounties:     map[string]*models.Bounty{},
		claims:       map[string]*models.BountyClaim{},
	}
}

// SeedZone and SeedBounty load externally authored rows, mirroring what
// contract management tooling writes directly to Postgres.
func (s *MemoryStore) SeedZone(zone *models.ContractZone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zone.ID == "" {
		zone.ID = uuid.NewString()
	}
	s.zones[zone.ID] = zone
}

func (s *MemoryStore) SeedBounty(b *models.Bounty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	s.bounties[b.ID] = b
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func geometryContains(g models.Geometry, lng, lat float64) bool {
	if g.T == nil {
		return false
	}
	point := geom.Coord{lng, lat}
	switch t := g.T.(type) {
	case *geom.Polygon:
		return polygonContains(t, point)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), point) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, point geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(p.Layout(), point, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), point, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) nearestLocked(lng, lat, radiusMeters float64) (*models.Tree, float64) {
	var best *models.Tree
	bestDist := 0.0
	for _, tree := range s.trees {
		d := haversineMeters(lng, lat, tree.Longitude, tree.Latitude)
		if d > radiusMeters {
			continue
		}
		if best == nil || d < bestDist || (d == bestDist && tree.ID < best.ID) {
			best = tree
			bestDist = d
		}
	}
	return best, bestDist
}

func (s *MemoryStore) NearestTreeWithin(_ context.Context, lng, lat, radiusMeters float64) (*NearbyTree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, dist := s.nearestLocked(lng, lat, radiusMeters)
	if tree == nil {
		return nil, nil
	}
	return &NearbyTree{
		ID:                  tree.ID,
		Latitude:            tree.Latitude,
		Longitude:           tree.Longitude,
		DistanceMeters:      dist,
		CooldownUntil:       tree.CooldownUntil,
		ObservationCount:    tree.ObservationCount,
		UniqueObserverCount: tree.UniqueObserverCount,
	}, nil
}

func (s *MemoryStore) ResolveTree(_ context.Context, lng, lat, radiusMeters float64, now time.Time) (*models.Tree, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, _ := s.nearestLocked(lng, lat, radiusMeters); existing != nil {
		copied := *existing
		return &copied, false, nil
	}

	observedAt := now
	tree := &models.Tree{
		ID:                  uuid.NewString(),
		Latitude:            lat,
		Longitude:           lng,
		ObservationCount:    1,
		UniqueObserverCount: 1,
		LastObservedAt:      &observedAt,
		VerificationTier:    models.VerificationTierUnverified,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.trees[tree.ID] = tree
	copied := *tree
	return &copied, true, nil
}

func (s *MemoryStore) GetTree(_ context.Context, id string) (*models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *tree
	return &copied, nil
}

func (s *MemoryStore) TreesWithin(_ context.Context, lng, lat, radiusMeters float64) ([]models.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type entry struct {
		tree models.Tree
		dist float64
	}
	var matches []entry
	for _, tree := range s.trees {
		d := haversineMeters(lng, lat, tree.Longitude, tree.Latitude)
		if d <= radiusMeters {
			matches = append(matches, entry{*tree, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })

	trees := make([]models.Tree, len(matches))
	for i, m := range matches {
		trees[i] = m.tree
	}
	return trees, nil
}

func (s *MemoryStore) IncrementTreeStats(_ context.Context, treeID string, observedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[treeID]
	if !ok {
		return ErrNotFound
	}
	tree.ObservationCount++
	tree.LastObservedAt = &observedAt
	tree.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CountDistinctObservers(_ context.Context, treeID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := map[string]struct{}{}
	for _, obs := range s.observations {
		if obs.TreeID != nil && *obs.TreeID == treeID {
			users[obs.UserID] = struct{}{}
		}
	}
	return len(users), nil
}

func (s *MemoryStore) SetTreeObserverCount(_ context.Context, treeID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[treeID]
	if !ok {
		return ErrNotFound
	}
	tree.UniqueObserverCount = count
	tree.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetTreeCooldown(_ context.Context, treeID string, until, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[treeID]
	if !ok {
		return false, ErrNotFound
	}
	if tree.CooldownUntil != nil && tree.CooldownUntil.After(now) {
		return false, nil
	}
	tree.CooldownUntil = &until
	tree.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) ApplyTreeEstimates(_ context.Context, treeID string, est TreeEstimates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[treeID]
	if !ok {
		return ErrNotFound
	}

	if est.SpeciesConfidence != nil &&
		(tree.SpeciesConfidence == nil || *est.SpeciesConfidence > *tree.SpeciesConfidence) {
		tree.SpeciesCommon = est.SpeciesCommon
		tree.SpeciesScientific = est.SpeciesScientific
		tree.SpeciesConfidence = est.SpeciesConfidence
	}
	if est.HealthConfidence != nil &&
		(tree.HealthConfidence == nil || *est.HealthConfidence > *tree.HealthConfidence) {
		tree.HealthStatus = est.HealthStatus
		tree.HealthConfidence = est.HealthConfidence
	}
	if est.EstimatedDbhCm != nil {
		tree.EstimatedDbhCm = est.EstimatedDbhCm
	}
	if est.EstimatedHeightM != nil {
		tree.EstimatedHeightM = est.EstimatedHeightM
	}
	tree.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) CreateObservation(_ context.Context, obs *models.Observation, photos []models.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	now := time.Now()
	obs.CreatedAt = now
	obs.UpdatedAt = now

	copied := *obs
	s.observations[obs.ID] = &copied
	for i := range photos {
		if photos[i].ID == "" {
			photos[i].ID = uuid.NewString()
		}
		photos[i].ObservationID = obs.ID
		photos[i].CreatedAt = now
	}
	s.photos[obs.ID] = append(s.photos[obs.ID], photos...)
	return nil
}

func (s *MemoryStore) GetObservation(_ context.Context, id string) (*models.Observation, []models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.observations[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	copied := *obs
	return &copied, append([]models.Photo(nil), s.photos[id]...), nil
}

func (s *MemoryStore) AdvanceObservationStatus(_ context.Context, id string, next models.ObservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.observations[id]
	if !ok {
		return ErrNotFound
	}
	if !obs.Status.CanTransitionTo(next) {
		return fmt.Errorf("observation %s: illegal status transition %s -> %s", id, obs.Status, next)
	}
	obs.Status = next
	obs.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetObservationAIResults(_ context.Context, id string, species, health, measurement *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs, ok := s.observations[id]
	if !ok {
		return ErrNotFound
	}
	obs.AISpeciesResult = species
	obs.AIHealthResult = health
	obs.AIMeasurementResult = measurement
	obs.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) StaleObservations(_ context.Context, status models.ObservationStatus, olderThan time.Time, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []models.Observation
	for _, obs := range s.observations {
		if obs.Status == status && obs.UpdatedAt.Before(olderThan) {
			stale = append(stale, *obs)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *MemoryStore) ActiveZoneContaining(_ context.Context, lng, lat float64) (*models.ContractZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []*models.ContractZone
	for _, zone := range s.zones {
		if zone.Status == models.ZoneStatusActive && geometryContains(zone.Geometry, lng, lat) {
			matches = append(matches, zone)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ZoneType != matches[j].ZoneType {
			return matches[i].ZoneType < matches[j].ZoneType
		}
		return matches[i].ID < matches[j].ID
	})
	copied := *matches[0]
	return &copied, nil
}

func (s *MemoryStore) AssignTreeZone(_ context.Context, treeID, zoneID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.trees[treeID]
	if !ok {
		return false, ErrNotFound
	}
	if tree.ContractZoneID != nil {
		return false, nil
	}
	zone, ok := s.zones[zoneID]
	if !ok {
		return false, ErrNotFound
	}
	id := zoneID
	tree.ContractZoneID = &id
	tree.UpdatedAt = time.Now()
	zone.TreesMappedCount++
	return true, nil
}

func (s *MemoryStore) GetZone(_ context.Context, id string) (*models.ContractZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *zone
	return &copied, nil
}

func (s *MemoryStore) ListZones(_ context.Context, status models.ZoneStatus) ([]models.ContractZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zones []models.ContractZone
	for _, zone := range s.zones {
		if status == "" || zone.Status == status {
			zones = append(zones, *zone)
		}
	}
	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Status != zones[j].Status {
			return zones[i].Status < zones[j].Status
		}
		return zones[i].DisplayName < zones[j].DisplayName
	})
	return zones, nil
}

func (s *MemoryStore) ZoneTrees(_ context.Context, zoneID string, page, limit int) ([]models.Tree, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zoneID]; !ok {
		return nil, 0, ErrNotFound
	}
	var trees []models.Tree
	for _, tree := range s.trees {
		if tree.ContractZoneID != nil && *tree.ContractZoneID == zoneID {
			trees = append(trees, *tree)
		}
	}
	sort.Slice(trees, func(i, j int) bool {
		ti, tj := trees[i].LastObservedAt, trees[j].LastObservedAt
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
	total := int64(len(trees))
	start := (page - 1) * limit
	if start >= len(trees) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(trees) {
		end = len(trees)
	}
	return trees[start:end], total, nil
}

func (s *MemoryStore) CreateBounty(_ context.Context, b *models.Bounty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	copied := *b
	s.bounties[b.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateBounty(_ context.Context, b *models.Bounty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bounties[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now()
	copied := *b
	s.bounties[b.ID] = &copied
	return nil
}

func (s *MemoryStore) GetBounty(_ context.Context, id string) (*models.Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bounty, ok := s.bounties[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *bounty
	return &copied, nil
}

func (s *MemoryStore) ActiveBounties(_ context.Context, now time.Time) ([]models.Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bounties []models.Bounty
	for _, b := range s.bounties {
		if b.Status == models.BountyStatusActive && !b.StartsAt.After(now) && b.ExpiresAt.After(now) {
			bounties = append(bounties, *b)
		}
	}
	sort.Slice(bounties, func(i, j int) bool {
		return bounties[i].BountyAmountCents > bounties[j].BountyAmountCents
	})
	return bounties, nil
}

func (s *MemoryStore) BountiesByCreator(_ context.Context, creatorID string) ([]models.Bounty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bounties []models.Bounty
	for _, b := range s.bounties {
		if b.CreatorID == creatorID {
			bounties = append(bounties, *b)
		}
	}
	sort.Slice(bounties, func(i, j int) bool {
		return bounties[i].CreatedAt.After(bounties[j].CreatedAt)
	})
	return bounties, nil
}

func (s *MemoryStore) ClaimBestBounty(_ context.Context, treeID, observationID, userID string, lng, lat float64, now time.Time) (*ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*models.Bounty
	for _, b := range s.bounties {
		if !b.IsClaimable(now) || !geometryContains(b.Geometry, lng, lat) {
			continue
		}
		alreadyClaimed := false
		for _, claim := range s.claims {
			if claim.BountyID == b.ID && claim.TreeID == treeID {
				alreadyClaimed = true
				break
			}
		}
		if !alreadyClaimed {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].BountyAmountCents != candidates[j].BountyAmountCents {
			return candidates[i].BountyAmountCents > candidates[j].BountyAmountCents
		}
		return candidates[i].ID > candidates[j].ID
	})

	bounty := candidates[0]
	amount := bounty.NextPayoutCents()
	if amount <= 0 {
		return nil, nil
	}

	claim := &models.BountyClaim{
		ID:            uuid.NewString(),
		BountyID:      bounty.ID,
		UserID:        userID,
		TreeID:        treeID,
		ObservationID: observationID,
		AmountCents:   amount,
		Status:        models.BountyClaimStatusPending,
		CreatedAt:     time.Now(),
	}
	s.claims[claim.ID] = claim
	bounty.SpentCents += amount
	bounty.TreesCompleted++
	bounty.UpdatedAt = time.Now()

	copied := *claim
	return &ClaimResult{Claim: &copied, BountyTitle: bounty.Title}, nil
}

func (s *MemoryStore) BountyLeaderboard(_ context.Context, bountyID string, limit int) ([]LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bounties[bountyID]; !ok {
		return nil, ErrNotFound
	}

	byUser := map[string]*LeaderboardEntry{}
	for _, claim := range s.claims {
		if claim.BountyID != bountyID || claim.Status == models.BountyClaimStatusRejected {
			continue
		}
		entry, ok := byUser[claim.UserID]
		if !ok {
			entry = &LeaderboardEntry{UserID: claim.UserID}
			byUser[claim.UserID] = entry
		}
		entry.TreesCount++
		entry.TotalEarnedCents += claim.AmountCents
	}

	entries := make([]LeaderboardEntry, 0, len(byUser))
	for _, entry := range byUser {
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TotalEarnedCents > entries[j].TotalEarnedCents
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) UserEarnings(_ context.Context, userID string) (*Earnings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	earnings := &Earnings{}
	for _, claim := range s.claims {
		if claim.UserID != userID {
			continue
		}
		switch claim.Status {
		case models.BountyClaimStatusApproved, models.BountyClaimStatusPaid:
			earnings.TotalEarnedCents += claim.AmountCents
		case models.BountyClaimStatusPending:
			earnings.PendingCents += claim.AmountCents
		}
	}
	return earnings, nil
}

func (s *MemoryStore) SweepBounties(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, b := range s.bounties {
		if b.Status != models.BountyStatusActive {
			continue
		}
		switch {
		case !b.ExpiresAt.After(now):
			b.Status = models.BountyStatusExpired
			b.UpdatedAt = time.Now()
			changed++
		case b.SpentCents >= b.TotalBudgetCents,
			b.TreeTargetCount > 0 && b.TreesCompleted >= b.TreeTargetCount:
			b.Status = models.BountyStatusCompleted
			b.UpdatedAt = time.Now()
			changed++
		}
	}
	return changed, nil
}

var _ Store = (*MemoryStore)(nil)
