package store

import (
	"context"
	"testing"
	"time"

	"tree-mapping-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// squareAround builds a polygon roughly delta degrees around a point.
func squareAround(lng, lat, delta float64) models.Geometry {
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{lng - delta, lat - delta},
		{lng + delta, lat - delta},
		{lng + delta, lat + delta},
		{lng - delta, lat + delta},
		{lng - delta, lat - delta},
	}}).SetSRID(4326)
	return models.Geometry{T: poly}
}

func TestGeometryContains(t *testing.T) {
	g := squareAround(-97.7431, 30.2672, 0.01)
	assert.True(t, geometryContains(g, -97.7431, 30.2672))
	assert.False(t, geometryContains(g, -97.70, 30.2672))
	assert.False(t, geometryContains(models.Geometry{}, -97.7431, 30.2672))
}

func TestResolveTreeCreatesThenMerges(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	tree, isNew, err := st.ResolveTree(ctx, -97.7431, 30.2672, DedupRadiusMeters, time.Now())
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 1, tree.ObservationCount)
	assert.Equal(t, 1, tree.UniqueObserverCount)

	// 3 m away resolves to the same tree
	same, isNew, err := st.ResolveTree(ctx, -97.7431, 30.2672+3.0/111195, DedupRadiusMeters, time.Now())
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, tree.ID, same.ID)

	// 20 m away is a different tree
	other, isNew, err := st.ResolveTree(ctx, -97.7431, 30.2672+20.0/111195, DedupRadiusMeters, time.Now())
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEqual(t, tree.ID, other.ID)
}

func TestNearestTreeWithinPicksClosest(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	far, _, err := st.ResolveTree(ctx, -97.7431, 30.2672+4.0/111195, DedupRadiusMeters, time.Now())
	require.NoError(t, err)
	near, _, err := st.ResolveTree(ctx, -97.7431, 30.2672+20.0/111195, DedupRadiusMeters, time.Now())
	require.NoError(t, err)

	// probe next to the second tree: both may be in range of nothing but
	// the closest within 5 m must win
	found, err := st.NearestTreeWithin(ctx, -97.7431, 30.2672+19.0/111195, DedupRadiusMeters)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, near.ID, found.ID)
	assert.NotEqual(t, far.ID, found.ID)

	// probe beyond every tree's radius
	none, err := st.NearestTreeWithin(ctx, -97.7431, 30.2672+100.0/111195, DedupRadiusMeters)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSetTreeCooldownConditional(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now()

	tree, _, err := st.ResolveTree(ctx, -97.7431, 30.2672, DedupRadiusMeters, now)
	require.NoError(t, err)

	until := now.AddDate(0, 0, 90)
	set, err := st.SetTreeCooldown(ctx, tree.ID, until, now)
	require.NoError(t, err)
	assert.True(t, set)

	// already cooling: conditional write must not land
	set, err = st.SetTreeCooldown(ctx, tree.ID, now.AddDate(0, 0, 180), now)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := st.GetTree(ctx, tree.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CooldownUntil)
	assert.WithinDuration(t, until, *got.CooldownUntil, time.Second)
}

func TestAssignTreeZoneSticky(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now()

	zoneA := &models.ContractZone{
		ZoneType:       models.ZoneTypeStreetCorridor,
		ZoneIdentifier: "congress-ave",
		DisplayName:    "Congress Ave",
		Status:         models.ZoneStatusActive,
		Geometry:       squareAround(-97.7431, 30.2672, 0.01),
	}
	zoneB := &models.ContractZone{
		ZoneType:       models.ZoneTypeZipCode,
		ZoneIdentifier: "78701",
		DisplayName:    "78701",
		Status:         models.ZoneStatusActive,
		Geometry:       squareAround(-97.7431, 30.2672, 0.01),
	}
	st.SeedZone(zoneA)
	st.SeedZone(zoneB)

	tree, _, err := st.ResolveTree(ctx, -97.7431, 30.2672, DedupRadiusMeters, now)
	require.NoError(t, err)

	assigned, err := st.AssignTreeZone(ctx, tree.ID, zoneA.ID)
	require.NoError(t, err)
	assert.True(t, assigned)

	// second assignment is a no-op regardless of zone
	assigned, err = st.AssignTreeZone(ctx, tree.ID, zoneB.ID)
	require.NoError(t, err)
	assert.False(t, assigned)

	got, err := st.GetTree(ctx, tree.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ContractZoneID)
	assert.Equal(t, zoneA.ID, *got.ContractZoneID)

	zA, err := st.GetZone(ctx, zoneA.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, zA.TreesMappedCount)
	zB, err := st.GetZone(ctx, zoneB.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, zB.TreesMappedCount)
}

func TestClaimBestBountyPaysOncePerTree(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now()

	bounty := &models.Bounty{
		CreatorID:         "creator",
		Title:             "Downtown canopy",
		ZoneType:          models.ZoneTypeZipCode,
		ZoneIdentifier:    "78701",
		Geometry:          squareAround(-97.7431, 30.2672, 0.01),
		BountyAmountCents: 50,
		TotalBudgetCents:  10000,
		Status:            models.BountyStatusActive,
		StartsAt:          now.Add(-time.Hour),
		ExpiresAt:         now.Add(time.Hour),
		TreeTargetCount:   100,
	}
	st.SeedBounty(bounty)

	result, err := st.ClaimBestBounty(ctx, "tree-1", "obs-1", "user-1", -97.7431, 30.2672, now)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 50, result.Claim.AmountCents)

	// a second observation on the same tree does not pay again
	result, err = st.ClaimBestBounty(ctx, "tree-1", "obs-2", "user-2", -97.7431, 30.2672, now)
	require.NoError(t, err)
	assert.Nil(t, result)

	got, err := st.GetBounty(ctx, bounty.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.SpentCents)
	assert.Equal(t, 1, got.TreesCompleted)
}

func TestClaimBestBountyPrefersHighestAmount(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now()

	low := &models.Bounty{
		CreatorID: "creator", Title: "Low", ZoneType: models.ZoneTypeZipCode, ZoneIdentifier: "78701",
		Geometry: squareAround(-97.7431, 30.2672, 0.01), BountyAmountCents: 25,
		TotalBudgetCents: 1000, Status: models.BountyStatusActive,
		StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), TreeTargetCount: 10,
	}
	high := &models.Bounty{
		CreatorID: "creator", Title: "High", ZoneType: models.ZoneTypeZipCode, ZoneIdentifier: "78701",
		Geometry: squareAround(-97.7431, 30.2672, 0.01), BountyAmountCents: 75,
		TotalBudgetCents: 1000, Status: models.BountyStatusActive,
		StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), TreeTargetCount: 10,
	}
	st.SeedBounty(low)
	st.SeedBounty(high)

	result, err := st.ClaimBestBounty(ctx, "tree-1", "obs-1", "user-1", -97.7431, 30.2672, now)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "High", result.BountyTitle)
	assert.Equal(t, 75, result.Claim.AmountCents)
}

func TestSweepBounties(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now()

	expired := &models.Bounty{
		CreatorID: "c", Title: "Old", ZoneType: models.ZoneTypeZipCode, ZoneIdentifier: "x",
		BountyAmountCents: 10, TotalBudgetCents: 100, Status: models.BountyStatusActive,
		StartsAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour), TreeTargetCount: 10,
	}
	spent := &models.Bounty{
		CreatorID: "c", Title: "Spent", ZoneType: models.ZoneTypeZipCode, ZoneIdentifier: "y",
		BountyAmountCents: 10, TotalBudgetCents: 100, SpentCents: 100, Status: models.BountyStatusActive,
		StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), TreeTargetCount: 10,
	}
	healthy := &models.Bounty{
		CreatorID: "c", Title: "Healthy", ZoneType: models.ZoneTypeZipCode, ZoneIdentifier: "z",
		BountyAmountCents: 10, TotalBudgetCents: 100, SpentCents: 50, Status: models.BountyStatusActive,
		StartsAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour), TreeTargetCount: 10,
	}
	st.SeedBounty(expired)
	st.SeedBounty(spent)
	st.SeedBounty(healthy)

	changed, err := st.SweepBounties(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)

	got, _ := st.GetBounty(ctx, expired.ID)
	assert.Equal(t, models.BountyStatusExpired, got.Status)
	got, _ = st.GetBounty(ctx, spent.ID)
	assert.Equal(t, models.BountyStatusCompleted, got.Status)

	// untouched rows stay untouched
	got, _ = st.GetBounty(ctx, healthy.ID)
	assert.Equal(t, models.BountyStatusActive, got.Status)
	assert.True(t, got.UpdatedAt.IsZero())
}
