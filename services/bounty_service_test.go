package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tree-mapping-system/models"
	"tree-mapping-system/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeBounty(now time.Time) *models.Bounty {
	return &models.Bounty{
		CreatorID:         "creator",
		Title:             "East side canopy",
		ZoneType:          models.ZoneTypeZipCode,
		ZoneIdentifier:    "78702",
		Geometry:          testGeometry(-97.72, 30.26, 0.05),
		BountyAmountCents: 30,
		TotalBudgetCents:  100,
		Status:            models.BountyStatusActive,
		StartsAt:          now.Add(-time.Hour),
		ExpiresAt:         now.Add(24 * time.Hour),
		TreeTargetCount:   100,
	}
}

func TestCheckAndCreateClaimNeverOverspends(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBountyService(st)
	bounty := activeBounty(time.Now())
	st.SeedBounty(bounty)

	// budget 100, payout 30: at most 4 claims land (30+30+30+10)
	var wg sync.WaitGroup
	summaries := make([]*ClaimSummary, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			treeID := fmt.Sprintf("tree-%d", i)
			summaries[i] = svc.CheckAndCreateClaim(context.Background(), treeID, "obs-"+treeID, "user-1", -97.72, 30.26)
		}(i)
	}
	wg.Wait()

	total := 0
	claims := 0
	for _, s := range summaries {
		if s != nil {
			claims++
			total += s.AmountCents
		}
	}
	assert.Equal(t, 4, claims)
	assert.Equal(t, 100, total)

	got, err := st.GetBounty(context.Background(), bounty.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.SpentCents)
	assert.LessOrEqual(t, got.SpentCents, got.TotalBudgetCents)
}

func TestCheckAndCreateClaimOutsideGeometry(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBountyService(st)
	st.SeedBounty(activeBounty(time.Now()))

	summary := svc.CheckAndCreateClaim(context.Background(), "tree-1", "obs-1", "user-1", -97.90, 30.26)
	assert.Nil(t, summary)
}

func TestCreateBountyValidation(t *testing.T) {
	svc := NewBountyService(store.NewMemoryStore())
	now := time.Now()

	_, err := svc.CreateBounty(context.Background(), CreateBountyInput{
		CreatorID:         "creator",
		Title:             "Bad",
		BountyAmountCents: 0,
		TotalBudgetCents:  100,
		StartsAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	assert.Error(t, err)

	_, err = svc.CreateBounty(context.Background(), CreateBountyInput{
		CreatorID:         "creator",
		Title:             "Bad window",
		BountyAmountCents: 10,
		TotalBudgetCents:  100,
		StartsAt:          now.Add(time.Hour),
		ExpiresAt:         now,
	})
	assert.Error(t, err)
}

func TestCreateBountyDefaultsIdentifierFromTitle(t *testing.T) {
	svc := NewBountyService(store.NewMemoryStore())
	now := time.Now()

	bounty, err := svc.CreateBounty(context.Background(), CreateBountyInput{
		CreatorID:         "creator",
		Title:             "Mueller Lake Park",
		ZoneType:          models.ZoneTypeStreetCorridor,
		BountyAmountCents: 10,
		TotalBudgetCents:  100,
		StartsAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "mueller-lake-park", bounty.ZoneIdentifier)
	assert.Equal(t, models.BountyStatusDraft, bounty.Status)
}

func TestCreateBountyCopiesZoneGeometry(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBountyService(st)
	now := time.Now()

	zone := &models.ContractZone{
		ZoneType:       models.ZoneTypeZipCode,
		ZoneIdentifier: "78701",
		DisplayName:    "Downtown",
		Status:         models.ZoneStatusActive,
		Geometry:       testGeometry(-97.7431, 30.2672, 0.01),
	}
	st.SeedZone(zone)

	bounty, err := svc.CreateBounty(context.Background(), CreateBountyInput{
		CreatorID:         "creator",
		ContractZoneID:    &zone.ID,
		Title:             "Downtown drive",
		ZoneType:          zone.ZoneType,
		ZoneIdentifier:    zone.ZoneIdentifier,
		BountyAmountCents: 10,
		TotalBudgetCents:  100,
		StartsAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NotNil(t, bounty.Geometry.T)
}

func TestUpdateBountyOwnership(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewBountyService(st)
	now := time.Now()

	bounty, err := svc.CreateBounty(context.Background(), CreateBountyInput{
		CreatorID:         "creator",
		Title:             "Mine",
		ZoneType:          models.ZoneTypeZipCode,
		ZoneIdentifier:    "78701",
		BountyAmountCents: 10,
		TotalBudgetCents:  100,
		StartsAt:          now,
		ExpiresAt:         now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.UpdateBounty(context.Background(), bounty.ID, "someone-else", UpdateBountyInput{})
	assert.ErrorIs(t, err, ErrNotBountyOwner)

	status := models.BountyStatusActive
	updated, err := svc.UpdateBounty(context.Background(), bounty.ID, "creator", UpdateBountyInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.BountyStatusActive, updated.Status)
	assert.Equal(t, "Mine", updated.Title)
}
