package services

import (
	"context"
	"testing"
	"time"

	"tree-mapping-system/models"
	"tree-mapping-system/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTreeWithObservers(t *testing.T, st *store.MemoryStore, users ...string) *models.Tree {
	t.Helper()
	ctx := context.Background()
	tree, _, err := st.ResolveTree(ctx, -97.7431, 30.2672, store.DedupRadiusMeters, time.Now())
	require.NoError(t, err)
	for _, user := range users {
		err := st.CreateObservation(ctx, &models.Observation{
			TreeID:    &tree.ID,
			UserID:    user,
			Latitude:  30.2672,
			Longitude: -97.7431,
			Status:    models.ObservationStatusPendingUpload,
		}, nil)
		require.NoError(t, err)
	}
	return tree
}

func TestIsOnCooldown(t *testing.T) {
	svc := NewCooldownService(store.NewMemoryStore())

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	assert.False(t, svc.IsOnCooldown(nil))
	assert.False(t, svc.IsOnCooldown(&past))
	assert.True(t, svc.IsOnCooldown(&future))
}

func TestCheckAndSetCooldownBelowThreshold(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewCooldownService(st)
	tree := seedTreeWithObservers(t, st, "user-1", "user-2")

	until, err := svc.CheckAndSetCooldown(context.Background(), tree.ID)
	require.NoError(t, err)
	assert.Nil(t, until)

	got, err := st.GetTree(context.Background(), tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UniqueObserverCount)
	assert.Nil(t, got.CooldownUntil)
}

func TestCheckAndSetCooldownAtThreshold(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewCooldownService(st)
	tree := seedTreeWithObservers(t, st, "user-1", "user-2", "user-3")

	until, err := svc.CheckAndSetCooldown(context.Background(), tree.ID)
	require.NoError(t, err)
	require.NotNil(t, until)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, CooldownDays), *until, time.Minute)
}

func TestCheckAndSetCooldownIdempotent(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewCooldownService(st)
	tree := seedTreeWithObservers(t, st, "user-1", "user-2", "user-3")
	ctx := context.Background()

	first, err := svc.CheckAndSetCooldown(ctx, tree.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// second evaluation must not extend the window
	second, err := svc.CheckAndSetCooldown(ctx, tree.ID)
	require.NoError(t, err)
	assert.Nil(t, second)

	got, err := st.GetTree(ctx, tree.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CooldownUntil)
	assert.WithinDuration(t, *first, *got.CooldownUntil, time.Second)
}

func TestCheckAndSetCooldownCountsUniqueObserversOnly(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewCooldownService(st)
	tree := seedTreeWithObservers(t, st, "user-1", "user-1", "user-1", "user-2")

	until, err := svc.CheckAndSetCooldown(context.Background(), tree.ID)
	require.NoError(t, err)
	assert.Nil(t, until)

	got, err := st.GetTree(context.Background(), tree.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UniqueObserverCount)
}
