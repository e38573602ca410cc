package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestNextPayoutCentsBaseAmount(t *testing.T) {
	b := &Bounty{
		BountyAmountCents: 50,
		TotalBudgetCents:  10000,
		SpentCents:        0,
	}
	assert.Equal(t, 50, b.NextPayoutCents())
}

func TestNextPayoutCentsClampsToRemainingBudget(t *testing.T) {
	b := &Bounty{
		BountyAmountCents: 50,
		TotalBudgetCents:  10000,
		SpentCents:        9980,
	}
	assert.Equal(t, 20, b.NextPayoutCents())
}

func TestNextPayoutCentsExhaustedBudget(t *testing.T) {
	b := &Bounty{
		BountyAmountCents: 50,
		TotalBudgetCents:  10000,
		SpentCents:        10000,
	}
	assert.Equal(t, 0, b.NextPayoutCents())
}

func TestNextPayoutCentsBonusTierInclusiveBoundary(t *testing.T) {
	b := &Bounty{
		BountyAmountCents: 50,
		BonusThreshold:    intPtr(10),
		BonusAmountCents:  intPtr(75),
		TotalBudgetCents:  10000,
		TreesCompleted:    10,
	}
	assert.Equal(t, 75, b.NextPayoutCents())
}

func TestNextPayoutCentsBelowBonusThreshold(t *testing.T) {
	b := &Bounty{
		BountyAmountCents: 50,
		BonusThreshold:    intPtr(10),
		BonusAmountCents:  intPtr(75),
		TotalBudgetCents:  10000,
		TreesCompleted:    9,
	}
	assert.Equal(t, 50, b.NextPayoutCents())
}

func TestIsClaimableWindow(t *testing.T) {
	now := time.Now()
	b := &Bounty{
		Status:            BountyStatusActive,
		StartsAt:          now.Add(-time.Hour),
		ExpiresAt:         now.Add(time.Hour),
		BountyAmountCents: 50,
		TotalBudgetCents:  1000,
	}
	assert.True(t, b.IsClaimable(now))

	// the window is [starts_at, expires_at)
	assert.True(t, b.IsClaimable(b.StartsAt))
	assert.False(t, b.IsClaimable(b.ExpiresAt))

	b.Status = BountyStatusPaused
	assert.False(t, b.IsClaimable(now))

	b.Status = BountyStatusActive
	b.SpentCents = b.TotalBudgetCents
	assert.False(t, b.IsClaimable(now))
}
