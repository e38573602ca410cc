package models

import "time"

// BountyStatus indicates the lifecycle of a bounty program
type BountyStatus string

const (
	BountyStatusDraft     BountyStatus = "draft"
	BountyStatusActive    BountyStatus = "active"
	BountyStatusPaused    BountyStatus = "paused"
	BountyStatusCompleted BountyStatus = "completed"
	BountyStatusExpired   BountyStatus = "expired"
)

// Bounty is a per-tree cash incentive tied to a polygon. Invariant:
// spent_cents never exceeds total_budget_cents; all spend goes through the
// locked claim path in the store.
type Bounty struct {
	ID             string   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	CreatorID      string   `gorm:"type:uuid;index;not null" json:"creator_id"`
	ContractZoneID *string  `gorm:"type:uuid;index" json:"contract_zone_id,omitempty"`
	Title          string   `gorm:"size:300;not null" json:"title"`
	Description    string   `gorm:"type:text" json:"description"`
	ZoneType       ZoneType `gorm:"size:30;not null" json:"zone_type"`
	ZoneIdentifier string   `gorm:"size:100;not null" json:"zone_identifier"`
	Geometry       Geometry `json:"geometry"`

	BountyAmountCents int    `gorm:"not null" json:"bounty_amount_cents"`
	BonusThreshold    *int   `json:"bonus_threshold,omitempty"`
	BonusAmountCents  *int   `json:"bonus_amount_cents,omitempty"`
	TotalBudgetCents  int    `gorm:"not null" json:"total_budget_cents"`
	SpentCents        int    `gorm:"not null;default:0" json:"spent_cents"`

	Status    BountyStatus `gorm:"size:20;index;default:'draft'" json:"status"`
	StartsAt  time.Time    `gorm:"not null" json:"starts_at"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`

	TreeTargetCount int `gorm:"not null" json:"tree_target_count"`
	TreesCompleted  int `gorm:"not null;default:0" json:"trees_completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsClaimable reports whether the bounty can pay out at the given instant.
// The validity window is [starts_at, expires_at).
func (b *Bounty) IsClaimable(now time.Time) bool {
	return b.Status == BountyStatusActive &&
		!b.StartsAt.After(now) &&
		b.ExpiresAt.After(now) &&
		b.SpentCents < b.TotalBudgetCents
}

// RemainingBudgetCents returns how much the bounty can still spend.
func (b *Bounty) RemainingBudgetCents() int {
	return b.TotalBudgetCents - b.SpentCents
}

// NextPayoutCents computes the amount the next claim would award: the bonus
// tier once trees_completed has reached bonus_threshold (inclusive), the
// base amount otherwise, clamped to the remaining budget. A result <= 0
// means no claim should be created.
func (b *Bounty) NextPayoutCents() int {
	amount := b.BountyAmountCents
	if b.BonusThreshold != nil && b.BonusAmountCents != nil && b.TreesCompleted >= *b.BonusThreshold {
		amount = *b.BonusAmountCents
	}
	if remaining := b.RemainingBudgetCents(); amount > remaining {
		amount = remaining
	}
	return amount
}
