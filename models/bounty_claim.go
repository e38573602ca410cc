package models

import "time"

// BountyClaimStatus tracks payout review state
type BountyClaimStatus string

const (
	BountyClaimStatusPending  BountyClaimStatus = "pending"
	BountyClaimStatusApproved BountyClaimStatus = "approved"
	BountyClaimStatusPaid     BountyClaimStatus = "paid"
	BountyClaimStatusRejected BountyClaimStatus = "rejected"
)

// BountyClaim = one payout awarded for one tree/observation pair.
// Append-only; amount_cents is the amount actually awarded after clamping,
// which can be less than the bounty's advertised rate near budget
// exhaustion. At most one claim exists per (bounty, tree) pair.
type BountyClaim struct {
	ID            string            `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BountyID      string            `gorm:"type:uuid;index;not null;uniqueIndex:idx_bounty_claims_bounty_tree,priority:1" json:"bounty_id"`
	UserID        string            `gorm:"type:uuid;index;not null" json:"user_id"`
	TreeID        string            `gorm:"type:uuid;index;not null;uniqueIndex:idx_bounty_claims_bounty_tree,priority:2" json:"tree_id"`
	ObservationID string            `gorm:"type:uuid;index;not null" json:"observation_id"`
	AmountCents   int               `gorm:"not null" json:"amount_cents"`
	Status        BountyClaimStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}
