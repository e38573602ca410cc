package models

import "time"

// VerificationTier reflects how much review a tree's data has had
type VerificationTier string

const (
	VerificationTierUnverified VerificationTier = "unverified"
	VerificationTierAIVerified VerificationTier = "ai_verified"
	VerificationTierReviewed   VerificationTier = "reviewed"
)

// Tree = one physical street tree. Location is fixed at creation and never
// updated; repeat observations within the dedup radius merge into this row.
type Tree struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`

	// Aggregate estimates, overwritten only by higher-confidence AI results
	SpeciesCommon     *string  `gorm:"size:200" json:"species_common,omitempty"`
	SpeciesScientific *string  `gorm:"size:200" json:"species_scientific,omitempty"`
	SpeciesConfidence *float64 `json:"species_confidence,omitempty"`
	HealthStatus      *string  `gorm:"size:50" json:"health_status,omitempty"`
	HealthConfidence  *float64 `json:"health_confidence,omitempty"`
	EstimatedDbhCm    *float64 `json:"estimated_dbh_cm,omitempty"`
	EstimatedHeightM  *float64 `json:"estimated_height_m,omitempty"`

	ObservationCount    int        `gorm:"not null;default:0" json:"observation_count"`
	UniqueObserverCount int        `gorm:"not null;default:0" json:"unique_observer_count"`
	LastObservedAt      *time.Time `json:"last_observed_at,omitempty"`
	CooldownUntil       *time.Time `gorm:"index" json:"cooldown_until,omitempty"`

	VerificationTier VerificationTier `gorm:"size:20;default:'unverified'" json:"verification_tier"`

	// Set once by zone assignment, never overwritten (sticky)
	ContractZoneID *string `gorm:"type:uuid;index" json:"contract_zone_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
