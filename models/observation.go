package models

import "time"

// ObservationStatus is the submission lifecycle state
type ObservationStatus string

const (
	ObservationStatusPendingUpload ObservationStatus = "pending_upload"
	ObservationStatusPendingAI     ObservationStatus = "pending_ai"
	ObservationStatusPendingReview ObservationStatus = "pending_review"
	ObservationStatusVerified      ObservationStatus = "verified"
	ObservationStatusRejected      ObservationStatus = "rejected"
)

// observationTransitions enumerates every legal status move. Anything not
// listed here is rejected, so a verified observation can never slide back
// to pending_ai. The pending_upload → pending_review edge is the skip-AI
// fast path.
var observationTransitions = map[ObservationStatus][]ObservationStatus{
	ObservationStatusPendingUpload: {ObservationStatusPendingAI, ObservationStatusPendingReview},
	ObservationStatusPendingAI:     {ObservationStatusPendingReview},
	ObservationStatusPendingReview: {ObservationStatusVerified, ObservationStatusRejected},
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step.
func (s ObservationStatus) CanTransitionTo(next ObservationStatus) bool {
	for _, allowed := range observationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Observation = one field submission by one user. Rows are append-only;
// only status and AI result columns change after creation.
type Observation struct {
	ID                string            `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TreeID            *string           `gorm:"type:uuid;index" json:"tree_id,omitempty"`
	UserID            string            `gorm:"type:uuid;index;not null" json:"user_id"`
	Latitude          float64           `gorm:"not null" json:"latitude"`
	Longitude         float64           `gorm:"not null" json:"longitude"`
	GPSAccuracyMeters *float64          `json:"gps_accuracy_meters,omitempty"`
	Status            ObservationStatus `gorm:"size:20;index;not null;default:'pending_upload'" json:"status"`

	AISpeciesResult     *string `gorm:"type:text" json:"ai_species_result,omitempty"`
	AIHealthResult      *string `gorm:"type:text" json:"ai_health_result,omitempty"`
	AIMeasurementResult *string `gorm:"type:text" json:"ai_measurement_result,omitempty"`

	Notes *string `gorm:"type:text" json:"notes,omitempty"`

	// Level 1 inspection fields (optional, recorded as submitted)
	ConditionRating         *string  `gorm:"size:20" json:"condition_rating,omitempty"`
	HeightEstimateM         *float64 `json:"height_estimate_m,omitempty"`
	CanopySpreadM           *float64 `json:"canopy_spread_m,omitempty"`
	CrownDieback            *bool    `json:"crown_dieback,omitempty"`
	SiteType                *string  `gorm:"size:50" json:"site_type,omitempty"`
	OverheadUtilityConflict *bool    `json:"overhead_utility_conflict,omitempty"`
	SidewalkDamage          *bool    `json:"sidewalk_damage,omitempty"`
	RiskFlag                *bool    `json:"risk_flag,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
