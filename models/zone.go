package models

import "time"

// ZoneStatus — zones are authored by contract management workflows; the
// reconciliation core only reads status and bumps the mapped-tree counter.
type ZoneStatus string

const (
	ZoneStatusUpcoming  ZoneStatus = "upcoming"
	ZoneStatusActive    ZoneStatus = "active"
	ZoneStatusCompleted ZoneStatus = "completed"
	ZoneStatusPaused    ZoneStatus = "paused"
)

type ZoneType string

const (
	ZoneTypeZipCode        ZoneType = "zip_code"
	ZoneTypeStreetCorridor ZoneType = "street_corridor"
)

// ContractZone is a geographic work area under a municipal contract.
type ContractZone struct {
	ID             string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ContractID     *string    `gorm:"type:uuid;index" json:"contract_id,omitempty"`
	ZoneType       ZoneType   `gorm:"size:30;index;not null" json:"zone_type"`
	ZoneIdentifier string     `gorm:"size:100;not null" json:"zone_identifier"`
	DisplayName    string     `gorm:"size:200;not null" json:"display_name"`
	Geometry       Geometry   `json:"geometry"`
	Status         ZoneStatus `gorm:"size:20;index;default:'upcoming'" json:"status"`

	TreeTargetCount  *int `json:"tree_target_count,omitempty"`
	TreesMappedCount int  `gorm:"not null;default:0" json:"trees_mapped_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressPercentage is derived, not stored, so the mapped counter stays
// the single source of truth.
func (z *ContractZone) ProgressPercentage() float64 {
	if z.TreeTargetCount == nil || *z.TreeTargetCount <= 0 {
		return 0
	}
	pct := float64(z.TreesMappedCount) / float64(*z.TreeTargetCount) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
