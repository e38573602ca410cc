package models

import "time"

// PhotoType identifies which angle/part of the tree a photo captures
type PhotoType string

const (
	PhotoTypeFullTree PhotoType = "full_tree"
	PhotoTypeBark     PhotoType = "bark"
	PhotoTypeLeaves   PhotoType = "leaves"
	PhotoTypeContext  PhotoType = "context"
)

// Photo references an object already uploaded to S3 via a presigned URL.
// The storage key is accepted as-is; content is never validated here.
type Photo struct {
	ID            string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ObservationID string    `gorm:"type:uuid;index;not null" json:"observation_id"`
	PhotoType     PhotoType `gorm:"size:20;not null" json:"photo_type"`
	StorageKey    string    `gorm:"size:500;not null" json:"storage_key"`
	StorageURL    *string   `gorm:"type:text" json:"storage_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
