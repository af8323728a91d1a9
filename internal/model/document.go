package model

import "time"

// Document is the registry record for one ingested file. Position is the
// document's order in the ingested set; retrieval tie-breaking and warm
// starts depend on it.
type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	StoredName string    `gorm:"size:512;not null;uniqueIndex" json:"stored_name"`
	Name       string    `gorm:"size:256;not null" json:"name"`
	Position   int       `gorm:"not null" json:"position"`
	ChunkCount int       `gorm:"not null" json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}
