package model

import "time"

// Turn is the durable audit record of one completed exchange. Conversation
// continuity is served from in-memory session state; these rows are written
// asynchronously and never read back into a session.
type Turn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:128;not null;index" json:"session_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
