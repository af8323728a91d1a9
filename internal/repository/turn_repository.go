package repository

import (
	"fmt"

	"gorm.io/gorm"

	"docchat/internal/model"
)

type TurnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// CreateBatch persists a group of turns in one round trip. The worker
// accumulates deliveries, so single-turn writes go through here too.
func (r *TurnRepository) CreateBatch(turns []model.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(&turns, 100).Error; err != nil {
		return fmt.Errorf("create turns batch failed: %w", err)
	}
	return nil
}

// ListBySessionID returns a session's persisted turns in arrival order.
func (r *TurnRepository) ListBySessionID(sessionID string, limit int) ([]model.Turn, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var turns []model.Turn
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Limit(limit).Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("list turns failed: %w", err)
	}
	return turns, nil
}
