package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thesandboxgame/ownership-gatherer/internal/store/schema"
)

// CursorStore defines the interface for storing and retrieving block cursors
type CursorStore interface {
	// GetBlockCursor retrieves the last block covered by a job, 0 when unknown
	GetBlockCursor(ctx context.Context, job string) (uint64, error)
	// SetBlockCursor stores the last block covered by a job
	SetBlockCursor(ctx context.Context, job string, blockNumber uint64) error
}

func cursorKey(job string) string {
	return fmt.Sprintf("block_cursor:%s", job)
}

// GetBlockCursor retrieves the last block covered by a job
func (s *pgStore) GetBlockCursor(ctx context.Context, job string) (uint64, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", cursorKey(job)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get block cursor: %w", err)
	}

	blockNumber, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse block cursor: %w", err)
	}

	return blockNumber, nil
}

// SetBlockCursor stores the last block covered by a job
func (s *pgStore) SetBlockCursor(ctx context.Context, job string, blockNumber uint64) error {
	kv := schema.KeyValueStore{
		Key:   cursorKey(job),
		Value: strconv.FormatUint(blockNumber, 10),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set block cursor: %w", err)
	}

	return nil
}
