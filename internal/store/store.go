package store

import (
	"context"

	"github.com/thesandboxgame/ownership-gatherer/internal/store/schema"
)

// Store defines the interface for database operations
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CursorStore

	// SaveSnapshot stores a snapshot document. An empty ID is filled with a new ULID.
	SaveSnapshot(ctx context.Context, snapshot *schema.Snapshot) error
	// LatestSnapshot returns the most recent snapshot of a kind, or nil when none exists
	LatestSnapshot(ctx context.Context, network, name string) (*schema.Snapshot, error)
}
