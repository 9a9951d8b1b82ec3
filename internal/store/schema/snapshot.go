package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot represents the ownership_snapshots table - one row per written snapshot document
type Snapshot struct {
	// ID is a ULID, so snapshots sort by creation time
	ID string `gorm:"column:id;primaryKey;type:varchar(26)"`
	// Network is the short network name (mainnet, polygon, ...)
	Network string `gorm:"column:network;not null;type:varchar(32);index:idx_ownership_snapshots_network_name"`
	// Name is the snapshot kind, e.g. landOwners or owners
	Name string `gorm:"column:name;not null;type:varchar(64);index:idx_ownership_snapshots_network_name"`
	// BlockNumber is the chain head the snapshot was taken at
	BlockNumber uint64 `gorm:"column:block_number;not null"`
	// Owners is the number of distinct owners in the document
	Owners int `gorm:"column:owners;not null;default:0"`
	// Document is the snapshot as written to disk
	Document datatypes.JSON `gorm:"column:document;not null;type:jsonb"`
	// CreatedAt is the timestamp when this snapshot was stored
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Snapshot model
func (Snapshot) TableName() string {
	return "ownership_snapshots"
}
