package db

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot is the latest known state of one server instance within a
// domain. Every submission replaces the whole row for its
// (domain, server_uid) key; prior values are not kept.
type Snapshot struct {
	ID uint `gorm:"primaryKey"`

	Domain    string `gorm:"uniqueIndex:idx_snapshot_domain_uid,priority:1;not null"`
	ServerUID string `gorm:"uniqueIndex:idx_snapshot_domain_uid,priority:2;not null"`

	ServerType string
	Version    string
	Players    int64

	// Metrics holds the domain-specific numeric fields (e.g. gatherer
	// count), so new domains don't need schema changes.
	Metrics datatypes.JSONMap `gorm:"type:json"`

	// Timestamp of the last submission for this key. Rows older than the
	// aggregation window stop counting but are never deleted.
	Timestamp time.Time `gorm:"index"`
}

// Highscore is one entry in a domain's append-only ledger of all-time
// peaks. The newest row is the current highscore state; rows are never
// updated after creation.
type Highscore struct {
	ID uint `gorm:"primaryKey"`

	Domain string `gorm:"index;not null"`

	// Values maps highscore dimension name to its running maximum.
	Values datatypes.JSONMap `gorm:"type:json"`

	CreatedAt time.Time
}
