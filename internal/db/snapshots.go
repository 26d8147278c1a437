package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertSnapshot replaces the full snapshot row for (domain, server_uid)
// in one statement, inserting if absent. The single ON CONFLICT write is
// what makes concurrent submissions for the same key last-write-wins
// without a partial update ever being visible.
func UpsertSnapshot(gdb *gorm.DB, snap *Snapshot) error {
	err := gdb.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain"}, {Name: "server_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"server_type", "version", "players", "metrics", "timestamp",
		}),
	}).Create(snap).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot %s/%s: %w", snap.Domain, snap.ServerUID, err)
	}
	return nil
}

// SnapshotsSince returns every snapshot for the domain whose timestamp is
// at or after cutoff. One call, one SELECT: every aggregate quantity for a
// cycle is derived from this row set so they cannot disagree about which
// snapshots were in the window.
func SnapshotsSince(gdb *gorm.DB, domain string, cutoff time.Time) ([]Snapshot, error) {
	var snaps []Snapshot
	if err := gdb.Where("domain = ? AND timestamp >= ?", domain, cutoff).
		Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("read snapshots for %s: %w", domain, err)
	}
	return snaps, nil
}
