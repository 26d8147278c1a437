package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// LatestHighscore returns the newest ledger entry for the domain, or
// (nil, nil) when the ledger is empty.
func LatestHighscore(gdb *gorm.DB, domain string) (*Highscore, error) {
	var hs Highscore
	err := gdb.Where("domain = ?", domain).
		Order("created_at DESC, id DESC").
		First(&hs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read highscore for %s: %w", domain, err)
	}
	return &hs, nil
}

// AppendHighscore adds a new ledger entry. Entries are never updated or
// deleted afterwards.
func AppendHighscore(gdb *gorm.DB, hs *Highscore) error {
	if err := gdb.Create(hs).Error; err != nil {
		return fmt.Errorf("append highscore for %s: %w", hs.Domain, err)
	}
	return nil
}
