package library

import (
	"time"

	"gorm.io/gorm"
)

// The library is split across three physical tables, one per category family,
// mirroring the original schema. Each table carries a unique (user_id, game_id)
// index; mutual exclusivity across tables is enforced by the transition
// service, not here.

// WishlistEntry is a wishlist row with its category-specific metadata.
type WishlistEntry struct {
	gorm.Model
	UserID   string `gorm:"size:64;uniqueIndex:uniq_wishlist_pair,priority:1;not null"`
	GameID   int64  `gorm:"uniqueIndex:uniq_wishlist_pair,priority:2;not null"`
	Priority int    `gorm:"default:0"`
	Notes    string `gorm:"type:text"`
}

// CollectionEntry marks ownership with no extra metadata.
type CollectionEntry struct {
	gorm.Model
	UserID string `gorm:"size:64;uniqueIndex:uniq_collection_pair,priority:1;not null"`
	GameID int64  `gorm:"uniqueIndex:uniq_collection_pair,priority:2;not null"`
}

// ProgressEntry covers both play states: a row with a NULL completed_at is
// "started", a row with it set is "completed". completed_at is never cleared
// once set.
type ProgressEntry struct {
	gorm.Model
	UserID      string    `gorm:"size:64;uniqueIndex:uniq_progress_pair,priority:1;not null"`
	GameID      int64     `gorm:"uniqueIndex:uniq_progress_pair,priority:2;not null"`
	StartedAt   time.Time `gorm:"not null"`
	CompletedAt *time.Time
}

// PairLock is the logical LibraryEntry key. One row exists per pair that was
// ever touched; transitions lock it FOR UPDATE before reading state, which
// serializes concurrent transitions for the same pair.
type PairLock struct {
	ID     uint   `gorm:"primaryKey"`
	UserID string `gorm:"size:64;uniqueIndex:uniq_pair_lock,priority:1;not null"`
	GameID int64  `gorm:"uniqueIndex:uniq_pair_lock,priority:2;not null"`
}

// AutoMigrate creates the three category tables and the pair lock table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&WishlistEntry{}, &CollectionEntry{}, &ProgressEntry{}, &PairLock{})
}
