package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Game is the DB model for a catalog game. The primary key is the IGDB id so
// sync batches can upsert directly.
type Game struct {
	ID               int64  `gorm:"primaryKey;autoIncrement:false"`
	Name             string `gorm:"size:255;not null"`
	Slug             string `gorm:"size:255;index"`
	Summary          string `gorm:"type:text"`
	CoverURL         string `gorm:"size:512"`
	FirstReleaseDate *time.Time
	Rating           float64
	TotalRatingCount int
	FranchiseName    string `gorm:"size:255"`
	CollectionName   string `gorm:"size:255"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AutoMigrate creates the games table.
func AutoMigrate(db *gorm.DB) error { return db.AutoMigrate(&Game{}) }
