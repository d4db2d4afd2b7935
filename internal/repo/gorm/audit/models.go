package audit

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is one immutable transition observation. from_category/to_category
// are NULL-able: a NULL from means the pair was untracked, a NULL to means
// bare removal. Rows are written exactly once, in the same transaction as the
// library mutation they document, and are never updated or deleted here.
type Record struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement"`
	UserID       string  `gorm:"size:64;index:idx_audit_pair,priority:1;not null"`
	GameID       int64   `gorm:"index:idx_audit_pair,priority:2;not null"`
	FromCategory *string `gorm:"size:16"`
	ToCategory   *string `gorm:"size:16"`
	Reason       string  `gorm:"size:64;not null"`
	Meta         datatypes.JSONMap
	CreatedAt    time.Time `gorm:"index"`
}

func (Record) TableName() string { return "audit_entries" }

// AutoMigrate creates the audit table.
func AutoMigrate(db *gorm.DB) error { return db.AutoMigrate(&Record{}) }
