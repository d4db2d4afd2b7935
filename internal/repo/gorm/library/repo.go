package library

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamerack/gamerack/internal/ports"
	"github.com/gamerack/gamerack/internal/repo/gorm/txn"
)

// Store implements ports.LibraryStore over the three category tables.
// It is a dumb per-category table abstraction: callers own the transaction
// (via txn) and the exclusivity invariant.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// LockPair locks the pair's anchor row FOR UPDATE, creating it on first
// touch. Two transactions racing on the first touch collide on the unique
// index; the loser surfaces a duplicate-key error the service retries.
// sqlite has no row locks and serializes writers itself, so the clause is
// skipped there.
func (s *Store) LockPair(ctx context.Context, userID string, gameID int64) error {
	db := txn.From(ctx, s.db)
	q := db
	if db.Dialector.Name() != "sqlite" {
		q = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var lock PairLock
	err := q.
		Where("user_id = ? AND game_id = ?", userID, gameID).
		First(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&PairLock{UserID: userID, GameID: gameID}).Error
	}
	return err
}

// Current returns the pair's single entry, or nil when untracked. The three
// tables are probed in progression order; after a successful transition at
// most one can hold a row.
func (s *Store) Current(ctx context.Context, userID string, gameID int64) (*ports.LibraryEntry, error) {
	db := txn.From(ctx, s.db)

	var p ProgressEntry
	err := db.Where("user_id = ? AND game_id = ?", userID, gameID).First(&p).Error
	if err == nil {
		return progressDTO(&p), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var c CollectionEntry
	err = db.Where("user_id = ? AND game_id = ?", userID, gameID).First(&c).Error
	if err == nil {
		return &ports.LibraryEntry{
			UserID: c.UserID, GameID: c.GameID,
			Category: ports.CategoryCollection, UpdatedAt: c.UpdatedAt,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var w WishlistEntry
	err = db.Where("user_id = ? AND game_id = ?", userID, gameID).First(&w).Error
	if err == nil {
		return &ports.LibraryEntry{
			UserID: w.UserID, GameID: w.GameID,
			Category: ports.CategoryWishlist,
			Priority: w.Priority, Notes: w.Notes, UpdatedAt: w.UpdatedAt,
		}, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

// Put writes the entry's row in its category table, overwriting metadata when
// a row for the pair already exists there.
func (s *Store) Put(ctx context.Context, e *ports.LibraryEntry) error {
	db := txn.From(ctx, s.db)
	switch e.Category {
	case ports.CategoryWishlist:
		row := WishlistEntry{UserID: e.UserID, GameID: e.GameID, Priority: e.Priority, Notes: e.Notes}
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"priority", "notes", "updated_at"}),
		}).Create(&row).Error
	case ports.CategoryCollection:
		row := CollectionEntry{UserID: e.UserID, GameID: e.GameID}
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(&row).Error
	case ports.CategoryStarted, ports.CategoryCompleted:
		row := ProgressEntry{UserID: e.UserID, GameID: e.GameID, CompletedAt: e.CompletedAt}
		if e.StartedAt != nil {
			row.StartedAt = *e.StartedAt
		}
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "game_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed_at", "updated_at"}),
		}).Create(&row).Error
	default:
		return fmt.Errorf("put: unknown category %q", e.Category)
	}
}

// Remove deletes the pair's row from the given category table. Deleting a row
// that is not there is not an error; exclusivity checks live in the service.
func (s *Store) Remove(ctx context.Context, userID string, gameID int64, c ports.Category) error {
	db := txn.From(ctx, s.db)
	where := "user_id = ? AND game_id = ?"
	switch c {
	case ports.CategoryWishlist:
		return db.Unscoped().Where(where, userID, gameID).Delete(&WishlistEntry{}).Error
	case ports.CategoryCollection:
		return db.Unscoped().Where(where, userID, gameID).Delete(&CollectionEntry{}).Error
	case ports.CategoryStarted, ports.CategoryCompleted:
		return db.Unscoped().Where(where, userID, gameID).Delete(&ProgressEntry{}).Error
	default:
		return fmt.Errorf("remove: unknown category %q", c)
	}
}

// ListByCategory returns a user's entries in one category, most recently
// updated first.
func (s *Store) ListByCategory(ctx context.Context, userID string, c ports.Category) ([]*ports.LibraryEntry, error) {
	db := txn.From(ctx, s.db)
	switch c {
	case ports.CategoryWishlist:
		var rows []*WishlistEntry
		if err := db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]*ports.LibraryEntry, 0, len(rows))
		for _, w := range rows {
			out = append(out, &ports.LibraryEntry{
				UserID: w.UserID, GameID: w.GameID,
				Category: ports.CategoryWishlist,
				Priority: w.Priority, Notes: w.Notes, UpdatedAt: w.UpdatedAt,
			})
		}
		return out, nil
	case ports.CategoryCollection:
		var rows []*CollectionEntry
		if err := db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]*ports.LibraryEntry, 0, len(rows))
		for _, r := range rows {
			out = append(out, &ports.LibraryEntry{
				UserID: r.UserID, GameID: r.GameID,
				Category: ports.CategoryCollection, UpdatedAt: r.UpdatedAt,
			})
		}
		return out, nil
	case ports.CategoryStarted, ports.CategoryCompleted:
		q := db.Where("user_id = ?", userID)
		if c == ports.CategoryStarted {
			q = q.Where("completed_at IS NULL")
		} else {
			q = q.Where("completed_at IS NOT NULL")
		}
		var rows []*ProgressEntry
		if err := q.Order("updated_at DESC").Find(&rows).Error; err != nil {
			return nil, err
		}
		out := make([]*ports.LibraryEntry, 0, len(rows))
		for _, p := range rows {
			out = append(out, progressDTO(p))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("list: unknown category %q", c)
	}
}

func progressDTO(p *ProgressEntry) *ports.LibraryEntry {
	cat := ports.CategoryStarted
	if p.CompletedAt != nil {
		cat = ports.CategoryCompleted
	}
	started := p.StartedAt
	return &ports.LibraryEntry{
		UserID: p.UserID, GameID: p.GameID,
		Category:    cat,
		StartedAt:   &started,
		CompletedAt: p.CompletedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
