package ports

import (
	"context"
	"time"
)

// Category is the single library category a (user, game) pair occupies.
// A pair without any entry is untracked, represented by CategoryNone.
type Category string

const (
	CategoryNone       Category = ""
	CategoryWishlist   Category = "wishlist"
	CategoryCollection Category = "collection"
	CategoryStarted    Category = "started"
	CategoryCompleted  Category = "completed"
)

// Categories lists every persisted category in progression order.
var Categories = []Category{CategoryWishlist, CategoryCollection, CategoryStarted, CategoryCompleted}

// ParseCategory maps a wire string to a Category. ok is false for anything
// that is not one of the four persisted categories.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryWishlist, CategoryCollection, CategoryStarted, CategoryCompleted:
		return Category(s), true
	}
	return CategoryNone, false
}

// Advanced reports whether the category is a play state. Once a pair is
// advanced it can never return to wishlist or collection.
func (c Category) Advanced() bool {
	return c == CategoryStarted || c == CategoryCompleted
}

func (c Category) String() string { return string(c) }

// LibraryEntry is the domain DTO for a pair's current category membership.
// It mirrors the DB rows but avoids GORM tags. Priority and Notes are
// meaningful for wishlist entries; StartedAt/CompletedAt for progress entries.
type LibraryEntry struct {
	UserID      string
	GameID      int64
	Category    Category
	Priority    int
	Notes       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// AuditEntry is one immutable record of an observed transition.
// From == nil means the pair was untracked; To == nil means bare removal.
type AuditEntry struct {
	ID        uint64
	UserID    string
	GameID    int64
	From      *Category
	To        *Category
	Reason    string
	Meta      map[string]any
	CreatedAt time.Time
}

// LibraryStore persists the current category per (user, game) pair across
// the category tables. All mutating methods are expected to run inside a
// caller-owned transaction (see UnitOfWork); the store never commits, and it
// does not enforce exclusivity on its own.
type LibraryStore interface {
	// LockPair takes a row lock on the logical pair key, serializing
	// concurrent transitions for the same pair until the surrounding
	// transaction ends.
	LockPair(ctx context.Context, userID string, gameID int64) error
	// Current returns the pair's entry, or nil when untracked.
	Current(ctx context.Context, userID string, gameID int64) (*LibraryEntry, error)
	Put(ctx context.Context, e *LibraryEntry) error
	Remove(ctx context.Context, userID string, gameID int64, c Category) error
	ListByCategory(ctx context.Context, userID string, c Category) ([]*LibraryEntry, error)
}

// AuditLedger is the append-only transition log. There is deliberately no
// update or delete; rows are write-once.
type AuditLedger interface {
	Append(ctx context.Context, e *AuditEntry) error
	// History returns a pair's entries ordered by id ascending.
	History(ctx context.Context, userID string, gameID int64) ([]*AuditEntry, error)
}

// UnitOfWork runs fn inside a single transaction. Repositories resolve their
// connection from the ctx fn receives, so every read and write in fn commits
// or rolls back together.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
