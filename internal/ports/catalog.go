package ports

import (
	"context"
	"time"
)

// Game is the catalog DTO for an externally sourced game. The primary key is
// the IGDB id; the catalog is populated by the sync job, never by the
// library service.
type Game struct {
	ID               int64
	Name             string
	Slug             string
	Summary          string
	CoverURL         string
	FirstReleaseDate *time.Time
	Rating           float64
	TotalRatingCount int
	FranchiseName    string
	CollectionName   string
	UpdatedAt        time.Time
}

// CatalogRepository is the read/upsert surface over the games table.
type CatalogRepository interface {
	Exists(ctx context.Context, gameID int64) (bool, error)
	Get(ctx context.Context, gameID int64) (*Game, error)
	// UpsertBatch inserts or refreshes a batch keyed by id.
	UpsertBatch(ctx context.Context, games []*Game) error
	Count(ctx context.Context) (int64, error)
}
