package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamerack/gamerack/internal/ports"
)

// Repo implements ports.CatalogRepository.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Exists(ctx context.Context, gameID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Game{}).Where("id = ?", gameID).Count(&n).Error
	return n > 0, err
}

func (r *Repo) Get(ctx context.Context, gameID int64) (*ports.Game, error) {
	var g Game
	if err := r.db.WithContext(ctx).First(&g, gameID).Error; err != nil {
		return nil, err
	}
	return dto(&g), nil
}

// UpsertBatch inserts or refreshes games keyed by id. Mirrors the sync job's
// bulk ON CONFLICT upsert.
func (r *Repo) UpsertBatch(ctx context.Context, games []*ports.Game) error {
	if len(games) == 0 {
		return nil
	}
	rows := make([]*Game, 0, len(games))
	for _, g := range games {
		rows = append(rows, &Game{
			ID:               g.ID,
			Name:             g.Name,
			Slug:             g.Slug,
			Summary:          g.Summary,
			CoverURL:         g.CoverURL,
			FirstReleaseDate: g.FirstReleaseDate,
			Rating:           g.Rating,
			TotalRatingCount: g.TotalRatingCount,
			FranchiseName:    g.FranchiseName,
			CollectionName:   g.CollectionName,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "slug", "summary", "cover_url", "first_release_date",
			"rating", "total_rating_count", "franchise_name", "collection_name", "updated_at",
		}),
	}).CreateInBatches(rows, 200).Error
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Game{}).Count(&n).Error
	return n, err
}

func dto(g *Game) *ports.Game {
	return &ports.Game{
		ID:               g.ID,
		Name:             g.Name,
		Slug:             g.Slug,
		Summary:          g.Summary,
		CoverURL:         g.CoverURL,
		FirstReleaseDate: g.FirstReleaseDate,
		Rating:           g.Rating,
		TotalRatingCount: g.TotalRatingCount,
		FranchiseName:    g.FranchiseName,
		CollectionName:   g.CollectionName,
		UpdatedAt:        g.UpdatedAt,
	}
}
