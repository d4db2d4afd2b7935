package igdb

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gamerack/gamerack/internal/ports"
)

// Syncer pulls id batches from IGDB in parallel and bulk-upserts them into the
// catalog.
type Syncer struct {
	client  *Client
	catalog ports.CatalogRepository
	workers int
}

func NewSyncer(client *Client, catalog ports.CatalogRepository, workers int) *Syncer {
	if workers <= 0 {
		workers = 4
	}
	return &Syncer{client: client, catalog: catalog, workers: workers}
}

// Sync fetches and upserts the given ids. Batches run on a bounded worker
// pool; one failed batch fails the run after in-flight batches finish.
func (s *Syncer) Sync(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	start := time.Now()
	var processed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for off := 0; off < len(ids); off += BatchSize {
		batch := ids[off:min(off+BatchSize, len(ids))]
		g.Go(func() error {
			games, err := s.client.FetchBatch(ctx, batch)
			if err != nil {
				return err
			}
			if err := s.catalog.UpsertBatch(ctx, games); err != nil {
				return err
			}
			n := processed.Add(int64(len(batch)))
			slog.Info("igdb: batch synced",
				"processed", n,
				"total", len(ids),
				"rate_per_s", float64(n)/time.Since(start).Seconds(),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("igdb: sync complete", "games", len(ids), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
