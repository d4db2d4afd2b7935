package library

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/gamerack/gamerack/internal/ports"
	auditrepo "github.com/gamerack/gamerack/internal/repo/gorm/audit"
	catalogrepo "github.com/gamerack/gamerack/internal/repo/gorm/catalog"
	libraryrepo "github.com/gamerack/gamerack/internal/repo/gorm/library"
	"github.com/gamerack/gamerack/internal/repo/gorm/txn"
)

type fixture struct {
	svc    *Service
	query  *QueryService
	store  *libraryrepo.Store
	ledger *auditrepo.Ledger
	db     *gorm.DB
}

// newFixture builds the service over an in-memory sqlite DB with one catalog
// game (id 1000) seeded.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	// One pooled connection so every session sees the same :memory: database.
	sqlDB.SetMaxOpenConns(1)
	if err := catalogrepo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate catalog: %v", err)
	}
	if err := libraryrepo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate library: %v", err)
	}
	if err := auditrepo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate audit: %v", err)
	}
	catalog := catalogrepo.NewRepo(db)
	if err := catalog.UpsertBatch(context.Background(), []*ports.Game{{ID: 1000, Name: "Outer Wilds"}}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	store := libraryrepo.NewStore(db)
	ledger := auditrepo.NewLedger(db)
	svc := NewService(txn.New(db), store, ledger, catalog)
	return &fixture{
		svc:    svc,
		query:  NewQueryService(store, ledger),
		store:  store,
		ledger: ledger,
		db:     db,
	}
}

func mustTransition(t *testing.T, f *fixture, user string, game int64, target ports.Category) *Result {
	t.Helper()
	res, err := f.svc.RequestTransition(context.Background(), user, game, target, Metadata{})
	if err != nil {
		t.Fatalf("transition to %s: %v", target, err)
	}
	return res
}

func currentCategory(t *testing.T, f *fixture, user string, game int64) ports.Category {
	t.Helper()
	cur, err := f.store.Current(context.Background(), user, game)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur == nil {
		return ports.CategoryNone
	}
	return cur.Category
}

func TestWishlistToCollectionMovesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustTransition(t, f, "u1", 1000, ports.CategoryWishlist)
	mustTransition(t, f, "u1", 1000, ports.CategoryCollection)

	if got := currentCategory(t, f, "u1", 1000); got != ports.CategoryCollection {
		t.Fatalf("expected collection, got %q", got)
	}
	wl, err := f.store.ListByCategory(ctx, "u1", ports.CategoryWishlist)
	if err != nil {
		t.Fatalf("list wishlist: %v", err)
	}
	if len(wl) != 0 {
		t.Fatalf("expected wishlist emptied, found %d entries", len(wl))
	}

	hist, err := f.query.History(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(hist))
	}
	if hist[0].From != nil || hist[0].To == nil || *hist[0].To != ports.CategoryWishlist {
		t.Fatalf("first entry should be (none -> wishlist), got %+v", hist[0])
	}
	if hist[1].From == nil || *hist[1].From != ports.CategoryWishlist || *hist[1].To != ports.CategoryCollection {
		t.Fatalf("second entry should be (wishlist -> collection), got %+v", hist[1])
	}
	if hist[0].Reason != ReasonAdded || hist[1].Reason != ReasonMoved {
		t.Fatalf("unexpected reasons: %q, %q", hist[0].Reason, hist[1].Reason)
	}
}

func TestStartedRejectsRegression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustTransition(t, f, "u1", 1000, ports.CategoryCollection)
	mustTransition(t, f, "u1", 1000, ports.CategoryStarted)

	if got := currentCategory(t, f, "u1", 1000); got != ports.CategoryStarted {
		t.Fatalf("expected started, got %q", got)
	}

	_, err := f.svc.RequestTransition(ctx, "u1", 1000, ports.CategoryWishlist, Metadata{})
	var adv *AlreadyAdvancedError
	if !errors.As(err, &adv) {
		t.Fatalf("expected AlreadyAdvancedError, got %v", err)
	}
	if adv.From != ports.CategoryStarted || adv.To != ports.CategoryWishlist {
		t.Fatalf("unexpected error detail: %+v", adv)
	}
	// A rejected transition leaves state untouched.
	if got := currentCategory(t, f, "u1", 1000); got != ports.CategoryStarted {
		t.Fatalf("state changed after rejection: %q", got)
	}
	hist, _ := f.query.History(ctx, "u1", 1000)
	if len(hist) != 2 {
		t.Fatalf("rejection must not append audit entries, got %d", len(hist))
	}
}

func TestCompletePreservesStartedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustTransition(t, f, "u1", 1000, ports.CategoryStarted)
	started, err := f.store.Current(ctx, "u1", 1000)
	if err != nil || started.StartedAt == nil {
		t.Fatalf("expected started entry with started_at, err=%v", err)
	}

	res := mustTransition(t, f, "u1", 1000, ports.CategoryCompleted)
	if res.Entry.CompletedAt == nil {
		t.Fatalf("expected completed_at set")
	}
	if !res.Entry.StartedAt.Equal(*started.StartedAt) {
		t.Fatalf("started_at not preserved: %v != %v", res.Entry.StartedAt, started.StartedAt)
	}

	// Re-opening never clears completion.
	res, err = f.svc.RequestTransition(ctx, "u1", 1000, ports.CategoryStarted, Metadata{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !res.NoOp {
		t.Fatalf("reopen should be a no-op")
	}
	cur, _ := f.store.Current(ctx, "u1", 1000)
	if cur.Category != ports.CategoryCompleted || cur.CompletedAt == nil {
		t.Fatalf("completed_at cleared by reopen: %+v", cur)
	}
}

func TestCompleteFromUntrackedSetsBothTimestamps(t *testing.T) {
	f := newFixture(t)

	res := mustTransition(t, f, "u1", 1000, ports.CategoryCompleted)
	if res.Entry.StartedAt == nil || res.Entry.CompletedAt == nil {
		t.Fatalf("implicit promotion should set both timestamps: %+v", res.Entry)
	}
	hist, _ := f.query.History(context.Background(), "u1", 1000)
	if len(hist) != 1 {
		t.Fatalf("implicit promotion is one transition, got %d entries", len(hist))
	}
	if hist[0].Reason != ReasonCompleted {
		t.Fatalf("expected reason %q, got %q", ReasonCompleted, hist[0].Reason)
	}
}

func TestSelfTransitionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.RequestTransition(ctx, "u1", 1000, ports.CategoryWishlist, Metadata{Priority: 2, Notes: "sale"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.NoOp {
		t.Fatalf("first transition must not be a no-op")
	}
	second, err := f.svc.RequestTransition(ctx, "u1", 1000, ports.CategoryWishlist, Metadata{Priority: 9})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.NoOp {
		t.Fatalf("repeat transition should be a no-op")
	}
	// No duplicate audit entry, state unchanged.
	hist, _ := f.query.History(ctx, "u1", 1000)
	if len(hist) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(hist))
	}
	cur, _ := f.store.Current(ctx, "u1", 1000)
	if cur.Priority != 2 || cur.Notes != "sale" {
		t.Fatalf("no-op must not rewrite metadata: %+v", cur)
	}
}

func TestRemoveFromWishlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustTransition(t, f, "u1", 1000, ports.CategoryWishlist)
	res, err := f.svc.Remove(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if res.NoOp || res.From != ports.CategoryWishlist {
		t.Fatalf("unexpected removal result: %+v", res)
	}
	if got := currentCategory(t, f, "u1", 1000); got != ports.CategoryNone {
		t.Fatalf("expected untracked, got %q", got)
	}
	hist, _ := f.query.History(ctx, "u1", 1000)
	last := hist[len(hist)-1]
	if last.To != nil || last.From == nil || *last.From != ports.CategoryWishlist || last.Reason != ReasonRemoved {
		t.Fatalf("removal audit entry wrong: %+v", last)
	}
}

func TestRemoveUntrackedIsNoop(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Remove(context.Background(), "u1", 1000)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !res.NoOp {
		t.Fatalf("removing an untracked pair should be a no-op")
	}
	hist, _ := f.query.History(context.Background(), "u1", 1000)
	if len(hist) != 0 {
		t.Fatalf("no-op removal must not append audit entries")
	}
}

func TestRemoveStartedRejected(t *testing.T) {
	f := newFixture(t)

	mustTransition(t, f, "u1", 1000, ports.CategoryStarted)
	_, err := f.svc.Remove(context.Background(), "u1", 1000)
	var adv *AlreadyAdvancedError
	if !errors.As(err, &adv) {
		t.Fatalf("expected AlreadyAdvancedError, got %v", err)
	}
	if got := currentCategory(t, f, "u1", 1000); got != ports.CategoryStarted {
		t.Fatalf("rejected removal changed state: %q", got)
	}
}

func TestUnknownCategoryRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestTransition(context.Background(), "u1", 1000, ports.Category("backlog"), Metadata{})
	var inv *InvalidCategoryError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidCategoryError, got %v", err)
	}
	if inv.Value != "backlog" {
		t.Fatalf("wrong value in error: %q", inv.Value)
	}
	// Pure validation: no state, no audit.
	hist, _ := f.query.History(context.Background(), "u1", 1000)
	if len(hist) != 0 {
		t.Fatalf("validation failure appended audit entries")
	}
}

func TestUnknownGameRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestTransition(context.Background(), "u1", 4242, ports.CategoryWishlist, Metadata{})
	var nf *GameNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected GameNotFoundError, got %v", err)
	}
	if nf.GameID != 4242 {
		t.Fatalf("wrong game id in error: %d", nf.GameID)
	}
}

// TestAuditReplayReconstructsState drives a full progression and verifies the
// ledger alone reproduces the store's final answer.
func TestAuditReplayReconstructsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seq := []ports.Category{
		ports.CategoryWishlist,
		ports.CategoryCollection,
		ports.CategoryStarted,
		ports.CategoryStarted, // no-op
		ports.CategoryCompleted,
	}
	for _, c := range seq {
		if _, err := f.svc.RequestTransition(ctx, "u1", 1000, c, Metadata{}); err != nil {
			t.Fatalf("transition to %s: %v", c, err)
		}
	}

	hist, err := f.query.History(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// The no-op must not have produced an entry.
	if len(hist) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(hist))
	}
	replayed := ports.CategoryNone
	for i, e := range hist {
		from := ports.CategoryNone
		if e.From != nil {
			from = *e.From
		}
		if from != replayed {
			t.Fatalf("entry %d: from=%q but replayed state is %q", i, from, replayed)
		}
		if e.To != nil {
			replayed = *e.To
		} else {
			replayed = ports.CategoryNone
		}
	}
	if got := currentCategory(t, f, "u1", 1000); got != replayed {
		t.Fatalf("replayed %q != stored %q", replayed, got)
	}
}
