// Package library implements the library state machine: every (user, game)
// pair occupies at most one category, regressions out of play states are
// rejected, and every transition is recorded in the audit ledger within the
// same transaction.
package library

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gamerack/gamerack/internal/events/mq"
	"github.com/gamerack/gamerack/internal/ports"
	"github.com/gamerack/gamerack/internal/telemetry"
)

// Audit reasons.
const (
	ReasonAdded     = "added"
	ReasonMoved     = "moved"
	ReasonCompleted = "completed"
	ReasonRemoved   = "removed"
)

const defaultMaxRetries = 3

// Metadata carries the category-specific fields a client may supply with a
// transition request. Priority/Notes apply to wishlist targets only.
type Metadata struct {
	Priority int
	Notes    string
}

// Result is the outcome of a transition or removal request. NoOp is true when
// the pair was already in the requested state and nothing was written.
type Result struct {
	Entry *ports.LibraryEntry // nil after a removal
	From  ports.Category
	NoOp  bool
}

// Service is the transition enforcer. It owns the transaction boundary: each
// request runs lock → read → validate → mutate → audit inside one unit of
// work, retried on write conflicts.
type Service struct {
	uow     ports.UnitOfWork
	store   ports.LibraryStore
	ledger  ports.AuditLedger
	catalog ports.CatalogRepository

	queue   mq.Queue
	metrics *telemetry.LibraryMetrics

	maxRetries int
	now        func() time.Time
}

type Option func(*Service)

// WithQueue sets the post-commit transition event publisher.
func WithQueue(q mq.Queue) Option { return func(s *Service) { s.queue = q } }

// WithMetrics sets the instrument set; nil is a valid no-op.
func WithMetrics(m *telemetry.LibraryMetrics) Option { return func(s *Service) { s.metrics = m } }

// WithMaxRetries bounds the internal conflict retries.
func WithMaxRetries(n int) Option { return func(s *Service) { s.maxRetries = n } }

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(uow ports.UnitOfWork, store ports.LibraryStore, ledger ports.AuditLedger, catalog ports.CatalogRepository, opts ...Option) *Service {
	s := &Service{
		uow:        uow,
		store:      store,
		ledger:     ledger,
		catalog:    catalog,
		queue:      mq.NewNoop(),
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RequestTransition moves the pair into target. Validation failures return a
// typed error and leave state untouched; a request for the current category
// is an idempotent no-op that writes nothing, including no audit entry.
func (s *Service) RequestTransition(ctx context.Context, userID string, gameID int64, target ports.Category, meta Metadata) (*Result, error) {
	if _, ok := ports.ParseCategory(string(target)); !ok {
		return nil, &InvalidCategoryError{Value: string(target)}
	}
	exists, err := s.catalog.Exists(ctx, gameID)
	if err != nil {
		return nil, &StorageError{Op: "catalog lookup", Err: err}
	}
	if !exists {
		s.metrics.RecordRejection(ctx, "not_found")
		return nil, &GameNotFoundError{GameID: gameID}
	}

	started := s.now()
	res, err := s.withRetry(ctx, func(ctx context.Context) (*Result, error) {
		return s.applyTransition(ctx, userID, gameID, target, meta)
	})
	if err != nil {
		var adv *AlreadyAdvancedError
		if errors.As(err, &adv) {
			s.metrics.RecordRejection(ctx, "already_advanced")
		}
		return nil, err
	}

	if res.NoOp {
		s.metrics.RecordNoop(ctx)
		return res, nil
	}
	durMS := float64(s.now().Sub(started).Microseconds()) / 1000.0
	s.metrics.RecordTransition(ctx, res.From.String(), target.String(), reasonFor(res.From, target), durMS)
	s.publish(userID, gameID, res.From, target, reasonFor(res.From, target))
	return res, nil
}

// Remove deletes the pair's entry with no replacement. Removing an untracked
// pair is a no-op; removing a started/completed pair is rejected because play
// history is authoritative.
func (s *Service) Remove(ctx context.Context, userID string, gameID int64) (*Result, error) {
	res, err := s.withRetry(ctx, func(ctx context.Context) (*Result, error) {
		return s.applyRemoval(ctx, userID, gameID)
	})
	if err != nil {
		var adv *AlreadyAdvancedError
		if errors.As(err, &adv) {
			s.metrics.RecordRejection(ctx, "already_advanced")
		}
		return nil, err
	}
	if res.NoOp {
		s.metrics.RecordNoop(ctx)
		return res, nil
	}
	s.metrics.RecordTransition(ctx, res.From.String(), "", ReasonRemoved, 0)
	s.publish(userID, gameID, res.From, ports.CategoryNone, ReasonRemoved)
	return res, nil
}

// applyTransition is the read-validate-write sequence; it runs inside one
// transaction and assumes the catalog check already passed.
func (s *Service) applyTransition(ctx context.Context, userID string, gameID int64, target ports.Category, meta Metadata) (*Result, error) {
	if err := s.store.LockPair(ctx, userID, gameID); err != nil {
		return nil, err
	}
	cur, err := s.store.Current(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	from := ports.CategoryNone
	if cur != nil {
		from = cur.Category
	}

	// Idempotent self-transition: no writes, no audit entry.
	if from == target {
		return &Result{Entry: cur, From: from, NoOp: true}, nil
	}
	// Re-opening a completed game never clears completion.
	if from == ports.CategoryCompleted && target == ports.CategoryStarted {
		return &Result{Entry: cur, From: from, NoOp: true}, nil
	}
	// Forward-only: play states never regress into intent/ownership states.
	if from.Advanced() && (target == ports.CategoryWishlist || target == ports.CategoryCollection) {
		return nil, &AlreadyAdvancedError{From: from, To: target}
	}

	next := &ports.LibraryEntry{UserID: userID, GameID: gameID, Category: target}
	switch target {
	case ports.CategoryWishlist:
		next.Priority = meta.Priority
		next.Notes = meta.Notes
	case ports.CategoryStarted:
		now := s.now()
		next.StartedAt = &now
	case ports.CategoryCompleted:
		// Implicit combined promotion: completing an unstarted pair sets
		// started_at and completed_at in one write.
		now := s.now()
		if cur != nil && cur.StartedAt != nil {
			next.StartedAt = cur.StartedAt
		} else {
			next.StartedAt = &now
		}
		next.CompletedAt = &now
	}

	// Cascading removal: progress states share one table, every other move
	// crosses tables and must clear the old row first.
	if from != ports.CategoryNone && !sameTable(from, target) {
		if err := s.store.Remove(ctx, userID, gameID, from); err != nil {
			return nil, err
		}
	}
	if err := s.store.Put(ctx, next); err != nil {
		return nil, err
	}

	entry := &ports.AuditEntry{
		UserID: userID,
		GameID: gameID,
		To:     &target,
		Reason: reasonFor(from, target),
		Meta:   auditMeta(next),
	}
	if from != ports.CategoryNone {
		f := from
		entry.From = &f
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, err
	}
	return &Result{Entry: next, From: from}, nil
}

func (s *Service) applyRemoval(ctx context.Context, userID string, gameID int64) (*Result, error) {
	if err := s.store.LockPair(ctx, userID, gameID); err != nil {
		return nil, err
	}
	cur, err := s.store.Current(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return &Result{From: ports.CategoryNone, NoOp: true}, nil
	}
	if cur.Category.Advanced() {
		return nil, &AlreadyAdvancedError{From: cur.Category, To: ports.CategoryNone}
	}
	if err := s.store.Remove(ctx, userID, gameID, cur.Category); err != nil {
		return nil, err
	}
	from := cur.Category
	if err := s.ledger.Append(ctx, &ports.AuditEntry{
		UserID: userID,
		GameID: gameID,
		From:   &from,
		Reason: ReasonRemoved,
	}); err != nil {
		return nil, err
	}
	return &Result{From: from}, nil
}

// withRetry runs fn in a unit of work, retrying conflict errors with jittered
// backoff. Validation errors pass through untouched.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) (*Result, error)) (*Result, error) {
	var res *Result
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			s.metrics.RecordRetry(ctx)
			backoff := time.Duration(10*(1<<attempt))*time.Millisecond + time.Duration(rand.Intn(20))*time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		err := s.uow.Do(ctx, func(ctx context.Context) error {
			r, err := fn(ctx)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
		if err == nil {
			return res, nil
		}
		var adv *AlreadyAdvancedError
		if errors.As(err, &adv) {
			return nil, err
		}
		if !retryable(err) {
			return nil, &StorageError{Op: "transition", Err: err}
		}
		lastErr = err
	}
	slog.Warn("library: conflict retries exhausted", "error", lastErr)
	return nil, ErrConcurrentModification
}

func (s *Service) publish(userID string, gameID int64, from, to ports.Category, reason string) {
	evt := map[string]any{
		"user_id": userID,
		"game_id": gameID,
		"from":    from.String(),
		"to":      to.String(),
		"reason":  reason,
		"at":      s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.queue.PublishTransition(evt); err != nil {
		slog.Warn("library: publish transition event", "error", err, "user", userID, "game", gameID)
	}
}

// sameTable reports whether both categories live in the progress table.
func sameTable(a, b ports.Category) bool { return a.Advanced() && b.Advanced() }

func reasonFor(from, to ports.Category) string {
	switch {
	case to == ports.CategoryCompleted:
		return ReasonCompleted
	case from == ports.CategoryNone:
		return ReasonAdded
	default:
		return ReasonMoved
	}
}

func auditMeta(e *ports.LibraryEntry) map[string]any {
	m := map[string]any{}
	switch e.Category {
	case ports.CategoryWishlist:
		if e.Priority != 0 {
			m["priority"] = e.Priority
		}
		if e.Notes != "" {
			m["notes"] = e.Notes
		}
	case ports.CategoryStarted, ports.CategoryCompleted:
		if e.StartedAt != nil {
			m["started_at"] = e.StartedAt.UTC().Format(time.RFC3339Nano)
		}
		if e.CompletedAt != nil {
			m["completed_at"] = e.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
