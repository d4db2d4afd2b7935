package library

import (
	"context"

	"github.com/gamerack/gamerack/internal/ports"
)

// QueryService is the read side: no locks, no transaction, safe to serve from
// a replica.
type QueryService struct {
	store  ports.LibraryStore
	ledger ports.AuditLedger
}

func NewQueryService(store ports.LibraryStore, ledger ports.AuditLedger) *QueryService {
	return &QueryService{store: store, ledger: ledger}
}

// ListByCategory returns the user's entries in one category.
func (q *QueryService) ListByCategory(ctx context.Context, userID string, c ports.Category) ([]*ports.LibraryEntry, error) {
	return q.store.ListByCategory(ctx, userID, c)
}

// History returns the pair's audit entries in commit order.
func (q *QueryService) History(ctx context.Context, userID string, gameID int64) ([]*ports.AuditEntry, error) {
	return q.ledger.History(ctx, userID, gameID)
}
