package audit

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gamerack/gamerack/internal/ports"
	"github.com/gamerack/gamerack/internal/repo/gorm/txn"
)

// Ledger implements ports.AuditLedger. Append-only: there is no update or
// delete surface, and the autoincrement id totally orders a pair's entries by
// commit order.
type Ledger struct{ db *gorm.DB }

func NewLedger(db *gorm.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) Append(ctx context.Context, e *ports.AuditEntry) error {
	rec := Record{
		UserID:       e.UserID,
		GameID:       e.GameID,
		FromCategory: categoryPtr(e.From),
		ToCategory:   categoryPtr(e.To),
		Reason:       e.Reason,
		Meta:         datatypes.JSONMap(e.Meta),
	}
	if err := txn.From(ctx, l.db).Create(&rec).Error; err != nil {
		return err
	}
	e.ID = rec.ID
	e.CreatedAt = rec.CreatedAt
	return nil
}

func (l *Ledger) History(ctx context.Context, userID string, gameID int64) ([]*ports.AuditEntry, error) {
	var rows []*Record
	err := txn.From(ctx, l.db).
		Where("user_id = ? AND game_id = ?", userID, gameID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*ports.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, &ports.AuditEntry{
			ID:        r.ID,
			UserID:    r.UserID,
			GameID:    r.GameID,
			From:      ptrCategory(r.FromCategory),
			To:        ptrCategory(r.ToCategory),
			Reason:    r.Reason,
			Meta:      normalizeMeta(r.Meta),
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// normalizeMeta maps the scanned JSON onto plain Go values. JSONMap decodes
// numbers as json.Number; consumers of ports.AuditEntry.Meta get float64, the
// same type a direct json.Unmarshal would give.
func normalizeMeta(m datatypes.JSONMap) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func categoryPtr(c *ports.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func ptrCategory(s *string) *ports.Category {
	if s == nil {
		return nil
	}
	c := ports.Category(*s)
	return &c
}
