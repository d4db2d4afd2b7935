package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gamerack/gamerack/internal/ports"
)

// AlreadyAdvancedError rejects a regression: once a pair is started or
// completed it can never return to wishlist or collection, and its play
// history cannot be removed. Not retried.
type AlreadyAdvancedError struct {
	From ports.Category
	To   ports.Category // CategoryNone for a rejected removal
}

func (e *AlreadyAdvancedError) Error() string {
	if e.To == ports.CategoryNone {
		return fmt.Sprintf("library: cannot remove %s entry, play history is authoritative", e.From)
	}
	return fmt.Sprintf("library: cannot move %s entry back to %s", e.From, e.To)
}

// InvalidCategoryError rejects a target that is not one of the four
// persisted categories. Pure input validation, nothing was read or written.
type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("library: unknown category %q", e.Value)
}

// GameNotFoundError rejects transitions for games absent from the catalog.
type GameNotFoundError struct {
	GameID int64
}

func (e *GameNotFoundError) Error() string {
	return fmt.Sprintf("library: game %d not found in catalog", e.GameID)
}

// ErrConcurrentModification signals a lock or version conflict inside the
// transition transaction. The service retries these internally; callers only
// see it once the retry budget is exhausted, and may retry themselves.
var ErrConcurrentModification = errors.New("library: concurrent modification")

// StorageError wraps a persistence failure that is neither a validation
// rejection nor a conflict. Fatal to the request.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("library: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// retryable reports whether err looks like a serialization or write conflict
// worth retrying. Covers postgres serialization/deadlock messages, the unique
// index collision from two first-touch pair inserts, and sqlite's busy state.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, probe := range []string{
		"could not serialize",
		"deadlock detected",
		"duplicate key",
		"unique constraint",
		"database is locked",
		"database table is locked",
		"sqlite_busy",
	} {
		if strings.Contains(msg, probe) {
			return true
		}
	}
	return false
}
