package ledger

import (
	"context"
	"errors"
)

// ErrStore wraps every failure of the storage backend. A ledger failure is
// fatal for the submission being evaluated.
var ErrStore = errors.New("ledger storage failure")

// Store is namespaced key-value storage with the two atomic primitives the
// ledgers need: write-if-absent and increment.
//
// Text values (Get, PutIfAbsent) and integer values (GetInt, Increment,
// SetInt) are kept in separate namespaces by the ledgers; a Store need not
// support mixing them under one key.
type Store interface {
	// Get returns the text value stored under (ns, key).
	Get(ctx context.Context, ns, key string) (value string, ok bool, err error)

	// PutIfAbsent stores value unless (ns, key) already exists. It reports
	// whether this call stored it. An existing value is never replaced.
	PutIfAbsent(ctx context.Context, ns, key, value string) (stored bool, err error)

	// GetInt returns the integer stored under (ns, key).
	GetInt(ctx context.Context, ns, key string) (value int64, ok bool, err error)

	// Increment atomically adds delta to the integer under (ns, key),
	// creating it at zero first, and returns the new value.
	Increment(ctx context.Context, ns, key string, delta int64) (int64, error)

	// SetInt overwrites the integer under (ns, key).
	SetInt(ctx context.Context, ns, key string, value int64) error

	// Close releases the backend.
	Close() error
}
