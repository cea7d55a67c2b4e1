package ledger

import (
	"context"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Keyspace is one of the dedup ledger's independent key sets.
type Keyspace string

// Dedup keyspaces, named as persisted.
const (
	CoarseHash Keyspace = "seen_ahashes"
	FineHash   Keyspace = "seen_phashes"
	ValueHash  Keyspace = "seen_valhashes"
)

// Counter is one of the scoring ledger's per-user counters.
type Counter string

// Score counters, named as persisted.
const (
	Claims   Counter = "user_claims"
	Points   Counter = "user_points"
	Lifetime Counter = "user_total"
)

// Dedup is the first-writer-wins ownership ledger.
type Dedup struct {
	store Store
}

// NewDedup returns a dedup ledger over store.
func NewDedup(store Store) *Dedup {
	return &Dedup{store: store}
}

// Seen returns the owner recorded for key, if any.
func (d *Dedup) Seen(ctx context.Context, ks Keyspace, key string) (owner string, ok bool, err error) {
	return d.store.Get(ctx, string(ks), key)
}

// Record stores owner for key unless key is already recorded, in which case
// it does nothing. Records are never reassigned. stored reports whether this
// call made the record; of any number of concurrent callers exactly one wins.
func (d *Dedup) Record(ctx context.Context, ks Keyspace, key, owner string) (stored bool, err error) {
	return d.store.PutIfAbsent(ctx, string(ks), key, owner)
}

// ValueKey derives the dedup key of a decoded value: the hex BLAKE2b-256
// digest, so arbitrary payloads become fixed-size, storage-safe keys.
func ValueKey(value string) string {
	sum := blake2b.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Scores holds the per-user counters. Every mutation is a single atomic store
// operation; there is no read-modify-write.
type Scores struct {
	store Store
}

// NewScores returns a scoring ledger over store.
func NewScores(store Store) *Scores {
	return &Scores{store: store}
}

// Increment adds delta to the user's counter and returns the new value.
// Concurrent increments are lossless.
func (s *Scores) Increment(ctx context.Context, c Counter, user string, delta int64) (int64, error) {
	return s.store.Increment(ctx, string(c), user, delta)
}

// Get returns the user's counter. ok is false when it was never written.
func (s *Scores) Get(ctx context.Context, c Counter, user string) (value int64, ok bool, err error) {
	return s.store.GetInt(ctx, string(c), user)
}

// Set overwrites the user's counter. Only the unlock flow uses it.
func (s *Scores) Set(ctx context.Context, c Counter, user string, value int64) error {
	return s.store.SetInt(ctx, string(c), user, value)
}
