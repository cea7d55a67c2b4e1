// Package verify implements the human-verification gate in front of the
// claim-counter reset.
package verify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long an unanswered challenge stays valid.
const DefaultTTL = 5 * time.Minute

// ErrNoChallenge is returned by Verify when the user has no pending challenge,
// either because none was issued or because it expired.
var ErrNoChallenge = errors.New("no pending challenge")

// Arithmetic asks a small addition or multiplication question. Each challenge
// allows exactly one answer.
type Arithmetic struct {
	pending *cache.Cache
	intn    func(n int) int
}

// NewArithmetic returns a gate whose challenges expire after ttl.
func NewArithmetic(ttl time.Duration) *Arithmetic {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Arithmetic{
		pending: cache.New(ttl, 2*ttl),
		intn:    rand.IntN,
	}
}

// Challenge issues a new question for user, replacing any pending one.
func (a *Arithmetic) Challenge(_ context.Context, user string) (string, error) {
	x, y := a.intn(9)+2, a.intn(9)+2

	var question string
	var answer int
	if a.intn(2) == 0 {
		question, answer = fmt.Sprintf("What is %d + %d?", x, y), x+y
	} else {
		question, answer = fmt.Sprintf("What is %d × %d?", x, y), x*y
	}

	a.pending.Set(user, answer, cache.DefaultExpiration)
	return question, nil
}

// Verify checks answer against user's pending challenge and consumes it.
func (a *Arithmetic) Verify(_ context.Context, user, answer string) (bool, error) {
	v, ok := a.pending.Get(user)
	if !ok {
		return false, ErrNoChallenge
	}
	a.pending.Delete(user)

	got, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return false, nil
	}
	return got == v.(int), nil
}
