// Package notify delivers user-facing messages. Every implementation offers
// the same best-effort Send; callers log failures and carry on.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Message is one outbound message to a user.
type Message struct {
	UserID      string   `json:"user_id"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

// Sender is implemented by every channel in this package.
type Sender interface {
	Send(ctx context.Context, userID, text string, attachments ...string) error
}

// Log writes messages to a zerolog logger. It never fails.
type Log struct {
	log zerolog.Logger
}

// NewLog returns a Sender logging at info level.
func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

// Send implements Sender.
func (l *Log) Send(_ context.Context, userID, text string, attachments ...string) error {
	l.log.Info().
		Str("user", userID).
		Strs("attachments", attachments).
		Msg(text)
	return nil
}

// Fanout sends every message to all of its senders.
type Fanout []Sender

// Send implements Sender. All senders are tried; their errors are joined.
func (f Fanout) Send(ctx context.Context, userID, text string, attachments ...string) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, userID, text, attachments...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
