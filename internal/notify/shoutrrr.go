package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Shoutrrr pushes messages to every configured shoutrrr service URL.
type Shoutrrr struct {
	sender *router.ServiceRouter
}

// NewShoutrrr builds a sender for urls. timeout bounds each delivery; zero
// keeps the router default.
func NewShoutrrr(urls []string, timeout time.Duration) (*Shoutrrr, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create shoutrrr sender: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &Shoutrrr{sender: sender}, nil
}

// Send implements Sender. Attachments are listed by path below the text.
func (s *Shoutrrr) Send(_ context.Context, userID, text string, attachments ...string) error {
	body := text
	if len(attachments) > 0 {
		body += "\n\n" + strings.Join(attachments, "\n")
	}

	params := stypes.Params{}
	params.SetTitle("qrhunt: " + userID)

	for _, err := range s.sender.Send(body, &params) {
		if err != nil {
			return fmt.Errorf("shoutrrr delivery failed: %w", err)
		}
	}
	return nil
}
