package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/regionscope/extractor"
)

// ErrElementNotFound is wrapped by Session methods when a selector did not
// match anything before its wait expired.
var ErrElementNotFound = errors.New("element not found")

// Session is one automated browser with a single page. A Session is owned
// by exactly one lookup and must be closed by it.
type Session interface {
	// Navigate loads url and waits until the network is almost idle.
	Navigate(ctx context.Context, url string) error

	// Fill waits up to wait for selector, selects its content and types text
	// one keystroke at a time, pausing keyDelay after each character.
	// Every step after the wait is bounded by ctx.
	Fill(ctx context.Context, selector, text string, wait, keyDelay time.Duration) error

	// Click waits up to wait for selector and clicks it. The click itself,
	// including waiting for the element to become interactable, is bounded
	// by ctx.
	Click(ctx context.Context, selector string, wait time.Duration) error

	// Snapshot captures the current DOM and rendered text.
	Snapshot(ctx context.Context) (extractor.Snapshot, error)

	// Close terminates the browser process. It is safe to call once per
	// session regardless of earlier failures.
	Close() error
}

// Launcher starts fresh browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
