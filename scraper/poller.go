package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/regionscope/extractor"
)

// PollState is the state of the result-ready poller.
type PollState int

const (
	Polling PollState = iota
	Found
	TimedOut
)

func (s PollState) String() string {
	switch s {
	case Polling:
		return "polling"
	case Found:
		return "found"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ReadyFunc decides whether a snapshot shows a rendered result.
type ReadyFunc func(extractor.Snapshot) bool

// Snapshotter is the part of a Session the poller needs.
type Snapshotter interface {
	Snapshot(ctx context.Context) (extractor.Snapshot, error)
}

// PollOutcome reports how polling ended.
type PollOutcome struct {
	State    PollState
	Attempts int
}

// Poller samples a page until Ready holds or Attempts run out.
type Poller struct {
	Attempts      int           // default: 20
	Interval      time.Duration // pause before each sample; default: 1s
	SampleTimeout time.Duration // bound on one snapshot; default: 5s
	Ready         ReadyFunc     // default: extractor.ResultReady

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a Poller with the lookup site's defaults.
func NewPoller() *Poller {
	return &Poller{
		Attempts:      20,
		Interval:      time.Second,
		SampleTimeout: 5 * time.Second,
		Ready:         extractor.ResultReady,
		sleep:         sleepCtx,
	}
}

// Poll runs the Polling -> Found | TimedOut state machine. Snapshot errors
// count as "not ready yet". Poll never fails; the caller decides what a
// timeout means.
func (p *Poller) Poll(ctx context.Context, s Snapshotter) PollOutcome {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	out := PollOutcome{State: Polling}
	for out.State == Polling {
		if out.Attempts >= p.Attempts {
			out.State = TimedOut
			break
		}
		out.Attempts++

		if err := sleep(ctx, p.Interval); err != nil {
			out.State = TimedOut
			break
		}

		if p.sample(ctx, s) {
			out.State = Found
			break
		}
		slog.Debug("result not ready", "attempt", out.Attempts, "max", p.Attempts)
	}
	return out
}

func (p *Poller) sample(ctx context.Context, s Snapshotter) bool {
	if p.SampleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.SampleTimeout)
		defer cancel()
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		slog.Debug("poll snapshot failed", "error", err)
		return false
	}
	return p.Ready(snap)
}
