package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/regionscope/extractor"
	"github.com/use-agent/regionscope/metrics"
	"github.com/use-agent/regionscope/models"
)

// Fixed description of the lookup site's form.
const (
	TargetURL     = "https://omar-thing.site/"
	InputSelector = "#usernameInput"
	FetchSelector = "#fetchButton"
)

// DriverConfig bounds every suspension point of a lookup session.
type DriverConfig struct {
	TargetURL         string
	NavigationTimeout time.Duration // default: 30s
	InputTimeout      time.Duration // default: 10s
	SubmitTimeout     time.Duration // default: 5s
	KeyDelay          time.Duration // default: 40ms
	ActionTimeout     time.Duration // default: 5s, on top of the wait and typing time
	SettleDelay       time.Duration // default: 1s
	SnapshotTimeout   time.Duration // default: 10s
}

// DefaultDriverConfig returns the timeouts the lookup site needs.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		TargetURL:         TargetURL,
		NavigationTimeout: 30 * time.Second,
		InputTimeout:      10 * time.Second,
		SubmitTimeout:     5 * time.Second,
		KeyDelay:          40 * time.Millisecond,
		ActionTimeout:     5 * time.Second,
		SettleDelay:       time.Second,
		SnapshotTimeout:   10 * time.Second,
	}
}

// Driver runs one browser session per lookup against the lookup site.
// It is safe for concurrent use; sessions share nothing.
type Driver struct {
	launcher Launcher
	poller   *Poller
	cfg      DriverConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDriver creates a Driver. A nil poller uses NewPoller().
func NewDriver(launcher Launcher, poller *Poller, cfg DriverConfig) *Driver {
	if poller == nil {
		poller = NewPoller()
	}
	return &Driver{
		launcher: launcher,
		poller:   poller,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Lookup drives the lookup form for an already-normalized identifier.
//
// Lifecycle:
//
//  1. Launch        – fresh browser, resources blocked, fixed viewport/UA
//  2. DEFER: Close  – the browser process dies on every exit path
//  3. Navigate      – network almost idle within NavigationTimeout
//  4. Fill          – input found within InputTimeout, typed per keystroke
//  5. Submit        – fetch button found within SubmitTimeout, clicked
//
// Fill and Submit each run under one deadline covering the element wait,
// the typing time and ActionTimeout, so a covered or disabled control
// fails the step instead of stalling the session.
//  6. Poll          – until the result panel looks populated or attempts run out
//  7. Settle        – fixed pause for trailing DOM updates
//  8. Extract       – snapshot → RegionRecord
//
// Lookup never returns an error: every failure is folded into a Failure
// result. Caller cancellation is ignored; each step has its own bound.
func (d *Driver) Lookup(ctx context.Context, identifier string) (result models.LookupResult) {
	ctx = context.WithoutCancel(ctx)
	start := d.now()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("lookup session panicked", "identifier", identifier, "panic", r)
			result = models.Failed(identifier,
				models.NewScrapeError(models.ErrCodeInternal, fmt.Sprintf("session panic: %v", r), nil),
				d.now())
		}
		outcome := "success"
		if !result.Success {
			outcome = result.Code
		}
		metrics.ObserveSession(outcome, d.now().Sub(start))
	}()

	rec, err := d.run(ctx, identifier)
	if err != nil {
		slog.Warn("lookup failed", "identifier", identifier, "error", err)
		return models.Failed(identifier, err, d.now())
	}

	slog.Info("lookup succeeded",
		"identifier", identifier,
		"country", rec.Country,
		"duration", d.now().Sub(start).Round(time.Millisecond).String(),
	)
	return models.Succeeded(identifier, rec, d.now())
}

func (d *Driver) run(ctx context.Context, identifier string) (models.RegionRecord, error) {
	// ── 1. Launch ─────────────────────────────────────────────────────
	sess, err := d.launcher.Launch(ctx)
	if err != nil {
		return models.RegionRecord{}, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}

	// ── 2. CRITICAL DEFER: browser teardown ───────────────────────────
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Warn("session teardown reported errors", "identifier", identifier, "error", closeErr)
		}
		slog.Debug("session closed", "identifier", identifier)
	}()

	// ── 3. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	err = sess.Navigate(navCtx, d.cfg.TargetURL)
	cancel()
	if err != nil {
		return models.RegionRecord{}, models.NewNavigationError(err)
	}
	slog.Debug("lookup page loaded", "identifier", identifier)

	// ── 4. Fill ───────────────────────────────────────────────────────
	typing := time.Duration(len([]rune(identifier))) * d.cfg.KeyDelay
	fillCtx, cancel := context.WithTimeout(ctx, d.cfg.InputTimeout+typing+d.cfg.ActionTimeout)
	err = sess.Fill(fillCtx, InputSelector, identifier, d.cfg.InputTimeout, d.cfg.KeyDelay)
	expired := fillCtx.Err() != nil
	cancel()
	if err != nil {
		return models.RegionRecord{}, formError(InputSelector, "typing identifier failed", err, expired)
	}

	// ── 5. Submit ─────────────────────────────────────────────────────
	clickCtx, cancel := context.WithTimeout(ctx, d.cfg.SubmitTimeout+d.cfg.ActionTimeout)
	err = sess.Click(clickCtx, FetchSelector, d.cfg.SubmitTimeout)
	expired = clickCtx.Err() != nil
	cancel()
	if err != nil {
		return models.RegionRecord{}, formError(FetchSelector, "submitting lookup form failed", err, expired)
	}

	// ── 6. Poll ───────────────────────────────────────────────────────
	outcome := d.poller.Poll(ctx, sess)
	metrics.ObservePoll(outcome.State.String(), outcome.Attempts)
	slog.Debug("poll finished", "identifier", identifier, "state", outcome.State.String(), "attempts", outcome.Attempts)

	// ── 7. Settle ─────────────────────────────────────────────────────
	_ = d.sleep(ctx, d.cfg.SettleDelay)

	// ── 8. Extract ────────────────────────────────────────────────────
	snapCtx, cancel := context.WithTimeout(ctx, d.cfg.SnapshotTimeout)
	snap, err := sess.Snapshot(snapCtx)
	cancel()
	if err != nil {
		return models.RegionRecord{}, models.NewScrapeError(
			models.ErrCodeExtraction,
			"failed to capture result page",
			err,
		)
	}

	rec, ok := extractor.Extract(snap)
	if !ok {
		return models.RegionRecord{}, models.NewNoResultsError()
	}
	return rec, nil
}

// formError maps a form interaction failure to the error taxonomy. A step
// that ran out its deadline never got a usable element.
func formError(selector, msg string, err error, expired bool) *models.ScrapeError {
	if expired || errors.Is(err, ErrElementNotFound) {
		return models.NewSelectorNotFoundError(selector, err)
	}
	return models.NewScrapeError(models.ErrCodeInternal, msg, err)
}
