package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/regionscope/config"
	"github.com/use-agent/regionscope/extractor"
	"github.com/ysmood/gson"
)

// Page emulation for every session.
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	AcceptLanguage = "en-US,en;q=0.9"
	ViewportWidth  = 1280
	ViewportHeight = 800
)

// closeTimeout bounds the CDP Browser.close call during teardown.
const closeTimeout = 5 * time.Second

// RodLauncher launches one Chromium process per session with go-rod.
type RodLauncher struct {
	cfg config.BrowserConfig
	bin string
}

// NewRodLauncher resolves the browser executable once and returns a
// launcher for it. An empty resolution lets rod pick or download one.
func NewRodLauncher(cfg config.BrowserConfig, resolver PathResolver) *RodLauncher {
	bin, ok := resolver.Resolve()
	if ok {
		slog.Info("browser executable resolved", "path", bin)
	} else {
		slog.Info("no browser executable found, using rod default")
	}
	return &RodLauncher{cfg: cfg, bin: bin}
}

// Launch starts a browser configured for a constrained host and opens one
// page with resource blocking, viewport and user agent already applied.
func (l *RodLauncher) Launch(ctx context.Context) (Session, error) {
	ln := launcher.New().
		Context(ctx).
		Headless(l.cfg.Headless).
		NoSandbox(l.cfg.NoSandbox)

	if l.bin != "" {
		ln = ln.Bin(l.bin)
	}

	// ── Resource flags for small containers ──────────────────────────
	ln.Set(flags.Flag("disable-setuid-sandbox"))
	ln.Set(flags.Flag("disable-dev-shm-usage"))
	ln.Set(flags.Flag("disable-gpu"))
	ln.Set(flags.Flag("disable-software-rasterizer"))
	ln.Set(flags.Flag("disable-extensions"))
	ln.Set(flags.Flag("disable-background-timer-throttling"))
	ln.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	ln.Set(flags.Flag("disable-renderer-backgrounding"))
	ln.Set(flags.Flag("no-zygote"))
	ln.Set(flags.Flag("no-first-run"))
	ln.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	ln.Delete(flags.Flag("enable-automation"))

	controlURL, err := ln.Launch()
	if err != nil {
		// No Cleanup here: it waits for a process exit that may never come.
		ln.Kill()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	slog.Debug("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s := &rodSession{launcher: ln, browser: browser}
	if err := s.open(l.cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// rodSession is a Session backed by a dedicated Chromium process.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
}

// open creates the page and applies everything that must exist before the
// first navigation: stealth script, viewport, user agent, headers, hijack.
func (s *rodSession) open(cfg config.BrowserConfig) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      UserAgent,
		AcceptLanguage: AcceptLanguage,
	}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": AcceptLanguage,
		}),
	}.Call(page)

	s.router = setupHijack(page, cfg.BlockedResourceTypes)
	return nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)

	// The lifecycle listener MUST be registered before Navigate, otherwise
	// a fast page can go idle before we start listening.
	wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *rodSession) Fill(ctx context.Context, selector, text string, wait, keyDelay time.Duration) error {
	el, err := s.element(ctx, selector, wait)
	if err != nil {
		return err
	}

	// Replace whatever the field holds, the way a triple-click would.
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select %s text: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	if err := el.WaitEnabled(); err != nil {
		return fmt.Errorf("wait %s enabled: %w", selector, err)
	}
	if err := el.WaitWritable(); err != nil {
		return fmt.Errorf("wait %s writable: %w", selector, err)
	}

	p := s.page.Context(ctx)
	for _, r := range text {
		if err := typeRune(p, r); err != nil {
			return fmt.Errorf("type into %s: %w", selector, err)
		}
		if err := sleepCtx(ctx, keyDelay); err != nil {
			return err
		}
	}
	return nil
}

// typeRune sends r as a keydown/keyup pair when it is on the US keyboard
// layout and falls back to text insertion otherwise.
func typeRune(p *rod.Page, r rune) error {
	if r < ' ' || r > '~' {
		return p.InsertText(string(r))
	}
	k := input.Key(r)
	if err := k.Encode(proto.InputDispatchKeyEventTypeKeyDown, 0).Call(p); err != nil {
		return err
	}
	return k.Encode(proto.InputDispatchKeyEventTypeKeyUp, 0).Call(p)
}

func (s *rodSession) Click(ctx context.Context, selector string, wait time.Duration) error {
	el, err := s.element(ctx, selector, wait)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// element waits up to wait for selector and returns it bound to ctx, so
// follow-up actions outlive the lookup wait but not the caller's bound.
func (s *rodSession) element(ctx context.Context, selector string, wait time.Duration) (*rod.Element, error) {
	findCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	el, err := s.page.Context(findCtx).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrElementNotFound, selector, err)
	}
	return el.Context(ctx), nil
}

func (s *rodSession) Snapshot(ctx context.Context) (extractor.Snapshot, error) {
	p := s.page.Context(ctx)
	html, err := p.HTML()
	if err != nil {
		return extractor.Snapshot{}, fmt.Errorf("read page html: %w", err)
	}
	return extractor.Snapshot{
		HTML: html,
		Text: evalStringOrEmpty(p, `() => document.body ? document.body.innerText : ""`),
	}, nil
}

// Close stops the hijack router, closes the browser over CDP and then kills
// the process and removes its profile directory, whatever state it is in.
func (s *rodSession) Close() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	if err := s.browser.Timeout(closeTimeout).Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	return errors.Join(errs...)
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
