// Package browser wraps a persistent-profile Chromium context and exposes
// the small automation surface the site adapters need: navigate, click,
// type, upload a file via an input, wait for a URL marker.
//
// The profile directory holds cookies and local storage for both sites, so
// a completed login survives across runs. Its contents are opaque to the
// rest of the program.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrElementNotFound means no selector in a fallback chain matched a
	// visible element. The site's markup likely changed.
	ErrElementNotFound = errors.New("no matching visible element")

	// ErrTimeout means a bounded wait expired before its condition held.
	ErrTimeout = errors.New("wait timed out")
)

// Browser owns the Playwright driver and the shared persistent context.
type Browser struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
}

// Launch starts Chromium headed on the given profile directory. Headed is
// deliberate: the user may need to complete a login in the window.
func Launch(profileDir, downloadDir string) (*Browser, error) {
	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
	}); err != nil {
		return nil, fmt.Errorf("browser: install driver: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("browser: start driver: %w", err)
	}

	context, err := pw.Chromium.LaunchPersistentContext(profileDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:          playwright.Bool(false),
			AcceptDownloads:   playwright.Bool(true),
			DownloadsPath:     playwright.String(downloadDir),
			Viewport:          &playwright.Size{Width: 1280, Height: 900},
			Timeout:           playwright.Float(120_000),
			Args:              []string{"--disable-blink-features=AutomationControlled"},
			IgnoreDefaultArgs: []string{"--enable-automation"},
		})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("browser: launch persistent context: %w", err)
	}
	context.SetDefaultTimeout(30_000)

	slog.Info("browser ready", slog.String("profile", profileDir))
	return &Browser{pw: pw, context: context}, nil
}

// NewSession opens a fresh page for one site adapter.
func (b *Browser) NewSession(site string) (*Session, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("browser: new page: %w", err)
	}
	return &Session{page: page, site: site}, nil
}

// Close shuts the context and the driver down. Safe to call once at exit.
func (b *Browser) Close() {
	if err := b.context.Close(); err != nil {
		slog.Warn("browser context close", slog.Any("error", err))
	}
	if err := b.pw.Stop(); err != nil {
		slog.Warn("playwright stop", slog.Any("error", err))
	}
}

// Session is one page bound to one site adapter.
type Session struct {
	page playwright.Page
	site string
}

// Goto navigates and waits for the DOM to be ready.
func (s *Session) Goto(url string) error {
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("%s: goto %s: %w", s.site, url, err)
	}
	// Both sites render the interesting parts after load.
	s.page.WaitForTimeout(3000)
	return nil
}

// URL returns the page's current URL.
func (s *Session) URL() string { return s.page.URL() }

// Content returns the page's full HTML.
func (s *Session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("%s: read page content: %w", s.site, err)
	}
	return html, nil
}

// firstVisible walks a selector fallback chain and returns the first
// visible match. Selector chains absorb minor markup drift; when the whole
// chain misses, the UI changed for real and the caller should fail.
func (s *Session) firstVisible(selectors ...string) (playwright.Locator, error) {
	for _, sel := range selectors {
		loc := s.page.Locator(sel)
		count, err := loc.Count()
		if err != nil || count == 0 {
			continue
		}
		for i := range count {
			nth := loc.Nth(i)
			if visible, err := nth.IsVisible(); err == nil && visible {
				return nth, nil
			}
		}
	}
	return nil, fmt.Errorf("%s: %v: %w", s.site, selectors, ErrElementNotFound)
}

// ClickFirstVisible clicks the first visible element in the chain.
func (s *Session) ClickFirstVisible(selectors ...string) error {
	loc, err := s.firstVisible(selectors...)
	if err != nil {
		return err
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("%s: click: %w", s.site, err)
	}
	s.page.WaitForTimeout(1000)
	return nil
}

// Visible reports whether any selector in the chain matches a visible
// element right now.
func (s *Session) Visible(selectors ...string) bool {
	_, err := s.firstVisible(selectors...)
	return err == nil
}

// Fill sets an input's value directly.
func (s *Session) Fill(selector, value string) error {
	loc, err := s.firstVisible(selector)
	if err != nil {
		return err
	}
	if err := loc.Fill(value); err != nil {
		return fmt.Errorf("%s: fill %s: %w", s.site, selector, err)
	}
	return nil
}

// TypeText clicks an element, clears it, and types text with key delays.
// Some rich-text fields ignore Fill, typing is the reliable path.
func (s *Session) TypeText(selector, text string) error {
	loc, err := s.firstVisible(selector)
	if err != nil {
		return err
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("%s: focus %s: %w", s.site, selector, err)
	}
	kb := s.page.Keyboard()
	if err := kb.Press("ControlOrMeta+a"); err != nil {
		return fmt.Errorf("%s: select all: %w", s.site, err)
	}
	if err := kb.Type(text, playwright.KeyboardTypeOptions{Delay: playwright.Float(15)}); err != nil {
		return fmt.Errorf("%s: type into %s: %w", s.site, selector, err)
	}
	return nil
}

// SetInputFiles attaches a local file to a (possibly hidden) file input.
func (s *Session) SetInputFiles(selector, path string) error {
	if err := s.page.Locator(selector).First().SetInputFiles(path); err != nil {
		return fmt.Errorf("%s: attach %s to %s: %w", s.site, path, selector, err)
	}
	return nil
}

// WaitForURLContains blocks until the page URL contains the marker, with a
// bounded timeout. This is the post-login detection primitive. The wait
// polls in short slices so a cancelled context (Ctrl+C) aborts it promptly
// instead of sitting out the full timeout.
func (s *Session) WaitForURLContains(ctx context.Context, marker string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if strings.Contains(s.page.URL(), marker) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: waiting for %q in URL: %w", s.site, marker, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s: waiting for %q in URL: %w", s.site, marker, ErrTimeout)
		}
		s.page.WaitForTimeout(500)
	}
}

// WaitEnabled blocks until the element drops its aria-disabled attribute.
// Polled in slices like WaitForURLContains, for the same reason.
func (s *Session) WaitEnabled(ctx context.Context, selector string, timeout time.Duration) error {
	expr := fmt.Sprintf(`() => {
		const el = document.querySelector(%q);
		return !!el && el.getAttribute('aria-disabled') !== 'true';
	}`, selector)
	deadline := time.Now().Add(timeout)
	for {
		if v, err := s.page.Evaluate(expr); err == nil && v == true {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: waiting for %s enabled: %w", s.site, selector, err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s: waiting for %s enabled: %w", s.site, selector, ErrTimeout)
		}
		s.page.WaitForTimeout(500)
	}
}

// Dismiss presses Escape to close whatever dialog is open.
func (s *Session) Dismiss() {
	if err := s.page.Keyboard().Press("Escape"); err == nil {
		s.page.WaitForTimeout(500)
	}
}

// ScrollDown scrolls the page by dy pixels.
func (s *Session) ScrollDown(dy float64) {
	if err := s.page.Mouse().Wheel(0, dy); err == nil {
		s.page.WaitForTimeout(500)
	}
}

// Pause blocks for the given duration. Sites need breathing room between
// form steps; the delay values mirror what works against the real UIs.
func (s *Session) Pause(d time.Duration) {
	s.page.WaitForTimeout(float64(d.Milliseconds()))
}

// Close closes the adapter's page, leaving the shared context up.
func (s *Session) Close() {
	if err := s.page.Close(); err != nil {
		slog.Debug("page close", slog.String("site", s.site), slog.Any("error", err))
	}
}
