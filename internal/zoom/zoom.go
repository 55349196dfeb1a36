// Package zoom drives the Zoom web UI: session reuse or manual login,
// listing recordings for a date, and downloading a chosen recording.
package zoom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v4"

	"github.com/anatolykoptev/go_rec/internal/browser"
	"github.com/anatolykoptev/go_rec/internal/config"
)

const recordingsURL = "https://zoom.us/recording"

// ErrNoRecordingList means the recordings page rendered without any
// recognizable recording list. That is selector drift, not an empty result.
var ErrNoRecordingList = errors.New("recording list not found on page")

// ErrLoginTimeout means the post-login marker never appeared within the
// configured bound.
var ErrLoginTimeout = errors.New("login wait timed out")

// Page is the slice of the browser session the adapter drives.
// *browser.Session satisfies it.
type Page interface {
	Goto(url string) error
	URL() string
	Content() (string, error)
	Visible(selectors ...string) bool
	Fill(selector, value string) error
	ClickFirstVisible(selectors ...string) error
	Pause(d time.Duration)
	WaitForURLContains(ctx context.Context, marker string, timeout time.Duration) error
}

// Client is the source-site adapter.
type Client struct {
	session  Page
	cfg      config.Config
	progress *mpb.Progress // optional download progress container
	out      io.Writer     // user-facing messages
}

// New builds a Zoom client on an already-open browser session.
func New(session Page, cfg config.Config, progress *mpb.Progress, out io.Writer) *Client {
	return &Client{session: session, cfg: cfg, progress: progress, out: out}
}

// needsLogin reports whether the current URL is a Zoom sign-in page.
func needsLogin(url string) bool {
	return strings.Contains(url, "/signin") || strings.Contains(url, "/login")
}

// EnsureLoggedIn opens the recordings page and, when Zoom redirects to the
// sign-in form, autofills configured credentials or waits for the user to
// finish logging in by hand. With a valid saved session this is just a
// page load.
func (c *Client) EnsureLoggedIn(ctx context.Context) error {
	if err := c.session.Goto(recordingsURL); err != nil {
		return fmt.Errorf("zoom: open recordings: %w", err)
	}
	if !needsLogin(c.session.URL()) {
		slog.Debug("zoom session already authenticated")
		return nil
	}

	if c.cfg.ZoomEmail != "" && c.cfg.ZoomPassword != "" {
		c.autofillLogin()
	}

	if needsLogin(c.session.URL()) {
		fmt.Fprintln(c.out, "Please complete the Zoom login in the browser window.")
	}
	if err := c.session.WaitForURLContains(ctx, "/recording", c.cfg.LoginTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return fmt.Errorf("zoom: %w", ErrLoginTimeout)
		}
		return fmt.Errorf("zoom: login wait: %w", err)
	}
	return nil
}

// autofillLogin fills the sign-in form from env credentials. Best effort:
// captchas or second factors still need the human, so failures here only
// fall back to the manual wait.
func (c *Client) autofillLogin() {
	slog.Info("autofilling zoom sign-in form")
	if err := c.session.Fill(`input[type="email"], input[name="email"], #email`, c.cfg.ZoomEmail); err != nil {
		slog.Debug("zoom email field", slog.Any("error", err))
		return
	}
	if err := c.session.Fill(`input[type="password"], input[name="password"], #password`, c.cfg.ZoomPassword); err != nil {
		slog.Debug("zoom password field", slog.Any("error", err))
		return
	}
	if err := c.session.ClickFirstVisible(
		`button:has-text("Sign In")`,
		`button:has-text("Next")`,
		`input[type="submit"]`,
	); err != nil {
		slog.Debug("zoom sign-in button", slog.Any("error", err))
	}
	c.session.Pause(3 * time.Second)
}

// ListRecordings returns the recordings Zoom displays for the given date,
// in site order. An empty result with a readable list is not an error.
func (c *Client) ListRecordings(date time.Time) ([]Recording, error) {
	if err := c.session.Goto(recordingsURL); err != nil {
		return nil, fmt.Errorf("zoom: open recordings: %w", err)
	}
	pageHTML, err := c.session.Content()
	if err != nil {
		return nil, fmt.Errorf("zoom: list recordings: %w", err)
	}

	recordings, totalLinks, err := parseRecordings(pageHTML, date)
	if err != nil {
		return nil, fmt.Errorf("zoom: list recordings: %w", err)
	}
	if totalLinks == 0 {
		// No entry links at all: either the account has no recordings, or
		// the markup drifted. A recordings page without its list container
		// is drift and must not read as "nothing on that date".
		if !c.session.Visible(`[class*="recording"]`, `[id*="recording"]`) {
			return nil, fmt.Errorf("zoom: list recordings: %w", ErrNoRecordingList)
		}
	}
	slog.Debug("zoom recordings listed",
		slog.Int("matched", len(recordings)),
		slog.Int("links_on_page", totalLinks),
	)
	return recordings, nil
}

// downloadSelectors locate the download control on a detail page. Zoom's
// UI varies between tenants, hence the chain.
var downloadSelectors = []string{
	`button:has-text("Download")`,
	`a[href*="dl=1"]`,
	`a[href*="ssv="]`,
	`a[href*="rec/download"]`,
	`[aria-label*="ownload"]`,
}

// confirmSelectors locate the Download button inside the optional
// "Download recording files" confirmation dialog.
var confirmSelectors = []string{
	`.zm-modal-footer button:has-text("Download")`,
	`.modal-footer button:has-text("Download")`,
	`[role="dialog"] button:has-text("Download")`,
	`.ReactModal__Content button:has-text("Download")`,
}

// Download opens the recording's detail page, triggers the download and
// blocks until the browser has fully written the file, then moves it to
// destPath. The wait is bounded by the configured download timeout.
func (c *Client) Download(ctx context.Context, rec Recording, destPath string) error {
	url := rec.DownloadURL
	if !strings.HasPrefix(url, "http") {
		url = "https://zoom.us" + url
	}
	if err := c.session.Goto(url); err != nil {
		return fmt.Errorf("zoom: download: open detail page: %w", err)
	}

	existing := browser.SnapshotDir(c.cfg.DownloadDir)

	if err := c.session.ClickFirstVisible(downloadSelectors...); err != nil {
		return fmt.Errorf("zoom: download: %w", err)
	}
	// A confirmation dialog may or may not appear; when it does, its own
	// Download button is what actually starts the transfer.
	if err := c.session.ClickFirstVisible(confirmSelectors...); err != nil {
		slog.Debug("zoom download confirmation dialog not shown", slog.Any("error", err))
	}

	got, err := browser.AwaitDownload(ctx, c.cfg.DownloadDir, existing, browser.AwaitOptions{
		Timeout:  c.cfg.DownloadTimeout,
		Settle:   2 * time.Second,
		Progress: c.progress,
		Label:    rec.Topic,
	})
	if err != nil {
		return fmt.Errorf("zoom: download %q: %w", rec.Topic, err)
	}

	if got != destPath {
		if err := os.Rename(got, destPath); err != nil {
			// The downloaded file must not outlive the failed run.
			if rmErr := os.Remove(got); rmErr != nil && !os.IsNotExist(rmErr) {
				slog.Warn("remove undeliverable download", slog.String("path", got), slog.Any("error", rmErr))
			}
			return fmt.Errorf("zoom: download: move %s to %s: %w", filepath.Base(got), destPath, err)
		}
	}
	slog.Info("recording downloaded", slog.String("topic", rec.Topic), slog.String("path", destPath))
	return nil
}
