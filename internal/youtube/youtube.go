// Package youtube drives the YouTube Studio web UI to publish a video
// with title, description, thumbnail and playlist, and reads back the
// resulting video URL.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_rec/internal/browser"
	"github.com/anatolykoptev/go_rec/internal/config"
)

const studioURL = "https://studio.youtube.com"

// ErrLoginTimeout means Studio never became reachable after the Google
// sign-in redirect within the configured bound.
var ErrLoginTimeout = errors.New("login wait timed out")

// ErrPlaylistNotFound means the configured playlist name was not offered
// in the playlist dialog. Policy: fail the upload rather than publish
// outside the playlist.
var ErrPlaylistNotFound = errors.New("playlist not found")

// Metadata is the read-only input for one upload.
type Metadata struct {
	Title       string
	Description string
	Playlist    string // optional; must exist when set
	Thumbnail   string // optional local image path
	Privacy     string // public, unlisted or private
	MadeForKids bool
}

// Result is the terminal value of a successful upload.
type Result struct {
	VideoID string
}

// URL returns the published watch URL.
func (r Result) URL() string {
	return "https://youtu.be/" + r.VideoID
}

// Page is the slice of the browser session the adapter drives.
// *browser.Session satisfies it.
type Page interface {
	Goto(url string) error
	URL() string
	Content() (string, error)
	ClickFirstVisible(selectors ...string) error
	TypeText(selector, text string) error
	SetInputFiles(selector, path string) error
	ScrollDown(dy float64)
	Dismiss()
	Pause(d time.Duration)
	WaitForURLContains(ctx context.Context, marker string, timeout time.Duration) error
	WaitEnabled(ctx context.Context, selector string, timeout time.Duration) error
}

// Client is the destination-site adapter.
type Client struct {
	session Page
	cfg     config.Config
	out     io.Writer // user-facing messages
}

// New builds a YouTube client on an already-open browser session.
func New(session Page, cfg config.Config, out io.Writer) *Client {
	return &Client{session: session, cfg: cfg, out: out}
}

// onGoogleLogin reports whether the browser got redirected to the Google
// account chooser instead of Studio.
func onGoogleLogin(url string) bool {
	return strings.Contains(url, "accounts.google.com")
}

// EnsureLoggedIn opens YouTube Studio and, when Google bounces to the
// account sign-in, waits for the user to finish logging in by hand.
func (c *Client) EnsureLoggedIn(ctx context.Context) error {
	if err := c.session.Goto(studioURL); err != nil {
		return fmt.Errorf("youtube: open studio: %w", err)
	}
	if !onGoogleLogin(c.session.URL()) {
		slog.Debug("youtube session already authenticated")
		return nil
	}

	fmt.Fprintln(c.out, "Please log in to your Google account in the browser window.")
	if err := c.session.WaitForURLContains(ctx, "studio.youtube.com", c.cfg.LoginTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return fmt.Errorf("youtube: %w", ErrLoginTimeout)
		}
		return fmt.Errorf("youtube: login wait: %w", err)
	}
	return nil
}

// Upload walks the Studio upload dialog end to end and returns the
// published video URL. Any required form step that cannot be completed
// fails the upload; nothing is skipped silently except the optional
// thumbnail and made-for-kids radio, which Studio sometimes hides.
func (c *Client) Upload(ctx context.Context, filePath string, meta Metadata) (Result, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("youtube: upload: resolve %s: %w", filePath, err)
	}

	if err := c.openUploadDialog(); err != nil {
		return Result{}, err
	}
	if err := c.session.SetInputFiles(`input[type="file"]`, abs); err != nil {
		return Result{}, fmt.Errorf("youtube: upload: %w", err)
	}

	// The details form appears once Studio has accepted the file.
	if err := c.session.WaitForURLContains(ctx, "studio.youtube.com", time.Minute); err != nil {
		return Result{}, fmt.Errorf("youtube: upload: details form: %w", err)
	}
	c.session.Pause(2 * time.Second)

	if err := c.fillDetails(meta); err != nil {
		return Result{}, err
	}
	if err := c.walkToVisibility(meta); err != nil {
		return Result{}, err
	}
	if err := c.publish(ctx); err != nil {
		return Result{}, err
	}

	id, err := c.videoID()
	if err != nil {
		return Result{}, err
	}
	slog.Info("upload published", slog.String("video_id", id), slog.String("title", meta.Title))
	return Result{VideoID: id}, nil
}

// openUploadDialog clicks Create → Upload videos, falling back to the
// direct upload URL when the button is not where it used to be.
func (c *Client) openUploadDialog() error {
	err := c.session.ClickFirstVisible(
		`#create-icon`,
		`[aria-label="Create"]`,
		`button:has-text("Create")`,
		`#upload-icon`,
	)
	if err == nil {
		if err := c.session.ClickFirstVisible(`text=Upload videos`); err != nil {
			return fmt.Errorf("youtube: upload: %w", err)
		}
		return nil
	}
	slog.Debug("create button not found, using direct upload URL", slog.Any("error", err))
	if err := c.session.Goto(studioURL + "/channel/UC/videos/upload?d=ud"); err != nil {
		return fmt.Errorf("youtube: upload: %w", err)
	}
	return nil
}

// fillDetails sets title, description, thumbnail, playlist and audience on
// the first dialog step.
func (c *Client) fillDetails(meta Metadata) error {
	if err := c.session.TypeText(`#title-textarea #textbox`, meta.Title); err != nil {
		return fmt.Errorf("youtube: upload: set title: %w", err)
	}
	if meta.Description != "" {
		if err := c.session.TypeText(`#description-textarea #textbox`, meta.Description); err != nil {
			return fmt.Errorf("youtube: upload: set description: %w", err)
		}
	}

	if meta.Thumbnail != "" {
		c.setThumbnail(meta.Thumbnail)
	}
	if meta.Playlist != "" {
		if err := c.setPlaylist(meta.Playlist); err != nil {
			return err
		}
	}

	c.session.ScrollDown(300)
	c.setAudience(meta.MadeForKids)
	return nil
}

// setThumbnail attaches the thumbnail image. Optional: a missing picker
// logs and moves on.
func (c *Client) setThumbnail(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		slog.Warn("thumbnail path", slog.Any("error", err))
		return
	}
	for _, sel := range []string{
		`input[type="file"][accept*="image"]`,
		`#still-picker input[type="file"]`,
	} {
		if err := c.session.SetInputFiles(sel, abs); err == nil {
			c.session.Pause(2 * time.Second)
			return
		}
	}
	slog.Warn("could not set thumbnail, continuing without it", slog.String("path", path))
}

// setPlaylist opens the playlist dialog and checks the named playlist.
// A name that is not offered fails the upload.
func (c *Client) setPlaylist(name string) error {
	if err := c.session.ClickFirstVisible(`ytcp-video-metadata-playlists`); err != nil {
		return fmt.Errorf("youtube: upload: open playlist dialog: %w", err)
	}

	checkbox := fmt.Sprintf(`label:has-text(%q)`, name)
	if err := c.session.ClickFirstVisible(checkbox); err != nil {
		c.session.Dismiss()
		return fmt.Errorf("youtube: upload: playlist %q: %w", name, ErrPlaylistNotFound)
	}

	if err := c.session.ClickFirstVisible(`ytcp-playlist-dialog button:has-text("Done")`); err != nil {
		c.session.Dismiss()
	}
	return nil
}

// setAudience picks the made-for-kids radio. Studio occasionally reworks
// this section; the upload still goes through without it, so log and
// continue instead of failing.
func (c *Client) setAudience(madeForKids bool) {
	radio, label := `[name="NOT_MADE_FOR_KIDS"]`, `text=No, it's not made for kids`
	if madeForKids {
		radio, label = `[name="MADE_FOR_KIDS"]`, `text=Yes, it's made for kids`
	}
	if err := c.session.ClickFirstVisible(radio, label); err != nil {
		slog.Warn("could not set made-for-kids audience", slog.Any("error", err))
	}
}

// walkToVisibility clicks Next through video elements and checks, then
// selects the visibility radio.
func (c *Client) walkToVisibility(meta Metadata) error {
	for step := 1; step <= 3; step++ {
		if err := c.session.ClickFirstVisible(`#next-button`); err != nil {
			return fmt.Errorf("youtube: upload: next at step %d: %w", step, err)
		}
		c.session.Pause(2 * time.Second)
	}

	privacy := strings.ToUpper(meta.Privacy)
	if err := c.session.ClickFirstVisible(
		fmt.Sprintf(`[name=%q]`, privacy),
		fmt.Sprintf(`tp-yt-paper-radio-button:has-text(%q)`, titleCase(meta.Privacy)),
	); err != nil {
		return fmt.Errorf("youtube: upload: set visibility %s: %w", meta.Privacy, err)
	}
	c.session.Pause(time.Second)
	return nil
}

// publish waits for processing to finish enough for the done button to
// enable, then clicks it.
func (c *Client) publish(ctx context.Context) error {
	if err := c.session.WaitEnabled(ctx, `#done-button`, c.cfg.UploadTimeout); err != nil {
		return fmt.Errorf("youtube: upload: waiting for processing: %w", err)
	}
	c.session.Pause(time.Second)
	if err := c.session.ClickFirstVisible(
		`#done-button`,
		`button:has-text("Publish")`,
		`button:has-text("Save")`,
	); err != nil {
		return fmt.Errorf("youtube: upload: publish: %w", err)
	}
	c.session.Pause(5 * time.Second)
	return nil
}

// videoID reads the published video's ID from the success dialog link or
// the page URL.
func (c *Client) videoID() (string, error) {
	pageHTML, err := c.session.Content()
	if err != nil {
		return "", fmt.Errorf("youtube: upload: read result: %w", err)
	}
	if id := extractVideoID(pageHTML, c.session.URL()); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("youtube: upload: video URL not found: %w", browser.ErrElementNotFound)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
