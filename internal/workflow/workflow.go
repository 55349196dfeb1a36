// Package workflow sequences one end-to-end run: prompt for a date, list
// the recordings, let the user pick one, download it from the source site,
// upload it to the destination site, print the resulting URL, and delete
// the local file whatever happened after the download.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_rec/internal/config"
	"github.com/anatolykoptev/go_rec/internal/youtube"
	"github.com/anatolykoptev/go_rec/internal/zoom"
)

// Source lists and downloads recordings on the source site.
type Source interface {
	EnsureLoggedIn(ctx context.Context) error
	ListRecordings(date time.Time) ([]zoom.Recording, error)
	Download(ctx context.Context, rec zoom.Recording, destPath string) error
}

// Destination publishes a local video file on the destination site.
type Destination interface {
	EnsureLoggedIn(ctx context.Context) error
	Upload(ctx context.Context, filePath string, meta youtube.Metadata) (youtube.Result, error)
}

// History remembers what was already published.
type History interface {
	Find(title string) (url string, ok bool, err error)
	Record(title, url string) error
}

// Workflow wires the collaborators for one run.
type Workflow struct {
	Cfg         config.Config
	Source      Source
	Destination Destination
	History     History // optional
	Prompter    *Prompter
	Out         io.Writer
}

// Run executes the linear sequence. A date with no recordings is a
// successful run. The downloaded file is deleted on every exit path once
// it exists, including upload failures and interrupts; ctx is checked
// between steps so Ctrl+C lands at the next boundary even where a
// collaborator blocks.
func (w *Workflow) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	date, err := w.Prompter.Date()
	if err != nil {
		return err
	}
	fmt.Fprintf(w.Out, "Looking up recordings for %s\n", date.Format("2006-01-02"))

	if err := w.Source.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	entries, err := w.Source.ListRecordings(date)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w.Out, "No recordings found for this date.")
		return nil
	}

	selected, err := w.selectRecording(entries)
	if err != nil {
		return err
	}

	title := config.Render(w.Cfg.TitleTemplate, selected.Topic, date)
	description := config.Render(w.Cfg.DescriptionTemplate, selected.Topic, date)

	if done, err := w.checkAlreadyUploaded(title); err != nil || done {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	destPath := filepath.Join(w.Cfg.DownloadDir, filename(title))
	downloaded, err := w.download(ctx, selected, destPath)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if downloaded {
		defer w.cleanup(destPath)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := w.Destination.EnsureLoggedIn(ctx); err != nil {
		return err
	}

	result, err := w.Destination.Upload(ctx, destPath, youtube.Metadata{
		Title:       title,
		Description: description,
		Playlist:    w.Cfg.DefaultPlaylist,
		Thumbnail:   w.Cfg.ThumbnailFile,
		Privacy:     w.Cfg.Privacy,
		MadeForKids: w.Cfg.MadeForKids,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w.Out, result.URL())

	if w.History != nil {
		if err := w.History.Record(title, result.URL()); err != nil {
			slog.Warn("recording upload history", slog.Any("error", err))
		}
	}
	return nil
}

// selectRecording shows the list and reads a choice; a single match is
// selected automatically.
func (w *Workflow) selectRecording(entries []zoom.Recording) (zoom.Recording, error) {
	if len(entries) == 1 {
		fmt.Fprintf(w.Out, "Found: %s (%s)\n", entries[0].Topic, entries[0].Date)
		return entries[0], nil
	}
	for i, e := range entries {
		fmt.Fprintf(w.Out, "%3d  %-40s %-14s %s\n", i+1, e.Topic, e.Date, e.Duration)
	}
	idx, err := w.Prompter.Select(len(entries))
	if err != nil {
		return zoom.Recording{}, err
	}
	return entries[idx], nil
}

// checkAlreadyUploaded consults the history log and asks before uploading
// a title twice. done=true means the run should stop, successfully.
func (w *Workflow) checkAlreadyUploaded(title string) (done bool, err error) {
	if w.History == nil {
		return false, nil
	}
	url, ok, err := w.History.Find(title)
	if err != nil {
		slog.Warn("upload history lookup", slog.Any("error", err))
		return false, nil
	}
	if !ok {
		return false, nil
	}
	fmt.Fprintf(w.Out, "Already uploaded: %s\n", url)
	again, err := w.Prompter.Confirm("Upload again?", false)
	if err != nil {
		return false, err
	}
	if !again {
		fmt.Fprintln(w.Out, "Aborted.")
		return true, nil
	}
	return false, nil
}

// download fetches the recording unless a file from an interrupted run is
// already sitting at destPath.
func (w *Workflow) download(ctx context.Context, rec zoom.Recording, destPath string) (bool, error) {
	if _, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(w.Out, "File already exists, skipping download: %s\n", destPath)
		return true, nil
	}
	fmt.Fprintln(w.Out, "Downloading recording (watch the browser window)...")
	if err := w.Source.Download(ctx, rec, destPath); err != nil {
		return false, err
	}
	return true, nil
}

// cleanup removes the downloaded file. Idempotent: a file that is already
// gone is success, so running it on several exit paths is harmless.
func (w *Workflow) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("cleanup", slog.String("path", path), slog.Any("error", err))
		return
	}
	fmt.Fprintf(w.Out, "Cleaned up %s\n", path)
}

// filename derives a safe local file name from the rendered title.
func filename(title string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, title)
	return safe + ".mp4"
}
