package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
)

// AwaitOptions bounds the wait for a triggered download.
type AwaitOptions struct {
	Timeout  time.Duration // hard cap for the whole download
	Settle   time.Duration // quiet period after the last write before the file counts as complete
	Progress *mpb.Progress // optional progress container; nil disables the bar
	Label    string        // bar label, usually the recording topic
}

// partialSuffixes mark in-flight browser download files.
var partialSuffixes = []string{".crdownload", ".part", ".tmp", ".download"}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// AwaitDownload watches dir until a file that did not exist before the
// trigger finishes growing, and returns its path. A file counts as
// complete once no write has touched it for the settle period and no
// partial-download suffix remains. The wait is bounded by Timeout; on
// timeout or cancellation any file the attempt left behind is removed.
//
// The caller must snapshot the directory with SnapshotDir before
// triggering the download click.
func AwaitDownload(ctx context.Context, dir string, existing map[string]bool, opts AwaitOptions) (string, error) {
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("download: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return "", fmt.Errorf("download: watch %s: %w", dir, err)
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	// Reset on every write; fires once the candidate has settled.
	settle := time.NewTimer(opts.Settle)
	settle.Stop()

	bar, track, done := newDownloadBar(opts)
	defer func() {
		close(done)
		if bar != nil {
			bar.SetTotal(1, true)
		}
	}()

	var candidate string
	// The directory may already hold the finished file when the click
	// completed before the watcher was up; catch it on the first settle.
	settle.Reset(opts.Settle)

	for {
		select {
		case <-ctx.Done():
			discardNewcomers(dir, existing)
			return "", fmt.Errorf("download cancelled: %w", ctx.Err())

		case <-deadline.C:
			discardNewcomers(dir, existing)
			return "", fmt.Errorf("download did not complete within %s: %w", opts.Timeout, ErrTimeout)

		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("download: watcher closed: %w", ErrTimeout)
			}
			name := filepath.Base(event.Name)
			if existing[name] || name == "" {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				candidate = event.Name
				track(candidate)
				settle.Reset(opts.Settle)
			case event.Op&fsnotify.Remove != 0 && event.Name == candidate:
				// Browser renamed the partial file away; wait for the next event.
				candidate = ""
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("download: watcher closed: %w", ErrTimeout)
			}
			slog.Warn("download watcher", slog.Any("error", err))

		case <-settle.C:
			path, ok := settledFile(dir, existing, candidate)
			if !ok {
				settle.Reset(opts.Settle)
				continue
			}
			return path, nil
		}
	}
}

// settledFile picks the completed download: the candidate if it is a real
// file, otherwise the newest non-partial newcomer in the directory.
func settledFile(dir string, existing map[string]bool, candidate string) (string, bool) {
	if candidate != "" && !isPartial(candidate) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || existing[e.Name()] || isPartial(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, e.Name())
			newestMod = info.ModTime()
		}
	}
	return newest, newest != ""
}

// discardNewcomers removes whatever a failed download attempt left in the
// directory, partial suffix or not. Best effort: files already gone are
// fine, anything else is only logged. Entries from the pre-trigger
// snapshot are never touched.
func discardNewcomers(dir string, existing map[string]bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || existing[e.Name()] {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("discard incomplete download", slog.String("path", path), slog.Any("error", err))
			continue
		}
		slog.Debug("discarded incomplete download", slog.String("path", path))
	}
}

// SnapshotDir records the names already present, so AwaitDownload can tell
// the new download apart from leftovers of previous runs.
func SnapshotDir(dir string) map[string]bool {
	existing := map[string]bool{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return existing
	}
	for _, e := range entries {
		existing[e.Name()] = true
	}
	return existing
}

// newDownloadBar builds a spinner bar whose size ticks with the growing
// file. The returned track func points the ticker at the file currently
// being written. The bar is nil when progress display is disabled.
func newDownloadBar(opts AwaitOptions) (*mpb.Bar, func(string), chan struct{}) {
	done := make(chan struct{})
	if opts.Progress == nil {
		return nil, func(string) {}, done
	}
	var target atomic.Pointer[string]
	bar := opts.Progress.AddBar(100*1024*1024*1024,
		mpb.BarWidth(3),
		mpb.PrependDecorators(
			decor.Spinner([]string{"●∙∙", "∙●∙", "∙∙●", "∙●∙"}, decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.AverageSpeed(decor.UnitKB, " %.1f", decor.WC{W: 15, C: decor.DidentRight}),
			decor.Name(opts.Label),
		),
		mpb.BarRemoveOnComplete(),
	)
	go func() {
		start := time.Now()
		var lastSize int64
		t := time.NewTicker(500 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				path := target.Load()
				if path == nil {
					continue
				}
				info, err := os.Stat(*path)
				if err != nil {
					continue
				}
				bar.IncrInt64(info.Size()-lastSize, time.Since(start))
				lastSize = info.Size()
			}
		}
	}()
	track := func(p string) { target.Store(&p) }
	return bar, track, done
}
