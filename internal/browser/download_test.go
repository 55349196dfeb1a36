package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAwaitDownload_SettledFile(t *testing.T) {
	dir := t.TempDir()

	// Leftover from an earlier run, must be ignored.
	if err := os.WriteFile(filepath.Join(dir, "old.mp4"), []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	existing := SnapshotDir(dir)

	target := filepath.Join(dir, "meeting.mp4")
	go func() {
		// Simulate the browser writing the file in chunks.
		f, err := os.Create(target)
		if err != nil {
			return
		}
		for range 3 {
			_, _ = f.Write([]byte("chunkchunkchunk"))
			time.Sleep(50 * time.Millisecond)
		}
		f.Close()
	}()

	got, err := AwaitDownload(context.Background(), dir, existing, AwaitOptions{
		Timeout: 5 * time.Second,
		Settle:  300 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("AwaitDownload error: %v", err)
	}
	if got != target {
		t.Errorf("AwaitDownload = %q, want %q", got, target)
	}
}

func TestAwaitDownload_IgnoresPartialFiles(t *testing.T) {
	dir := t.TempDir()
	existing := SnapshotDir(dir)

	partial := filepath.Join(dir, "meeting.mp4.crdownload")
	final := filepath.Join(dir, "meeting.mp4")
	go func() {
		_ = os.WriteFile(partial, []byte("partial"), 0o600)
		time.Sleep(100 * time.Millisecond)
		// Browser completes by renaming the partial file.
		_ = os.Rename(partial, final)
	}()

	got, err := AwaitDownload(context.Background(), dir, existing, AwaitOptions{
		Timeout: 5 * time.Second,
		Settle:  300 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("AwaitDownload error: %v", err)
	}
	if got != final {
		t.Errorf("AwaitDownload = %q, want %q", got, final)
	}
}

func TestAwaitDownload_Timeout(t *testing.T) {
	dir := t.TempDir()
	existing := SnapshotDir(dir)

	_, err := AwaitDownload(context.Background(), dir, existing, AwaitOptions{
		Timeout: 400 * time.Millisecond,
		Settle:  150 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if !strings.Contains(err.Error(), "download") {
		t.Errorf("error message should mention download: %v", err)
	}
}

func TestAwaitDownload_TimeoutRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	existing := SnapshotDir(dir)

	// A writer that never stops: every write resets the settle timer, so
	// only the hard deadline can end the wait.
	partial := filepath.Join(dir, "meeting.mp4.crdownload")
	f, err := os.Create(partial)
	if err != nil {
		t.Fatal(err)
	}
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				_, _ = f.Write([]byte("chunk"))
				time.Sleep(50 * time.Millisecond)
			}
		}
	}()

	_, err = AwaitDownload(context.Background(), dir, existing, AwaitOptions{
		Timeout: 400 * time.Millisecond,
		Settle:  200 * time.Millisecond,
	})
	close(stop)
	f.Close()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if _, statErr := os.Stat(partial); !os.IsNotExist(statErr) {
		t.Errorf("partial file should be removed after timeout: %v", statErr)
	}
}

func TestAwaitDownload_Cancelled(t *testing.T) {
	dir := t.TempDir()

	// Leftover from an earlier run, snapshotted, must survive the abort.
	kept := filepath.Join(dir, "old.mp4")
	if err := os.WriteFile(kept, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	existing := SnapshotDir(dir)

	// Arrived after the trigger; the abort must take it with it.
	newcomer := filepath.Join(dir, "meeting.mp4.crdownload")
	if err := os.WriteFile(newcomer, []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitDownload(ctx, dir, existing, AwaitOptions{
		Timeout: 5 * time.Second,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(newcomer); !os.IsNotExist(statErr) {
		t.Errorf("new file should be removed on cancel: %v", statErr)
	}
	if _, statErr := os.Stat(kept); statErr != nil {
		t.Errorf("pre-existing file must not be touched: %v", statErr)
	}
}

func TestIsPartial(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"meeting.mp4.crdownload", true},
		{"meeting.mp4.part", true},
		{"meeting.mp4.TMP", true},
		{"meeting.mp4", false},
		{"partly.mp4", false},
	}
	for _, tt := range tests {
		if got := isPartial(tt.name); got != tt.want {
			t.Errorf("isPartial(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
