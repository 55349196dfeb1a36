// go_rec — Zoom recording → YouTube re-upload CLI.
//
// Finds a meeting recording on Zoom for a chosen date, downloads it
// through a real browser session, and publishes it to YouTube Studio with
// templated metadata. Both sites are driven through their web UIs on a
// shared persistent browser profile, so completed logins survive across
// runs. One recording per run; the downloaded file is deleted before exit.
//
// Not designed for concurrent invocation: two runs sharing the same
// profile directory have undefined behavior.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/vbauerster/mpb/v4"

	"github.com/anatolykoptev/go_rec/internal/browser"
	"github.com/anatolykoptev/go_rec/internal/config"
	"github.com/anatolykoptev/go_rec/internal/history"
	"github.com/anatolykoptev/go_rec/internal/workflow"
	"github.com/anatolykoptev/go_rec/internal/youtube"
	"github.com/anatolykoptev/go_rec/internal/zoom"
)

var (
	version     = "dev"
	configFile  = env.Str("GO_REC_CONFIG", "config.yaml")
	historyFile = env.Str("GO_REC_HISTORY", "uploads.db")
)

func main() {
	os.Exit(run())
}

func run() int {
	fmt.Printf("go_rec %s — Zoom recording → YouTube uploader\n\n", version)

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// First Ctrl+C cancels the run; the deferred cleanup in the workflow
	// still removes an already-downloaded file. Unregistering after the
	// cancel restores the default handler, so a second Ctrl+C kills a
	// stuck browser wait outright.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		stop()
	}()

	b, err := browser.Launch(cfg.ProfileDir, cfg.DownloadDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer b.Close()

	zoomSession, err := b.NewSession("zoom")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer zoomSession.Close()

	studioSession, err := b.NewSession("youtube")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer studioSession.Close()

	progress := mpb.NewWithContext(ctx, mpb.WithWidth(64))

	var hist workflow.History
	store, err := history.Open(historyFile)
	if err != nil {
		slog.Warn("upload history unavailable", slog.Any("error", err))
	} else {
		hist = store
		defer store.Close()
	}

	wf := &workflow.Workflow{
		Cfg:         cfg,
		Source:      zoom.New(zoomSession, cfg, progress, os.Stdout),
		Destination: youtube.New(studioSession, cfg, os.Stdout),
		History:     hist,
		Prompter:    workflow.NewPrompter(os.Stdin, os.Stdout),
		Out:         os.Stdout,
	}

	err = wf.Run(ctx)
	progress.Wait()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
