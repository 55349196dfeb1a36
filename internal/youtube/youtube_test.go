package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_rec/internal/browser"
	"github.com/anatolykoptev/go_rec/internal/config"
)

// fakePage satisfies Page without a browser. The URL is fixed; the wait
// outcome is scripted.
type fakePage struct {
	url       string
	waitErr   error
	waitCalls int
}

func (f *fakePage) Goto(string) error                 { return nil }
func (f *fakePage) URL() string                       { return f.url }
func (f *fakePage) Content() (string, error)          { return "", nil }
func (f *fakePage) ClickFirstVisible(...string) error { return nil }
func (f *fakePage) TypeText(_, _ string) error        { return nil }
func (f *fakePage) SetInputFiles(_, _ string) error   { return nil }
func (f *fakePage) ScrollDown(float64)                {}
func (f *fakePage) Dismiss()                          {}
func (f *fakePage) Pause(time.Duration)               {}

func (f *fakePage) WaitForURLContains(context.Context, string, time.Duration) error {
	f.waitCalls++
	return f.waitErr
}

func (f *fakePage) WaitEnabled(context.Context, string, time.Duration) error {
	return f.waitErr
}

func TestEnsureLoggedIn_ReusesSession(t *testing.T) {
	page := &fakePage{url: "https://studio.youtube.com/channel/UCabc"}
	out := &strings.Builder{}
	c := New(page, config.Config{}, out)

	if err := c.EnsureLoggedIn(context.Background()); err != nil {
		t.Fatalf("EnsureLoggedIn error: %v", err)
	}
	if page.waitCalls != 0 {
		t.Errorf("authenticated session must not wait for login, waited %d times", page.waitCalls)
	}
	if out.String() != "" {
		t.Errorf("no login prompt expected: %q", out.String())
	}
}

func TestEnsureLoggedIn_WaitsForManualLogin(t *testing.T) {
	page := &fakePage{url: "https://accounts.google.com/v3/signin"}
	out := &strings.Builder{}
	c := New(page, config.Config{LoginTimeout: time.Minute}, out)

	if err := c.EnsureLoggedIn(context.Background()); err != nil {
		t.Fatalf("EnsureLoggedIn error: %v", err)
	}
	if page.waitCalls != 1 {
		t.Errorf("waitCalls = %d, want 1", page.waitCalls)
	}
	if !strings.Contains(out.String(), "log in to your Google account") {
		t.Errorf("expected login prompt in output: %q", out.String())
	}
}

func TestEnsureLoggedIn_Timeout(t *testing.T) {
	page := &fakePage{
		url:     "https://accounts.google.com/v3/signin",
		waitErr: fmt.Errorf("youtube: waiting: %w", browser.ErrTimeout),
	}
	c := New(page, config.Config{LoginTimeout: time.Minute}, &strings.Builder{})

	err := c.EnsureLoggedIn(context.Background())
	if !errors.Is(err, ErrLoginTimeout) {
		t.Errorf("expected ErrLoginTimeout, got %v", err)
	}
}
