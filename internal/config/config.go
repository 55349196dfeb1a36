// Package config loads the static settings file and runtime knobs.
//
// Settings come from config.yaml; operational knobs (paths, timeouts,
// optional autofill credentials) can be overridden through environment
// variables. The file is read once at startup, there is no hot-reload.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"gopkg.in/yaml.v3"
)

// Config holds everything the run needs, passed by value into the
// workflow and both site adapters.
type Config struct {
	TitleTemplate       string `yaml:"title_template"`
	DescriptionTemplate string `yaml:"description_template"`
	DefaultPlaylist     string `yaml:"default_playlist"`
	ThumbnailFile       string `yaml:"thumbnail_file"`
	Privacy             string `yaml:"privacy"`
	MadeForKids         bool   `yaml:"made_for_kids"`

	// Runtime knobs, env-overridable. Not usually set in the file.
	ProfileDir      string        `yaml:"profile_dir"`
	DownloadDir     string        `yaml:"download_dir"`
	LoginTimeout    time.Duration `yaml:"login_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`

	// Optional Zoom sign-in autofill. Env only, never stored in the file.
	ZoomEmail    string `yaml:"-"`
	ZoomPassword string `yaml:"-"`
}

// Default knob values. A single browser profile directory is shared by
// both sites; running two instances against it concurrently is unsupported.
// The download directory is app-owned, never a shared location: the
// download watcher treats every new file in it as the recording.
var defaults = Config{
	TitleTemplate:       "{topic} {date}",
	DescriptionTemplate: "Meeting recording from {date}.",
	Privacy:             "public",
	ProfileDir:          "browser_data",
	DownloadDir:         filepath.Join(os.TempDir(), "go_rec"),
	LoginTimeout:        5 * time.Minute,
	DownloadTimeout:     10 * time.Minute,
	UploadTimeout:       10 * time.Minute,
}

// Load reads the YAML settings file and applies env overrides.
func Load(path string) (Config, error) {
	c := defaults

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, fmt.Errorf("config: %s not found, copy config.example.yaml and fill in your settings", path)
		}
		return c, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("config: parse %s: %w", path, err)
	}

	c.applyEnv()

	if err := c.validate(); err != nil {
		return c, err
	}
	if err := os.MkdirAll(c.DownloadDir, 0o755); err != nil {
		return c, fmt.Errorf("config: create download_dir %s: %w", c.DownloadDir, err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.ProfileDir = env.Str("GO_REC_PROFILE_DIR", c.ProfileDir)
	c.DownloadDir = env.Str("GO_REC_DOWNLOAD_DIR", c.DownloadDir)
	c.LoginTimeout = env.Duration("GO_REC_LOGIN_TIMEOUT", c.LoginTimeout)
	c.DownloadTimeout = env.Duration("GO_REC_DOWNLOAD_TIMEOUT", c.DownloadTimeout)
	c.UploadTimeout = env.Duration("GO_REC_UPLOAD_TIMEOUT", c.UploadTimeout)
	c.ZoomEmail = env.Str("ZOOM_EMAIL", "")
	c.ZoomPassword = env.Str("ZOOM_PASSWORD", "")
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.TitleTemplate) == "" {
		return fmt.Errorf("config: title_template must not be empty")
	}
	switch strings.ToLower(c.Privacy) {
	case "public", "unlisted", "private":
	default:
		return fmt.Errorf("config: invalid privacy %q (valid: public, unlisted, private)", c.Privacy)
	}
	if c.ThumbnailFile != "" {
		if _, err := os.Stat(c.ThumbnailFile); err != nil {
			return fmt.Errorf("config: thumbnail_file %s: %w", c.ThumbnailFile, err)
		}
	}
	return nil
}

// Render substitutes {topic} and {date} placeholders in a template.
func Render(template, topic string, date time.Time) string {
	return strings.NewReplacer(
		"{topic}", topic,
		"{date}", date.Format("2006-01-02"),
	).Replace(template)
}
