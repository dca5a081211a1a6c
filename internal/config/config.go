// Package config holds the runtime configuration, loaded from a YAML file
// on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/rezervator/internal/imaging"
	"github.com/erazemk/rezervator/internal/model"
)

// Config is the complete runtime configuration.
type Config struct {
	Database string `yaml:"database"`
	Blobs    string `yaml:"blobs"`
	Listen   string `yaml:"listen"`
	// Timezone decides what "today" is, as an IANA name.
	Timezone string `yaml:"timezone"`
	// Admins are the requester IDs allowed to request reminders and notify
	// everyone. Empty allows every requester.
	Admins []int64 `yaml:"admins"`

	Session SessionConfig `yaml:"session"`
	Digest  DigestConfig  `yaml:"digest"`
	Notify  NotifyConfig  `yaml:"notify"`
	Labels  LabelsConfig  `yaml:"labels"`
	Images  ImagesConfig  `yaml:"images"`
	Log     LogConfig     `yaml:"log"`
}

type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

type DigestConfig struct {
	// Schedule is a cron expression; seconds are optional.
	Schedule string `yaml:"schedule"`
	// Window is how many days ahead a reservation counts as ending soon.
	Window           int  `yaml:"window"`
	NotifyRequesters bool `yaml:"notify_requesters"`
}

type NotifyConfig struct {
	Workers int `yaml:"workers"`
	// WebhookURL receives outbound reminders. Empty logs them instead.
	WebhookURL string `yaml:"webhook_url"`
}

type LabelsConfig struct {
	Event     string `yaml:"event"`
	Requester string `yaml:"requester"`
}

type ImagesConfig struct {
	MaxDimension int `yaml:"max_dimension"`
	Quality      int `yaml:"quality"`
	MaxBytes     int `yaml:"max_bytes"`
}

type LogConfig struct {
	// File is an optional log file, rotated by size.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Debug      bool   `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: "rezervator.sqlite3",
		Blobs:    "rezervator.blobs",
		Listen:   ":8080",
		Timezone: "Local",
		Session: SessionConfig{
			TTL:             30 * time.Minute,
			JanitorInterval: time.Minute,
		},
		Digest: DigestConfig{
			Schedule: "0 9 * * *",
			Window:   3,
		},
		Notify: NotifyConfig{Workers: 4},
		Labels: LabelsConfig{Event: "No event", Requester: "User"},
		Images: ImagesConfig{
			MaxDimension: imaging.DefaultMaxDimension,
			Quality:      imaging.DefaultQuality,
			MaxBytes:     imaging.DefaultMaxBytes,
		},
		Log: LogConfig{MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Blobs == "" {
		errs = append(errs, errors.New("blob store path is required"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Session.JanitorInterval <= 0 {
		errs = append(errs, errors.New("session.janitor_interval must be positive"))
	}
	if _, err := cronParser.Parse(c.Digest.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("digest.schedule: %w", err))
	}
	if c.Digest.Window < 0 {
		errs = append(errs, errors.New("digest.window must not be negative"))
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, errors.New("notify.workers must be positive"))
	}
	if c.Images.MaxDimension <= 0 || c.Images.MaxBytes <= 0 {
		errs = append(errs, errors.New("images.max_dimension and images.max_bytes must be positive"))
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		errs = append(errs, errors.New("images.quality must be between 1 and 100"))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Processor returns the image processor for the configured limits.
func (c Config) Processor() imaging.Processor {
	return imaging.Processor{
		MaxDimension: c.Images.MaxDimension,
		Quality:      c.Images.Quality,
		MaxBytes:     c.Images.MaxBytes,
	}
}

// TodayIn returns a clock reporting the current date in loc.
func TodayIn(loc *time.Location) func() model.Date {
	return func() model.Date {
		return model.DateOf(time.Now().In(loc))
	}
}
