// Package config loads the server configuration from an optional YAML
// file and TIMEGRID_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// BackupConfig describes where encrypted snapshots go and how often.
type BackupConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Prefix        string `yaml:"prefix"`
	Schedule      string `yaml:"schedule"`
	Passphrase    string `yaml:"passphrase"`
	RetentionDays int    `yaml:"retention_days"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen     string `yaml:"listen"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	Timezone   string `yaml:"timezone"`
	StorageKey string `yaml:"storage_key"`

	// PixelsPerHour is the height of one hour on the time grid.
	PixelsPerHour float64 `yaml:"pixels_per_hour"`
	// SnapMinutes is the drag snapping interval and must divide 60.
	SnapMinutes int `yaml:"snap_minutes"`
	// WeekStart is "sunday" or "monday".
	WeekStart    string `yaml:"week_start"`
	DefaultTitle string `yaml:"default_title"`
	DefaultColor string `yaml:"default_color"`

	// RateLimit is the number of import and snapshot requests allowed per
	// client per minute. Zero disables the limit.
	RateLimit int      `yaml:"rate_limit"`
	Origins   []string `yaml:"origins"`

	Backup BackupConfig `yaml:"backup"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Listen:        ":8080",
		DBPath:        "timegrid.db",
		LogLevel:      "info",
		LogFormat:     "text",
		Timezone:      "Local",
		StorageKey:    "timegrid-calendar-storage",
		PixelsPerHour: 60,
		SnapMinutes:   15,
		WeekStart:     "sunday",
		DefaultTitle:  "New Event",
		DefaultColor:  "#3b82f6",
		RateLimit:     10,
		Backup: BackupConfig{
			Region:        "us-east-1",
			Prefix:        "snapshots/",
			Schedule:      "0 3 * * *",
			RetentionDays: 30,
		},
	}
}

// envOverrides mirrors the settings that may come from the environment.
// Empty values leave the file setting alone.
type envOverrides struct {
	Listen        string  `env:"TIMEGRID_LISTEN"`
	DBPath        string  `env:"TIMEGRID_DB_PATH"`
	LogLevel      string  `env:"TIMEGRID_LOG_LEVEL"`
	LogFormat     string  `env:"TIMEGRID_LOG_FORMAT"`
	Timezone      string  `env:"TIMEGRID_TIMEZONE"`
	StorageKey    string  `env:"TIMEGRID_STORAGE_KEY"`
	PixelsPerHour float64 `env:"TIMEGRID_PIXELS_PER_HOUR"`
	SnapMinutes   int     `env:"TIMEGRID_SNAP_MINUTES"`
	WeekStart     string  `env:"TIMEGRID_WEEK_START"`
	DefaultTitle  string  `env:"TIMEGRID_DEFAULT_TITLE"`
	DefaultColor  string  `env:"TIMEGRID_DEFAULT_COLOR"`
	RateLimit     int     `env:"TIMEGRID_RATE_LIMIT"`

	BackupEndpoint      string `env:"TIMEGRID_BACKUP_ENDPOINT"`
	BackupBucket        string `env:"TIMEGRID_BACKUP_BUCKET"`
	BackupRegion        string `env:"TIMEGRID_BACKUP_REGION"`
	BackupAccessKey     string `env:"TIMEGRID_BACKUP_ACCESS_KEY"`
	BackupSecretKey     string `env:"TIMEGRID_BACKUP_SECRET_KEY"`
	BackupPrefix        string `env:"TIMEGRID_BACKUP_PREFIX"`
	BackupSchedule      string `env:"TIMEGRID_BACKUP_SCHEDULE"`
	BackupPassphrase    string `env:"TIMEGRID_BACKUP_PASSPHRASE"`
	BackupRetentionDays int    `env:"TIMEGRID_BACKUP_RETENTION_DAYS"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (c *Config) applyEnv() error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	setString(&c.Listen, e.Listen)
	setString(&c.DBPath, e.DBPath)
	setString(&c.LogLevel, e.LogLevel)
	setString(&c.LogFormat, e.LogFormat)
	setString(&c.Timezone, e.Timezone)
	setString(&c.StorageKey, e.StorageKey)
	if e.PixelsPerHour != 0 {
		c.PixelsPerHour = e.PixelsPerHour
	}
	setInt(&c.SnapMinutes, e.SnapMinutes)
	setString(&c.WeekStart, e.WeekStart)
	setString(&c.DefaultTitle, e.DefaultTitle)
	setString(&c.DefaultColor, e.DefaultColor)
	setInt(&c.RateLimit, e.RateLimit)

	setString(&c.Backup.Endpoint, e.BackupEndpoint)
	setString(&c.Backup.Bucket, e.BackupBucket)
	setString(&c.Backup.Region, e.BackupRegion)
	setString(&c.Backup.AccessKey, e.BackupAccessKey)
	setString(&c.Backup.SecretKey, e.BackupSecretKey)
	setString(&c.Backup.Prefix, e.BackupPrefix)
	setString(&c.Backup.Schedule, e.BackupSchedule)
	setString(&c.Backup.Passphrase, e.BackupPassphrase)
	setInt(&c.Backup.RetentionDays, e.BackupRetentionDays)
	return nil
}

// Load reads the YAML file at path on top of the defaults, applies
// environment overrides, then normalizes and validates the result. A
// missing file, or an empty path, means defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize fills zero values with defaults and reports every invalid
// setting in one error.
func (c *Config) Normalize() error {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.StorageKey == "" {
		c.StorageKey = d.StorageKey
	}
	if c.WeekStart == "" {
		c.WeekStart = d.WeekStart
	}
	if c.DefaultTitle == "" {
		c.DefaultTitle = d.DefaultTitle
	}
	if c.DefaultColor == "" {
		c.DefaultColor = d.DefaultColor
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = d.Backup.RetentionDays
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))

	var errs []error
	if c.PixelsPerHour <= 0 {
		errs = append(errs, fmt.Errorf("pixels_per_hour must be positive, got %v", c.PixelsPerHour))
	}
	if c.SnapMinutes <= 0 || 60%c.SnapMinutes != 0 {
		errs = append(errs, fmt.Errorf("snap_minutes must divide 60, got %d", c.SnapMinutes))
	}
	if c.WeekStart != "sunday" && c.WeekStart != "monday" {
		errs = append(errs, fmt.Errorf("week_start must be sunday or monday, got %q", c.WeekStart))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit))
	}
	if c.Backup.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("backup.retention_days must not be negative, got %d", c.Backup.RetentionDays))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// FirstWeekday is the weekday grids start on.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}
