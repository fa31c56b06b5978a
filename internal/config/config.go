package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"hackweb/internal/model"
)

// ICSConfig describes a calendar feed whose events are merged into the
// schedule. URL may be an http(s) URL or a local file path.
type ICSConfig struct {
	URL  string `yaml:"url" json:"url"`
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds credentials for organizer-only endpoints
// (announcement writes).
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

// ScheduleConfig drives the event timeline.
type ScheduleConfig struct {
	// FirstLabel is the first time label shown on the timeline. Empty means
	// the hour of the earliest event.
	FirstLabel time.Time `yaml:"first_label,omitempty" json:"first_label,omitempty"`

	PixelsPerHour float64 `yaml:"pixels_per_hour" json:"pixels_per_hour"`
	ColumnWidth   float64 `yaml:"column_width" json:"column_width"`
	ColumnGap     float64 `yaml:"column_gap" json:"column_gap"`

	// RespectColumnHints sorts events by their column hint before
	// arranging them.
	RespectColumnHints bool `yaml:"respect_column_hints" json:"respect_column_hints"`

	// MaxDisplacements caps evictions per event; 0 uses the arranger default.
	MaxDisplacements int `yaml:"max_displacements" json:"max_displacements"`

	// Events are defined inline; ICS feeds are merged in after them.
	Events []model.Event `yaml:"events" json:"events"`
	ICS    []ICSConfig   `yaml:"ics" json:"ics"`
}

// GameConfig tunes the 2048 game.
type GameConfig struct {
	Size       int     `yaml:"size" json:"size"`
	FourChance float64 `yaml:"four_chance" json:"four_chance"`
}

// LeaderboardConfig tunes score submission.
type LeaderboardConfig struct {
	Limit           int `yaml:"limit" json:"limit"`
	SubmitPerMinute int `yaml:"submit_per_minute" json:"submit_per_minute"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the event takes place in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron spec for re-reading ICS feeds.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Database is the SQLite file holding announcements and scores.
	Database string `yaml:"database" json:"database"`

	// DataDir holds the ICS cache and the rendered preview image.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Log         LogConfig         `yaml:"log" json:"log"`
	Schedule    ScheduleConfig    `yaml:"schedule" json:"schedule"`
	Game        GameConfig        `yaml:"game" json:"game"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard" json:"leaderboard"`

	// BasicAuth, if set, protects announcement writes.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen          = "127.0.0.1:8080"
	defaultTimezone        = "UTC"
	defaultRefreshCron     = "*/10 * * * *"
	defaultDatabase        = "/var/lib/hackweb/hackweb.db"
	defaultDataDir         = "/var/lib/hackweb"
	defaultPixelsPerHour   = 120
	defaultColumnWidth     = 220
	defaultGameSize        = 4
	defaultFourChance      = 0.1
	defaultLeaderboardSize = 10
	defaultSubmitPerMinute = 6
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := preset()
	c.Normalize()
	return c
}

// preset holds defaults that zero values cannot express, since 0 is a
// valid four_chance.
func preset() *Config {
	return &Config{Game: GameConfig{FourChance: defaultFourChance}}
}

// Normalize fills in missing/zero values with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Schedule.PixelsPerHour <= 0 {
		c.Schedule.PixelsPerHour = defaultPixelsPerHour
	}
	if c.Schedule.ColumnWidth <= 0 {
		c.Schedule.ColumnWidth = defaultColumnWidth
	}
	if c.Schedule.ColumnGap < 0 {
		c.Schedule.ColumnGap = 0
	}
	if c.Schedule.MaxDisplacements < 0 {
		c.Schedule.MaxDisplacements = 0
	}
	if c.Schedule.Events == nil {
		c.Schedule.Events = []model.Event{}
	}
	if c.Schedule.ICS == nil {
		c.Schedule.ICS = []ICSConfig{}
	}

	if c.Game.Size < 2 {
		c.Game.Size = defaultGameSize
	}
	if c.Game.FourChance < 0 || c.Game.FourChance > 1 {
		c.Game.FourChance = defaultFourChance
	}

	if c.Leaderboard.Limit <= 0 {
		c.Leaderboard.Limit = defaultLeaderboardSize
	}
	if c.Leaderboard.SubmitPerMinute <= 0 {
		c.Leaderboard.SubmitPerMinute = defaultSubmitPerMinute
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directory created as needed) and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	return Parse(data)
}

// Parse unmarshals and normalizes YAML config bytes.
func Parse(data []byte) (*Config, error) {
	cfg := preset()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hackweb-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
