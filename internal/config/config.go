// Package config loads server and CLI settings from a YAML or TOML file,
// then applies HALFFRAME_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"halfframe/internal/frame"
)

type ImportConfig struct {
	GroupSize int `yaml:"group_size" toml:"group_size"`
	HoldMS    int `yaml:"hold_ms" toml:"hold_ms"`
}

type ExportConfig struct {
	Format  string `yaml:"format" toml:"format"`
	Quality int    `yaml:"quality" toml:"quality"`
	PauseMS int    `yaml:"pause_ms" toml:"pause_ms"`
	HoldMS  int    `yaml:"hold_ms" toml:"hold_ms"`
}

type PreviewConfig struct {
	MaxEdge int `yaml:"max_edge" toml:"max_edge"`
	Quality int `yaml:"quality" toml:"quality"`
}

type OriginalConfig struct {
	Format  string `yaml:"format" toml:"format"`
	Quality int    `yaml:"quality" toml:"quality"`
}

type Config struct {
	Addr          string         `yaml:"addr" toml:"addr"`
	MaxUploadMB   int            `yaml:"max_upload_mb" toml:"max_upload_mb"`
	SessionTTLMin int            `yaml:"session_ttl_min" toml:"session_ttl_min"`
	LogLevel      string         `yaml:"log_level" toml:"log_level"`
	Import        ImportConfig   `yaml:"import" toml:"import"`
	Export        ExportConfig   `yaml:"export" toml:"export"`
	Preview       PreviewConfig  `yaml:"preview" toml:"preview"`
	Original      OriginalConfig `yaml:"original" toml:"original"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:          ":8080",
		MaxUploadMB:   512,
		SessionTTLMin: 60,
		LogLevel:      "info",
		Import:        ImportConfig{GroupSize: 3, HoldMS: 1500},
		Export:        ExportConfig{Format: "jpeg", Quality: frame.DefaultExportQuality, HoldMS: 1500},
		Preview:       PreviewConfig{MaxEdge: frame.DefaultPreviewMaxEdge, Quality: frame.DefaultPreviewQuality},
		Original:      OriginalConfig{Format: "png", Quality: frame.DefaultOriginalQuality},
	}
}

// Load reads path over the defaults (TOML when it ends in .toml, YAML
// otherwise), applies environment overrides and validates the result. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			err = toml.Unmarshal(data, cfg)
		} else {
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from HALFFRAME_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}

	str("HALFFRAME_ADDR", &c.Addr)
	str("HALFFRAME_LOG_LEVEL", &c.LogLevel)
	num("HALFFRAME_MAX_UPLOAD_MB", &c.MaxUploadMB)
	num("HALFFRAME_SESSION_TTL_MIN", &c.SessionTTLMin)
	num("HALFFRAME_IMPORT_GROUP_SIZE", &c.Import.GroupSize)
	num("HALFFRAME_IMPORT_HOLD_MS", &c.Import.HoldMS)
	str("HALFFRAME_EXPORT_FORMAT", &c.Export.Format)
	num("HALFFRAME_EXPORT_QUALITY", &c.Export.Quality)
	num("HALFFRAME_EXPORT_PAUSE_MS", &c.Export.PauseMS)
	num("HALFFRAME_EXPORT_HOLD_MS", &c.Export.HoldMS)
	num("HALFFRAME_PREVIEW_MAX_EDGE", &c.Preview.MaxEdge)
	num("HALFFRAME_PREVIEW_QUALITY", &c.Preview.Quality)
	str("HALFFRAME_ORIGINAL_FORMAT", &c.Original.Format)
	num("HALFFRAME_ORIGINAL_QUALITY", &c.Original.Quality)
	return errors.Join(errs...)
}

// Validate rejects unknown formats and log levels and clamps numeric
// settings into their usable ranges.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if _, err := parseFormat(c.Export.Format); err != nil {
		return fmt.Errorf("export.format: %w", err)
	}
	if _, err := parseFormat(c.Original.Format); err != nil {
		return fmt.Errorf("original.format: %w", err)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	c.MaxUploadMB = clamp(c.MaxUploadMB, 1, 4096)
	c.SessionTTLMin = clamp(c.SessionTTLMin, 1, 7*24*60)
	c.Import.GroupSize = clamp(c.Import.GroupSize, 1, 32)
	c.Import.HoldMS = clamp(c.Import.HoldMS, 0, 60_000)
	c.Export.Quality = clamp(c.Export.Quality, 1, 100)
	c.Export.PauseMS = clamp(c.Export.PauseMS, 0, 10_000)
	c.Export.HoldMS = clamp(c.Export.HoldMS, 0, 60_000)
	c.Preview.MaxEdge = clamp(c.Preview.MaxEdge, 64, 8192)
	c.Preview.Quality = clamp(c.Preview.Quality, 1, 100)
	c.Original.Quality = clamp(c.Original.Quality, 1, 100)
	return nil
}

func (c *Config) Level() slog.Level {
	var lvl slog.Level
	_ = lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Splitter builds the splitter for imports.
func (c *Config) Splitter() *frame.Splitter {
	f, _ := parseFormat(c.Original.Format)
	return &frame.Splitter{
		PreviewMaxEdge:  c.Preview.MaxEdge,
		PreviewQuality:  c.Preview.Quality,
		OriginalJPEG:    f == imaging.JPEG,
		OriginalQuality: c.Original.Quality,
	}
}

// Encoder builds the encoder for exports.
func (c *Config) Encoder() *frame.Encoder {
	f, _ := parseFormat(c.Export.Format)
	return &frame.Encoder{Format: f, Quality: c.Export.Quality}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) ImportHold() time.Duration  { return ms(c.Import.HoldMS) }
func (c *Config) ExportPause() time.Duration { return ms(c.Export.PauseMS) }
func (c *Config) ExportHold() time.Duration  { return ms(c.Export.HoldMS) }

// parseFormat accepts the two output formats halves can be stored in.
func parseFormat(s string) (imaging.Format, error) {
	f, err := imaging.FormatFromExtension(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("unsupported image format %q", s)
	}
	if f != imaging.JPEG && f != imaging.PNG {
		return 0, fmt.Errorf("unsupported image format %q (want jpeg or png)", s)
	}
	return f, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
