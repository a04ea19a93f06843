package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/sirupsen/logrus"
)

// AppName names the config and runtime directories.
const AppName = "rp"

// Settings holds all configuration options.
type Settings struct {
	// Reconciliation
	Overwrite            string   `toml:"overwrite"` // always, never
	Mode                 string   `toml:"mode"`      // copy, move, or empty for report only
	NormalizeUnderscores bool     `toml:"normalize_underscores"`
	Ignore               []string `toml:"ignore"`
	MinDate              string   `toml:"min_date"`
	MaxDate              string   `toml:"max_date"`

	// Tags and file naming
	Album          string `toml:"album"`
	Genre          string `toml:"genre"`
	TrackExtension string `toml:"track_extension"`

	// Output
	LogLevel           string  `toml:"log_level"`  // debug, info, warn, error
	LogFormat          string  `toml:"log_format"` // text, json
	Progress           bool    `toml:"progress"`
	PlaylistFormat     string  `toml:"playlist_format"` // m3u, pls, wpl
	M3UExtended        bool    `toml:"m3u_extended"`
	NearMatchThreshold float32 `toml:"near_match_threshold"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		NormalizeUnderscores: true,

		TrackExtension: ".mp3",

		LogLevel:           "warn",
		LogFormat:          "text",
		Progress:           true,
		PlaylistFormat:     "m3u",
		M3UExtended:        true,
		NearMatchThreshold: 0.92,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/rp/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// Load reads settings from a TOML file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if _, err := toml.DecodeFile(path, settings); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a TOML file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return file.Close()
}

// Validate checks every value that can be checked without touching the
// filesystem. Failures are *model.ArgumentError named after the flag that
// overrides the setting.
func (s *Settings) Validate() error {
	if _, err := model.ParseOverwritePolicy(s.Overwrite); err != nil {
		return &model.ArgumentError{Flag: "overwrite", Value: s.Overwrite, Err: err}
	}
	if _, err := model.ParseTransferMode(s.Mode); err != nil {
		return &model.ArgumentError{Flag: "mode", Value: s.Mode, Err: err}
	}

	for _, d := range []struct{ flag, value string }{
		{"min-date", s.MinDate},
		{"max-date", s.MaxDate},
	} {
		if d.value != "" && !model.ValidDate(d.value) {
			return &model.ArgumentError{Flag: d.flag, Value: d.value, Err: fmt.Errorf("expected %s", model.DateLayout)}
		}
	}
	if s.MinDate != "" && s.MaxDate != "" && s.MinDate > s.MaxDate {
		return &model.ArgumentError{Flag: "min-date", Value: s.MinDate, Err: fmt.Errorf("after --max-date %s", s.MaxDate)}
	}

	if s.TrackExtension != "" && !strings.HasPrefix(s.TrackExtension, ".") {
		return &model.ArgumentError{Flag: "track-extension", Value: s.TrackExtension, Err: errors.New("must start with a dot")}
	}

	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		return &model.ArgumentError{Flag: "log-level", Value: s.LogLevel, Err: err}
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return &model.ArgumentError{Flag: "log-format", Value: s.LogFormat, Err: errors.New("must be text or json")}
	}

	switch s.PlaylistFormat {
	case "m3u", "pls", "wpl":
	default:
		return &model.ArgumentError{Flag: "playlist-format", Value: s.PlaylistFormat, Err: errors.New("must be m3u, pls or wpl")}
	}

	if s.NearMatchThreshold <= 0 || s.NearMatchThreshold > 1 {
		return &model.ArgumentError{
			Flag:  "near-match-threshold",
			Value: fmt.Sprintf("%g", s.NearMatchThreshold),
			Err:   errors.New("must be in (0, 1]"),
		}
	}

	return nil
}

// OverwritePolicy returns the parsed overwrite policy. Call Validate first.
func (s *Settings) OverwritePolicy() model.OverwritePolicy {
	p, _ := model.ParseOverwritePolicy(s.Overwrite)
	return p
}

// TransferMode returns the parsed transfer mode. Call Validate first.
func (s *Settings) TransferMode() model.TransferMode {
	m, _ := model.ParseTransferMode(s.Mode)
	return m
}
