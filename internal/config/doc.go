// Package config provides configuration management for rp.
//
// This package handles:
//   - Loading and saving settings from TOML files
//   - Default configuration values
//   - Validation of dates, policies and output options
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Report only (no mode), .mp3 target names
//	// Underscores in tag titles read as spaces
//	// Text logs, warnings and errors only
//
// # Loading from File
//
//	settings, err := config.Load(config.DefaultPath())
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// The default path is $XDG_CONFIG_HOME/rp/config.toml:
//
//	overwrite = "never"
//	mode = "copy"
//	genre = "House"
//	ignore = ["Artist - Intro"]
//
// Command-line flags override file values.
package config
