package cli

import (
	"github.com/handiism/track-reconciler/internal/config"
	"github.com/spf13/cobra"
)

// runFlags are the flags shared by rp and rp-tui.
type runFlags struct {
	configPath string
	copy       bool
	move       bool
	overwrite  string
	date       string
	minDate    string
	maxDate    string
	ignore     []string
	album      string
	genre      string
	verbose    bool
	saveConfig bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Configuration file path (default $XDG_CONFIG_HOME/rp/config.toml)")
	fs.BoolVar(&f.copy, "copy", false, "Copy selected tracks into the target")
	fs.BoolVar(&f.move, "move", false, "Move selected tracks into the target")
	fs.StringVarP(&f.overwrite, "overwrite", "o", "", "Overwrite policy: always or never")
	fs.StringVarP(&f.date, "date", "d", "", "Only consider source files modified on this day (sets --min-date and --max-date)")
	fs.StringVar(&f.minDate, "min-date", "", "Skip source files modified before this day (YYYY-MM-DD)")
	fs.StringVar(&f.maxDate, "max-date", "", "Skip source files modified after this day (YYYY-MM-DD)")
	fs.StringArrayVar(&f.ignore, "ignore", nil, "Exclude a track by its exact \"Artist - Title\" (repeatable)")
	fs.StringVar(&f.album, "album", "", "Album tag to write on transferred tracks")
	fs.StringVar(&f.genre, "genre", "", "Genre tag to write on transferred tracks")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Show debug output")
	fs.BoolVar(&f.saveConfig, "save-config", false, "Save the effective settings to the configuration file")

	cmd.MarkFlagsMutuallyExclusive("copy", "move")
	cmd.MarkFlagsMutuallyExclusive("date", "min-date")
	cmd.MarkFlagsMutuallyExclusive("date", "max-date")
}

// loadSettings reads the config file and applies every flag the user set.
// The result is validated and, with --save-config, written back to the
// configuration file.
func (f *runFlags) loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	path := f.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if f.copy {
		settings.Mode = "copy"
	}
	if f.move {
		settings.Mode = "move"
	}
	if fs.Changed("overwrite") {
		settings.Overwrite = f.overwrite
	}
	if fs.Changed("min-date") {
		settings.MinDate = f.minDate
	}
	if fs.Changed("max-date") {
		settings.MaxDate = f.maxDate
	}
	if fs.Changed("date") {
		settings.MinDate, settings.MaxDate = f.date, f.date
	}
	if fs.Changed("ignore") {
		settings.Ignore = f.ignore
	}
	if fs.Changed("album") {
		settings.Album = f.album
	}
	if fs.Changed("genre") {
		settings.Genre = f.genre
	}
	if f.verbose {
		settings.LogLevel = "debug"
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if f.saveConfig {
		if err := settings.Save(path); err != nil {
			return nil, err
		}
	}
	return settings, nil
}
