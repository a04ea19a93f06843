// Package cli implements the rp and rp-tui command lines.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	ioutils "github.com/handiism/track-reconciler/internal/io"
	"github.com/handiism/track-reconciler/internal/library"
	"github.com/handiism/track-reconciler/internal/logging"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/reconcile"
	"github.com/handiism/track-reconciler/internal/report"
	"github.com/handiism/track-reconciler/internal/transfer"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	runFlags

	listTracks  bool
	listDates   bool
	logFormat   string
	noProgress  bool
	reportPath  string
	playlist    string
	status      bool
	nearMatches bool
}

// NewRootCommand builds the rp command. opts are passed to the
// library.Manager of each run.
func NewRootCommand(opts ...library.Option) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "rp SOURCE [TARGET]",
		Short: "Reconcile a drop folder of tracks against a music library",
		Long: `rp groups the tracks in SOURCE by their "Artist - Title" tag, compares
them with the tracks already in TARGET and reports what is new.

With --copy or --move the selected tracks are transferred into TARGET,
named "Artist - Title", with the --album and --genre tags applied.
--overwrite never keeps the earliest duplicate and skips tracks TARGET
already has; --overwrite always keeps the latest and transfers everything.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, args, opts)
		},
	}

	f.register(cmd)

	fs := cmd.Flags()
	fs.BoolVar(&f.listTracks, "list-tracks", false, "List the raw title of every source track and exit")
	fs.BoolVar(&f.listDates, "list-dates", false, "List source track counts per day and exit")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format: text or json")
	fs.BoolVar(&f.noProgress, "no-progress", false, "Do not draw a progress bar")
	fs.StringVar(&f.reportPath, "report", "", "Write a YAML run report to this file")
	fs.StringVar(&f.playlist, "playlist", "", "Write a playlist (.m3u, .pls, .wpl) of transferred tracks")
	fs.BoolVar(&f.status, "status", false, "Print the status of every source track")
	fs.BoolVar(&f.nearMatches, "near-matches", false, "Print new tracks that closely resemble library tracks")

	cmd.MarkFlagsMutuallyExclusive("list-tracks", "list-dates")
	for _, list := range []string{"list-tracks", "list-dates"} {
		cmd.MarkFlagsMutuallyExclusive(list, "copy")
		cmd.MarkFlagsMutuallyExclusive(list, "move")
	}

	return cmd
}

func run(cmd *cobra.Command, f *rootFlags, args []string, opts []library.Option) error {
	settings, err := f.loadSettings(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-format") {
		settings.LogFormat = f.logFormat
		if err := settings.Validate(); err != nil {
			return err
		}
	}
	if f.noProgress {
		settings.Progress = false
	}

	listing := f.listTracks || f.listDates
	if !listing {
		if len(args) != 2 {
			return &model.ArgumentError{Flag: "target", Err: errors.New("TARGET is required unless listing")}
		}
		if settings.OverwritePolicy() == model.OverwriteUnset {
			return &model.ArgumentError{Flag: "overwrite", Err: errors.New("required: always or never")}
		}
	}

	source, target := args[0], ""
	if len(args) == 2 {
		target = args[1]
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	logger, err := logging.New(settings.LogLevel, settings.LogFormat, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !listing && settings.TransferMode() != model.ModeNone {
		lock, err := ioutils.LockTarget(target)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	var onEvent func(library.ProgressEvent)
	if !listing {
		onEvent = eventPrinter(stdout, f.verbose)
	}
	bar := report.NewProgressPrinter(stdout, settings.Progress)
	runOpts := append([]library.Option{library.WithTransferProgress(bar.Update)}, opts...)
	manager := library.NewManager(settings, source, target, logger, onEvent, runOpts...)

	if listing {
		if err := manager.ScanSource(ctx); err != nil {
			return err
		}
		if f.listTracks {
			report.Tracks(stdout, manager.Source().Entries, settings.MinDate, settings.MaxDate)
		} else {
			report.Dates(stdout, manager.Source().Entries)
		}
		return nil
	}

	if err := manager.Initialize(ctx); err != nil {
		return err
	}

	res := manager.Result()
	fmt.Fprintln(stdout)
	report.Summary(stdout, res.Summary, manager.Source().Ignored)
	if f.status {
		report.Statuses(stdout, res)
	}
	var near []reconcile.NearMatch
	if f.nearMatches || f.reportPath != "" {
		near = manager.NearMatches()
	}
	if f.nearMatches {
		report.NearMatches(stdout, near)
	}

	var rep *transfer.Report
	if settings.TransferMode() != model.ModeNone {
		if rep, err = manager.StartTransfers(ctx); err != nil {
			return err
		}
		if f.playlist != "" {
			if err := manager.WritePlaylist(f.playlist); err != nil {
				logger.WithError(err).Warn("Could not write playlist")
			}
		}
	}
	if f.reportPath != "" {
		runReport := report.NewRun(source, target, settings.OverwritePolicy(), settings.TransferMode(),
			res, manager.Source().Ignored, rep, near)
		if err := runReport.WriteFile(f.reportPath); err != nil {
			logger.WithError(err).Warn("Could not write run report")
		}
	}

	report.Errors(stdout, rep)
	return nil
}

// eventPrinter prints pipeline events that are not already covered by the
// logger or the trailing error section.
func eventPrinter(w io.Writer, verbose bool) func(library.ProgressEvent) {
	return func(event library.ProgressEvent) {
		switch event.Level {
		case library.LevelInfo:
			fmt.Fprintln(w, "› "+event.Message)
		case library.LevelSuccess:
			fmt.Fprintln(w, "✓ "+event.Message)
		case library.LevelVerbose:
			if verbose {
				fmt.Fprintln(w, "  "+event.Message)
			}
		}
	}
}

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

// Execute runs cmd and exits the process with its status.
func Execute(cmd *cobra.Command) {
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}
