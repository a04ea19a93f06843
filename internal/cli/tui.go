package cli

import (
	"errors"

	"github.com/handiism/track-reconciler/internal/library"
	"github.com/handiism/track-reconciler/internal/model"
	"github.com/handiism/track-reconciler/internal/tui"
	"github.com/spf13/cobra"
)

// NewTUICommand builds the rp-tui command.
func NewTUICommand(opts ...library.Option) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:           "rp-tui SOURCE TARGET",
		Short:         "Review and transfer new tracks interactively",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := f.loadSettings(cmd)
			if err != nil {
				return err
			}
			if settings.OverwritePolicy() == model.OverwriteUnset {
				return &model.ArgumentError{Flag: "overwrite", Err: errors.New("required: always or never")}
			}
			return tui.Run(settings, args[0], args[1], opts...)
		},
	}

	f.register(cmd)
	return cmd
}
