package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ux3d/ANARI-SDK/internal/applog"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	LogFile    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the conformance test CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cts",
		Short: "ANARI conformance test suite",
		Long: `Render test scenes with an ANARI backend and compare the results
against reference images and reference bounds.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML run configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", applog.DefaultPath, "append-only log file")

	cmd.AddCommand(NewRenderScenesCommand(opts))
	cmd.AddCommand(NewCompareImagesCommand(opts))
	cmd.AddCommand(NewQueryFeaturesCommand(opts))
	cmd.AddCommand(NewQueryMetadataCommand(opts))
	cmd.AddCommand(NewCheckObjectPropertiesCommand(opts))
	cmd.AddCommand(NewCreateReportCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
