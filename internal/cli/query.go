package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ux3d/ANARI-SDK/internal/backend"
	"github.com/ux3d/ANARI-SDK/internal/feature"
	"github.com/ux3d/ANARI-SDK/internal/harness"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

var (
	tableBorder   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
	tableHeader   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4")).Padding(0, 1)
	tableCell     = lipgloss.NewStyle().Padding(0, 1)
	availableCell = tableCell.Foreground(lipgloss.Color("#2CD7C7"))
	missingCell   = tableCell.Foreground(lipgloss.Color("#E74C3C"))
)

// ParameterResult is the JSON form of one generator parameter.
type ParameterResult struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

// NewQueryFeaturesCommand creates the query_features command.
func NewQueryFeaturesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newRunOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "query_features [library]",
		Short: "List the device's capability flags",
		Long: `Load the library and list every feature flag the device reports,
with whether it is available.

Examples:
  cts query_features soft
  cts query_features soft --device default --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryFeatures(cmd, opts, args)
		},
	}

	addDeviceFlags(cmd, opts)

	return cmd
}

// NewQueryMetadataCommand creates the query_metadata command.
func NewQueryMetadataCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newRunOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "query_metadata [library]",
		Short: "List the scene generator's parameters",
		Long: `Open a scene generator on the device and list the parameters it
understands with their types, defaults and descriptions.

Examples:
  cts query_metadata soft
  cts query_metadata soft --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryMetadata(cmd, opts, args)
		},
	}

	addDeviceFlags(cmd, opts)

	return cmd
}

func runQueryFeatures(cmd *cobra.Command, opts *RunOptions, args []string) error {
	inv, err := opts.setup(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	features, err := inv.harness.QueryFeatures(ctx)
	if err != nil {
		return inv.fail(harness.CommandQueryFeatures, err)
	}
	if inv.out.IsJSON() {
		if features == nil {
			features = feature.Set{}
		}
		return inv.out.Success(features)
	}
	fmt.Fprintln(cmd.OutOrStdout(), featureTable(features))
	return nil
}

func runQueryMetadata(cmd *cobra.Command, opts *RunOptions, args []string) error {
	inv, err := opts.setup(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	params, err := inv.harness.QueryMetadata(ctx)
	if err != nil {
		return inv.fail(harness.CommandQueryMetadata, err)
	}
	results := parameterResults(params)
	if inv.out.IsJSON() {
		return inv.out.Success(results)
	}
	fmt.Fprintln(cmd.OutOrStdout(), parameterTable(results))
	return nil
}

func featureTable(features feature.Set) string {
	rows := make([][]string, len(features))
	for i, f := range features {
		rows[i] = []string{f.Name, strconv.FormatBool(f.Available)}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorder).
		Headers("Feature", "Available").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeader
			case col == 1 && features[row].Available:
				return availableCell
			case col == 1:
				return missingCell
			}
			return tableCell
		}).
		String()
}

func parameterResults(params []backend.ParameterInfo) []ParameterResult {
	out := make([]ParameterResult, len(params))
	for i, p := range params {
		def := ""
		if p.Default != nil {
			def = value.Fragment(p.Default)
		}
		out[i] = ParameterResult{Name: p.Name, Type: p.Type, Default: def, Description: p.Description}
	}
	return out
}

func parameterTable(params []ParameterResult) string {
	rows := make([][]string, len(params))
	for i, p := range params {
		rows[i] = []string{p.Name, p.Type, p.Default, p.Description}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorder).
		Headers("Parameter", "Type", "Default", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeader
			}
			return tableCell
		}).
		String()
}
