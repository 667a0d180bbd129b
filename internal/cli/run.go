package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ux3d/ANARI-SDK/internal/harness"
)

// RunResult is the JSON payload of the scene-driven commands.
type RunResult struct {
	RunID          string   `json:"run_id"`
	Command        string   `json:"command"`
	Instances      int      `json:"instances"`
	Passed         int      `json:"passed"`
	Failed         int      `json:"failed"`
	Unchecked      int      `json:"unchecked"`
	BoundsFailures int      `json:"bounds_failures"`
	Warnings       []string `json:"warnings,omitempty"`
	Failures       []string `json:"failures,omitempty"`
	Report         string   `json:"report,omitempty"`
	Results        any      `json:"results,omitempty"`
}

// operation is one of the harness entry points producing a Run.
type operation func(h *harness.Harness, ctx context.Context) (*harness.Run, error)

// NewRenderScenesCommand creates the render_scenes command.
func NewRenderScenesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newRunOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "render_scenes [library]",
		Short: "Render test scenes to PNG files",
		Long: `Render every selected scene permutation with the backend and write one
PNG per channel to <output>/<category>/<instance>_<channel>.png.

Examples:
  cts render_scenes soft
  cts render_scenes soft --test_scenes geometry --output out
  cts render_scenes soft -r pathtracer --workers 4`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, args, harness.CommandRenderScenes, (*harness.Harness).RenderScenes)
		},
	}

	addDeviceFlags(cmd, opts)
	addSceneFlags(cmd, opts)
	addRenderFlags(cmd, opts)
	addOutputFlags(cmd, opts)
	addRecordFlags(cmd, opts)

	return cmd
}

// NewCompareImagesCommand creates the compare_images command.
func NewCompareImagesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newRunOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "compare_images [library]",
		Short: "Compare rendered images against references",
		Long: `Score previously rendered candidates against each scene's reference
images without rendering. Evaluation images and report.json are written
under the output directory.

Exit codes:
  0 - All thresholds met
  1 - One or more metrics failed
  2 - Command error

Examples:
  cts compare_images soft --candidates out
  cts compare_images soft --comparison_methods ssim,psnr --thresholds 0.95,30`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, args, harness.CommandCompareImages, (*harness.Harness).CompareImages)
		},
	}

	addDeviceFlags(cmd, opts)
	addSceneFlags(cmd, opts)
	addOutputFlags(cmd, opts)
	addEvaluationFlags(cmd, opts)
	addRecordFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Candidates, "candidates", "", "directory holding rendered candidates (default --output)")

	return cmd
}

// NewCheckObjectPropertiesCommand creates the check_object_properties command.
func NewCheckObjectPropertiesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newRunOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "check_object_properties [library]",
		Short: "Check computed bounds against reference metaData",
		Long: `Commit every selected scene permutation and compare the world, instance
and group bounds the backend reports with the scene's metaData.

Exit codes:
  0 - All bounds correct
  1 - One or more bounds mismatched or missing
  2 - Command error

Examples:
  cts check_object_properties soft
  cts check_object_properties soft --test_scenes geometry/triangles --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, args, harness.CommandCheckObjectProperties, (*harness.Harness).CheckObjectProperties)
		},
	}

	addDeviceFlags(cmd, opts)
	addSceneFlags(cmd, opts)
	addRecordFlags(cmd, opts)

	return cmd
}

// NewCreateReportCommand creates the create_report command.
func NewCreateReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newRunOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "create_report [library]",
		Short: "Render, evaluate and check every scene",
		Long: `Render every selected scene permutation, score it against its
references, check its bounds and record the frame duration. The merged
results are written to <output>/report.json and summarized.

Exit codes:
  0 - All checks passed
  1 - One or more checks failed
  2 - Command error

Examples:
  cts create_report soft
  cts create_report soft --comparison_methods ssim,psnr --thresholds 0.95,30
  cts create_report soft --db runs.db --metrics cts.prom
  cts create_report --config cts.yaml`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, opts, args, harness.CommandCreateReport, (*harness.Harness).CreateReport)
		},
	}

	addDeviceFlags(cmd, opts)
	addSceneFlags(cmd, opts)
	addRenderFlags(cmd, opts)
	addOutputFlags(cmd, opts)
	addEvaluationFlags(cmd, opts)
	addRecordFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Report, "report", opts.Report, "report renderer (console|json|none)")

	return cmd
}

func runOperation(cmd *cobra.Command, opts *RunOptions, args []string, command string, op operation) error {
	inv, err := opts.setup(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	run, err := op(inv.harness, ctx)
	if err != nil {
		return inv.fail(command, err)
	}

	if err := outputRun(cmd, inv.out, run); err != nil {
		return err
	}
	if run.Failed() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d failed, %d property check failures, %d instance failures",
			command, run.Summary.Failed, run.Summary.BoundsFailures, len(run.Failures)))
	}
	return nil
}

func outputRun(cmd *cobra.Command, out *OutputFormatter, run *harness.Run) error {
	if out.IsJSON() {
		return out.SuccessRun(run.ID, RunResult{
			RunID:          run.ID,
			Command:        run.Command,
			Instances:      run.Instances,
			Passed:         run.Summary.Passed,
			Failed:         run.Summary.Failed,
			Unchecked:      run.Summary.Unchecked,
			BoundsFailures: run.Summary.BoundsFailures,
			Warnings:       run.Warnings,
			Failures:       run.Failures,
			Report:         run.ReportPath,
			Results:        run.Report,
		})
	}

	w := cmd.OutOrStdout()
	for _, msg := range run.Warnings {
		fmt.Fprintf(w, "! %s\n", msg)
	}
	for _, msg := range run.Failures {
		fmt.Fprintf(w, "✗ %s\n", msg)
	}
	if run.Command == harness.CommandCheckObjectProperties {
		for _, c := range run.Summary.Checks {
			mark := "✓"
			if !c.OK() {
				mark = "✗"
			}
			fmt.Fprintf(w, "%s %s/%s: %s\n", mark, c.Test, c.Instance, c.Text)
		}
	}
	if run.ReportPath != "" {
		fmt.Fprintf(w, "Report written to %s\n", run.ReportPath)
	}
	fmt.Fprintf(w, "Run %s: %d instances\n", run.ID, run.Instances)
	return nil
}
