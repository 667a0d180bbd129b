package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ux3d/ANARI-SDK/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Metric   string // test/instance/channel/metric
}

// HistoryRun is the JSON form of one recorded run.
type HistoryRun struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Command   string    `json:"command"`
	Library   string    `json:"library"`
	Device    string    `json:"device,omitempty"`
	Renderer  string    `json:"renderer"`
	Instances int       `json:"instances"`
	Passed    int       `json:"passed"`
	Failed    int       `json:"failed"`
}

// HistoryScore is the JSON form of one metric score.
type HistoryScore struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Score     float64   `json:"score"`
	Threshold *float64  `json:"threshold,omitempty"`
	Passed    *bool     `json:"passed,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `List the runs recorded with --db, or the scores of one metric across
runs when --metric is given as test/instance/channel/metric.

Examples:
  cts history --db runs.db
  cts history --db runs.db --metric geometry_triangles/triangles_0/color/ssim`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Metric, "metric", "", "test/instance/channel/metric to trace")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		if out.IsJSON() {
			_ = out.Error(CodeHistory, "database not found", map[string]string{"path": opts.Database})
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	var path []string
	if opts.Metric != "" {
		path = strings.Split(opts.Metric, "/")
		if len(path) != 4 {
			if out.IsJSON() {
				_ = out.Error(CodeConfig, "invalid --metric", map[string]string{"metric": opts.Metric})
			}
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --metric %q: want test/instance/channel/metric", opts.Metric))
		}
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if path == nil {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRuns(cmd, out, runs)
	}

	points, err := st.ResultHistory(ctx, path[0], path[1], path[2], path[3])
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	return outputScores(cmd, out, points)
}

func outputRuns(cmd *cobra.Command, out *OutputFormatter, runs []store.Run) error {
	if out.IsJSON() {
		data := make([]HistoryRun, len(runs))
		for i, r := range runs {
			data[i] = HistoryRun{
				ID: r.ID, StartedAt: r.StartedAt, Command: r.Command, Library: r.Library,
				Device: r.Device, Renderer: r.Renderer, Instances: r.Instances,
				Passed: r.Passed, Failed: r.Failed,
			}
		}
		return out.Success(data)
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID, r.StartedAt.Format(time.RFC3339), r.Command, r.Library, r.Renderer,
			fmt.Sprint(r.Instances), fmt.Sprint(r.Passed), fmt.Sprint(r.Failed),
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), historyTable(
		[]string{"Run", "Started", "Command", "Library", "Renderer", "Instances", "Passed", "Failed"}, rows))
	return nil
}

func outputScores(cmd *cobra.Command, out *OutputFormatter, points []store.HistoryPoint) error {
	if out.IsJSON() {
		data := make([]HistoryScore, len(points))
		for i, p := range points {
			data[i] = HistoryScore(p)
		}
		return out.Success(data)
	}

	if len(points) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scores recorded.")
		return nil
	}
	rows := make([][]string, len(points))
	for i, p := range points {
		threshold, result := "-", "-"
		if p.Threshold != nil {
			threshold = fmt.Sprintf("%.4g", *p.Threshold)
		}
		if p.Passed != nil {
			result = "failed"
			if *p.Passed {
				result = "passed"
			}
		}
		rows[i] = []string{p.RunID, p.StartedAt.Format(time.RFC3339), fmt.Sprintf("%.4g", p.Score), threshold, result}
	}
	fmt.Fprintln(cmd.OutOrStdout(), historyTable([]string{"Run", "Started", "Score", "Threshold", "Result"}, rows))
	return nil
}

func historyTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeader
			}
			return tableCell
		}).
		String()
}
