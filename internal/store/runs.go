package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ux3d/ANARI-SDK/internal/report"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one recorded invocation of a command.
type Run struct {
	ID        string
	StartedAt time.Time
	Command   string
	Library   string
	Device    string
	Renderer  string
	Instances int
	Passed    int
	Failed    int

	// Report is only populated by ReadRun.
	Report value.Object
}

// HistoryPoint is one score of a metric in one run.
type HistoryPoint struct {
	RunID     string
	StartedAt time.Time
	Score     float64
	Threshold *float64
	Passed    *bool
}

// WriteRun inserts a run together with its metric rows and property
// checks in one transaction. The report must hold no images.
func (s *Store) WriteRun(ctx context.Context, run Run, summary report.Summary) error {
	reportJSON, err := value.MarshalCanonical(run.Report)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, command, library, device, renderer, instances, passed, failed, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Command,
		run.Library,
		run.Device,
		run.Renderer,
		run.Instances,
		summary.Passed,
		summary.Failed,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, r := range summary.Rows {
		var passed any
		if r.Passed != nil {
			passed = *r.Passed
		}
		var threshold any
		if r.Threshold != nil {
			threshold = *r.Threshold
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results
			(run_id, test_name, instance_name, channel, metric, score, threshold, passed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, r.Test, r.Instance, r.Channel, r.Metric, r.Score, threshold, passed)
		if err != nil {
			return fmt.Errorf("write result %s/%s: %w", r.Test, r.Instance, err)
		}
	}

	for _, c := range summary.Checks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO property_checks (run_id, test_name, instance_name, outcome)
			VALUES (?, ?, ?, ?)
		`, run.ID, c.Test, c.Instance, c.Text)
		if err != nil {
			return fmt.Errorf("write property check %s/%s: %w", c.Test, c.Instance, err)
		}
	}

	return tx.Commit()
}

// ReadRun loads a run including its report.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, command, library, device, renderer, instances, passed, failed, report
		FROM runs WHERE id = ?
	`, id)

	var run Run
	var startedAt, reportJSON string
	err := row.Scan(&run.ID, &startedAt, &run.Command, &run.Library, &run.Device, &run.Renderer,
		&run.Instances, &run.Passed, &run.Failed, &reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	if run.Report, err = value.ParseObject([]byte(reportJSON)); err != nil {
		return Run{}, fmt.Errorf("read run report: %w", err)
	}
	return run, nil
}

// ListRuns returns every run without its report, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, command, library, device, renderer, instances, passed, failed
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		if err := rows.Scan(&run.ID, &startedAt, &run.Command, &run.Library, &run.Device, &run.Renderer,
			&run.Instances, &run.Passed, &run.Failed); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ResultHistory returns the scores of one metric across runs, oldest
// first.
func (s *Store) ResultHistory(ctx context.Context, test, instance, channel, metric string) ([]HistoryPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, runs.started_at, r.score, r.threshold, r.passed
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE r.test_name = ? AND r.instance_name = ? AND r.channel = ? AND r.metric = ?
		ORDER BY runs.started_at ASC, r.run_id COLLATE BINARY ASC
	`, test, instance, channel, metric)
	if err != nil {
		return nil, fmt.Errorf("result history: %w", err)
	}
	defer rows.Close()

	var out []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		var startedAt string
		var threshold sql.NullFloat64
		var passed sql.NullBool
		if err := rows.Scan(&p.RunID, &startedAt, &p.Score, &threshold, &passed); err != nil {
			return nil, fmt.Errorf("result history: %w", err)
		}
		if p.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("result history: %w", err)
		}
		if threshold.Valid {
			th := threshold.Float64
			p.Threshold = &th
		}
		if passed.Valid {
			b := passed.Bool
			p.Passed = &b
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
