package report

import (
	"github.com/ux3d/ANARI-SDK/internal/bounds"
	"github.com/ux3d/ANARI-SDK/internal/evaluate"
	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Row is one metric outcome in a report.
type Row struct {
	Test      string
	Instance  string
	Channel   string
	Metric    string
	Score     float64
	Threshold *float64
	Passed    *bool
}

// Check is one property-check outcome in a report.
type Check struct {
	Test     string
	Instance string
	Text     string
}

// OK reports whether the check found no mismatch.
func (c Check) OK() bool {
	return c.Text == bounds.AllCorrect
}

// Summary tallies a report.
type Summary struct {
	Rows   []Row
	Checks []Check

	Passed    int
	Failed    int
	Unchecked int

	BoundsFailures int
}

// HasFailures reports whether any metric or property check failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.BoundsFailures > 0
}

// Summarize walks a report in sorted key order.
func Summarize(report value.Object) Summary {
	var s Summary
	for _, test := range report.SortedKeys() {
		instances := report.Child(test)
		for _, inst := range instances.SortedKeys() {
			fields := instances.Child(inst)
			for _, key := range fields.SortedKeys() {
				if key == KeyPropertyCheck {
					text, _ := value.AsString(fields[key])
					c := Check{Test: test, Instance: inst, Text: text}
					s.Checks = append(s.Checks, c)
					if !c.OK() {
						s.BoundsFailures++
					}
					continue
				}
				metrics := fields.Child(key).Child(evaluate.KeyMetrics)
				for _, name := range metrics.SortedKeys() {
					s.addRow(test, inst, key, name, metrics.Child(name))
				}
			}
		}
	}
	return s
}

func (s *Summary) addRow(test, inst, channel, name string, m value.Object) {
	row := Row{Test: test, Instance: inst, Channel: channel, Metric: name}
	row.Score, _ = value.AsFloat(m[evaluate.KeyScore])
	if th, ok := value.AsFloat(m[evaluate.KeyThreshold]); ok {
		row.Threshold = &th
	}
	if p, ok := m[evaluate.KeyPassed].(value.Bool); ok {
		passed := bool(p)
		row.Passed = &passed
	}

	switch {
	case row.Passed == nil:
		s.Unchecked++
	case *row.Passed:
		s.Passed++
	default:
		s.Failed++
	}
	s.Rows = append(s.Rows, row)
}
