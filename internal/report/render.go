package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ux3d/ANARI-SDK/internal/value"
)

// Renderer turns a finished report into a human-readable artifact.
type Renderer interface {
	Render(w io.Writer, report value.Object) error
}

// NewRenderer returns the renderer for kind: "console", "json" or "none".
// Unknown kinds fall back to the console renderer.
func NewRenderer(kind string) Renderer {
	switch kind {
	case "json":
		return JSONRenderer{}
	case "none":
		return NopRenderer{}
	default:
		return ConsoleRenderer{}
	}
}

// NopRenderer renders nothing.
type NopRenderer struct{}

// Render implements Renderer.
func (NopRenderer) Render(io.Writer, value.Object) error { return nil }

// JSONRenderer writes the report as indented canonical JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(w io.Writer, report value.Object) error {
	data, err := value.MarshalIndent(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

var (
	colorPass    = lipgloss.Color("#2CD7C7")
	colorFail    = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
	colorHeading = lipgloss.Color("#20B9B4")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeading).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	passStyle   = cellStyle.Foreground(colorPass)
	failStyle   = cellStyle.Foreground(colorFail)
	mutedStyle  = cellStyle.Foreground(colorMuted)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorHeading)
)

// ConsoleRenderer prints metric and property-check tables followed by a
// one-line tally.
type ConsoleRenderer struct{}

// Render implements Renderer.
func (ConsoleRenderer) Render(w io.Writer, report value.Object) error {
	s := Summarize(report)
	title := cases.Title(language.English)

	var b strings.Builder
	if len(s.Rows) > 0 {
		results := make([]string, len(s.Rows))
		rows := make([][]string, len(s.Rows))
		for i, r := range s.Rows {
			results[i] = resultText(r.Passed)
			threshold := "-"
			if r.Threshold != nil {
				threshold = formatScore(*r.Threshold)
			}
			rows[i] = []string{
				r.Test, r.Instance, title.String(r.Channel), strings.ToUpper(r.Metric),
				formatScore(r.Score), threshold, results[i],
			}
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
			Headers("Test", "Instance", "Channel", "Metric", "Score", "Threshold", "Result").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 6 {
					return resultStyle(results[row])
				}
				return cellStyle
			})
		b.WriteString(titleStyle.Render("Image comparison"))
		b.WriteString("\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if len(s.Checks) > 0 {
		rows := make([][]string, len(s.Checks))
		for i, c := range s.Checks {
			rows[i] = []string{c.Test, c.Instance, c.Text}
		}
		checks := s.Checks
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorMuted)).
			Headers("Test", "Instance", "Property check").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col == 2 {
					if checks[row].OK() {
						return passStyle
					}
					return failStyle
				}
				return cellStyle
			})
		b.WriteString(titleStyle.Render("Property checks"))
		b.WriteString("\n")
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d passed, %d failed, %d without threshold, %d property check failures\n",
		s.Passed, s.Failed, s.Unchecked, s.BoundsFailures)

	_, err := io.WriteString(w, b.String())
	return err
}

func resultText(passed *bool) string {
	switch {
	case passed == nil:
		return "n/a"
	case *passed:
		return "pass"
	default:
		return "FAIL"
	}
}

func resultStyle(text string) lipgloss.Style {
	switch text {
	case "pass":
		return passStyle
	case "FAIL":
		return failStyle
	default:
		return mutedStyle
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
