// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StepState is the display state of a bootstrap step.
type StepState string

const (
	StepPending  StepState = "pending"
	StepRunning  StepState = "running"
	StepDone     StepState = "done"
	StepSkipped  StepState = "skipped"
	StepDegraded StepState = "degraded"
	StepFailed   StepState = "failed"
)

// StepRow is one line of the progress list.
type StepRow struct {
	Key     string
	Label   string
	State   StepState
	Detail  string
	Started time.Time
	Elapsed time.Duration
}

var (
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	runningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FB923C"))
)

// StepsComponent renders bootstrap progress in a fixed order.
type StepsComponent struct {
	rows []StepRow
}

// NewStepsComponent creates the list with every row pending.
func NewStepsComponent(rows ...StepRow) *StepsComponent {
	for i := range rows {
		rows[i].State = StepPending
	}
	return &StepsComponent{rows: rows}
}

// Update moves a step to state. Unknown keys are appended.
func (s *StepsComponent) Update(key string, state StepState, detail string, at time.Time) {
	for i := range s.rows {
		row := &s.rows[i]
		if row.Key != key {
			continue
		}
		if state == StepRunning {
			row.Started = at
		} else if !row.Started.IsZero() {
			row.Elapsed = at.Sub(row.Started)
		}
		row.State = state
		if detail != "" {
			row.Detail = detail
		}
		return
	}
	s.rows = append(s.rows, StepRow{Key: key, Label: key, State: state, Detail: detail, Started: at})
}

// Rows returns a copy of the rows.
func (s *StepsComponent) Rows() []StepRow {
	out := make([]StepRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Failed reports whether any step failed.
func (s *StepsComponent) Failed() bool {
	for _, r := range s.rows {
		if r.State == StepFailed {
			return true
		}
	}
	return false
}

// View renders the list. spin is drawn next to running steps.
func (s *StepsComponent) View(spin string) string {
	var sb strings.Builder
	for _, r := range s.rows {
		var icon string
		style := mutedStyle
		switch r.State {
		case StepDone:
			icon, style = "✓", doneStyle
		case StepRunning:
			icon, style = spin, runningStyle
		case StepSkipped:
			icon = "–"
		case StepDegraded:
			icon, style = "!", degradedStyle
		case StepFailed:
			icon, style = "✗", failedStyle
		default:
			icon = "○"
		}

		line := fmt.Sprintf("  %s %-30s %s", style.Render(icon), r.Label, style.Render(string(r.State)))
		if r.Elapsed > 0 {
			line += mutedStyle.Render(fmt.Sprintf(" %s", r.Elapsed.Round(time.Millisecond)))
		}
		if r.Detail != "" {
			line += mutedStyle.Render("  " + r.Detail)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
