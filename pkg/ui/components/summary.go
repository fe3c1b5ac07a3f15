package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is a labelled value in the summary panel.
type Field struct {
	Label string
	Value string
}

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))

// SummaryComponent renders the ready graph.
type SummaryComponent struct {
	fields []Field
}

// NewSummaryComponent creates an empty summary.
func NewSummaryComponent() *SummaryComponent {
	return &SummaryComponent{}
}

// Set replaces the fields.
func (s *SummaryComponent) Set(fields []Field) {
	s.fields = fields
}

// View renders one field per line with aligned labels.
func (s *SummaryComponent) View() string {
	if len(s.fields) == 0 {
		return mutedStyle.Render("Waiting for bootstrap...")
	}

	width := 0
	for _, f := range s.fields {
		width = max(width, len(f.Label))
	}

	var sb strings.Builder
	for _, f := range s.fields {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, f.Label)))
		sb.WriteString("  ")
		sb.WriteString(f.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}
