// Package ui provides the Bubble Tea TUI that follows the bootstrap.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/context0/memory-ledger/business/bootstrap/app"
	"github.com/context0/memory-ledger/pkg/ui/components"
)

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m Model) startup() Model {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if OnStartModules != nil {
		go OnStartModules()
	}
	return m
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case m.phase == PhaseWelcome:
			return m.startup(), nil
		case key.Matches(msg, m.keys.Clear):
			m.errors = m.errors[:0]
		case key.Matches(msg, m.keys.Logs):
			m.showLogs = !m.showLogs
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m = m.startup()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StepMsg:
		e := msg.Event
		if e.Step == app.StepComplete {
			m.readyAfter = e.At.Sub(m.startupTime)
			break
		}
		m.steps.Update(string(e.Step), components.StepState(e.Status), e.Detail, e.At)
		if e.Err != nil {
			m.errors = addError(m.errors, fmt.Sprintf("%s: %v", stepLabels[e.Step], e.Err), e.At)
		}
		if e.Status == app.StatusFailed {
			m.phase = PhaseFailed
		}

	case ReadyMsg:
		m.summary.Set(msg.Fields)
		if m.phase != PhaseFailed {
			m.phase = PhaseDashboard
		}

	case ErrorMsg:
		if msg.Error != nil {
			m.errors = addError(m.errors, msg.Error.Error(), time.Now())
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

// addError keeps the newest maxErrors entries.
func addError(errs []ErrorEntry, message string, at time.Time) []ErrorEntry {
	errs = append(errs, ErrorEntry{Message: message, Timestamp: at})
	if len(errs) > maxErrors {
		errs = errs[len(errs)-maxErrors:]
	}
	return errs
}

// addLog keeps the newest maxLogs lines.
func addLog(logs []string, level, message string) []string {
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("15:04:05"), level, message)
	logs = append(logs, line)
	if len(logs) > maxLogs {
		logs = logs[len(logs)-maxLogs:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(" memory-ledger "))
	b.WriteString("  ")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	stepsView := HeaderStyle.Render("BOOTSTRAP") + "\n\n" + m.steps.View(m.spinner.View())
	summaryView := HeaderStyle.Render("RUNTIME") + "\n\n" + m.summary.View()

	if m.width > 110 {
		left := BoxStyle.Width(m.width/2 - 2).Render(stepsView)
		right := BoxStyle.Width(m.width/2 - 2).Render(summaryView)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Render(stepsView))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(summaryView))
	}
	b.WriteString("\n\n")

	if m.showLogs && len(m.logs) > 0 {
		for _, l := range m.logs {
			b.WriteString(MutedValue.Render("  " + l))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.errors) > 0 {
		b.WriteString(StatusFailed.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			ago := time.Since(e.Timestamp).Round(time.Second)
			b.WriteString(ErrorValue.Render("  • " + e.Message))
			b.WriteString(MutedValue.Render(fmt.Sprintf(" (%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderStatus() string {
	switch m.phase {
	case PhaseDashboard:
		return StatusReady.Render(fmt.Sprintf("● ready in %s", m.readyAfter.Round(time.Millisecond)))
	case PhaseFailed:
		return StatusFailed.Render("✗ bootstrap failed")
	default:
		elapsed := time.Since(m.startupTime).Round(time.Second)
		return StatusDegraded.Render(fmt.Sprintf("%s bootstrapping %s", m.spinner.View(), elapsed))
	}
}

func (m Model) renderWelcomeScreen() string {
	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n")
	sb.WriteString(HeaderStyle.Render("    m e m o r y - l e d g e r"))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("    contract state, cached close to you"))
	sb.WriteString("\n\n\n")
	sb.WriteString(StatusReady.Render("    Initializing" + dots))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("    Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called once the welcome screen completes.
var OnStartModules func()

// Run starts the Bubble Tea program and blocks until it exits.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
