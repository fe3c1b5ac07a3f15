package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"

	"github.com/context0/memory-ledger/business/bootstrap/app"
	"github.com/context0/memory-ledger/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
	PhaseFailed    Phase = "failed"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const (
	maxErrors = 3
	maxLogs   = 8
)

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

var stepLabels = map[app.Step]string{
	app.StepPreflight:   "Wallet configuration",
	app.StepRemoteCache: "Remote cache",
	app.StepNetwork:     "Ledger network",
	app.StepBind:        "State cache hierarchy",
	app.StepWallet:      "Signing wallet",
	app.StepSigner:      "Ledger signer",
	app.StepFunding:     "Dev wallet funding",
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	steps   *components.StepsComponent
	summary *components.SummaryComponent
	spinner spinner.Model
	help    help.Model
	keys    KeyMap

	phase        Phase
	welcomeStart time.Time
	startupTime  time.Time
	readyAfter   time.Duration

	width    int
	height   int
	quitting bool
	showLogs bool

	errors []ErrorEntry
	logs   []string
}

// New creates a new TUI model.
func New() Model {
	rows := make([]components.StepRow, 0, len(app.Steps))
	for _, s := range app.Steps {
		rows = append(rows, components.StepRow{Key: string(s), Label: stepLabels[s]})
	}

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(StatusDegraded))

	now := time.Now()
	return Model{
		steps:        components.NewStepsComponent(rows...),
		summary:      components.NewSummaryComponent(),
		spinner:      sp,
		help:         help.New(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupTime:  now,
		showLogs:     true,
		errors:       make([]ErrorEntry, 0, maxErrors),
		logs:         make([]string, 0, maxLogs),
	}
}

// Phase returns the current phase.
func (m Model) Phase() Phase { return m.phase }

// Steps returns the progress rows.
func (m Model) Steps() []components.StepRow { return m.steps.Rows() }

// Errors returns the visible error entries.
func (m Model) Errors() []ErrorEntry { return m.errors }
