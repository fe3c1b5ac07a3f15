package ui

import (
	"time"

	"github.com/context0/memory-ledger/business/bootstrap/app"
	"github.com/context0/memory-ledger/pkg/ui/components"
)

// StepMsg reports bootstrap progress.
type StepMsg struct {
	Event app.Event
}

// ReadyMsg is sent once bootstrap completed.
type ReadyMsg struct {
	Fields []components.Field
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log line in the UI.
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// Observer returns an orchestrator observer that forwards events to the
// running program.
func Observer() app.Observer {
	return func(e app.Event) {
		if e.At.IsZero() {
			e.At = time.Now()
		}
		Send(StepMsg{Event: e})
	}
}
