package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/context0/memory-ledger/business/bootstrap/app"
	"github.com/context0/memory-ledger/pkg/ui/components"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func stepState(m Model, step app.Step) components.StepState {
	for _, r := range m.Steps() {
		if r.Key == string(step) {
			return r.State
		}
	}
	return ""
}

func TestKeySkipsWelcome(t *testing.T) {
	m := New()
	if m.Phase() != PhaseWelcome {
		t.Fatalf("phase = %s", m.Phase())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Phase() != PhaseStartup {
		t.Fatalf("phase = %s", m.Phase())
	}
}

func TestStepProgressToDashboard(t *testing.T) {
	m := update(t, New(), tea.KeyMsg{Type: tea.KeyEnter})
	start := time.Now()

	m = update(t, m, StepMsg{Event: app.Event{Step: app.StepNetwork, Status: app.StatusRunning, At: start}})
	if got := stepState(m, app.StepNetwork); got != components.StepRunning {
		t.Fatalf("network = %s", got)
	}

	m = update(t, m, StepMsg{Event: app.Event{Step: app.StepNetwork, Status: app.StatusDone, Detail: "local_dev", At: start.Add(time.Second)}})
	m = update(t, m, StepMsg{Event: app.Event{Step: app.StepRemoteCache, Status: app.StatusDegraded, At: start}})
	m = update(t, m, StepMsg{Event: app.Event{Step: app.StepComplete, Status: app.StatusDone, At: start.Add(2 * time.Second)}})
	m = update(t, m, ReadyMsg{Fields: []components.Field{{Label: "Network", Value: "local_dev"}}})

	if m.Phase() != PhaseDashboard {
		t.Fatalf("phase = %s", m.Phase())
	}
	if got := stepState(m, app.StepRemoteCache); got != components.StepDegraded {
		t.Fatalf("remote cache = %s", got)
	}
	for _, r := range m.Steps() {
		if r.Key == string(app.StepNetwork) && r.Elapsed != time.Second {
			t.Fatalf("network elapsed = %s", r.Elapsed)
		}
	}
	if !strings.Contains(m.View(), "local_dev") {
		t.Fatal("summary not rendered")
	}
}

func TestFailedStepStaysFailed(t *testing.T) {
	m := update(t, New(), tea.KeyMsg{Type: tea.KeyEnter})
	m = update(t, m, StepMsg{Event: app.Event{
		Step: app.StepPreflight, Status: app.StatusFailed, Err: errors.New("WALLET_KEY_PATH missing"), At: time.Now(),
	}})
	m = update(t, m, ReadyMsg{})

	if m.Phase() != PhaseFailed {
		t.Fatalf("phase = %s", m.Phase())
	}
	if len(m.Errors()) != 1 || !strings.Contains(m.Errors()[0].Message, "WALLET_KEY_PATH") {
		t.Fatalf("errors = %+v", m.Errors())
	}
}

func TestErrorsCappedAndCleared(t *testing.T) {
	m := update(t, New(), tea.KeyMsg{Type: tea.KeyEnter})
	for i := 0; i < 5; i++ {
		m = update(t, m, ErrorMsg{Error: errors.New("boom")})
	}
	if len(m.Errors()) != maxErrors {
		t.Fatalf("errors = %d", len(m.Errors()))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if len(m.Errors()) != 0 {
		t.Fatalf("errors after clear = %d", len(m.Errors()))
	}
}

func TestStepsComponentUnknownKey(t *testing.T) {
	s := components.NewStepsComponent(components.StepRow{Key: "a", Label: "A"})
	s.Update("b", components.StepDone, "extra", time.Now())
	rows := s.Rows()
	if len(rows) != 2 || rows[0].State != components.StepPending || rows[1].Label != "b" {
		t.Fatalf("rows = %+v", rows)
	}
	if s.Failed() {
		t.Fatal("no step failed")
	}
}
