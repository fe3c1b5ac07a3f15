package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour

	var transitions []State
	cfg.OnStateChange = func(_ string, _, to State) {
		transitions = append(transitions, to)
	}

	cb := New[int](cfg)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: err = %v", i, err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !IsOpen(err) {
		t.Fatalf("expected open-state rejection, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Fatalf("transitions = %v", transitions)
	}
}

func TestIsSuccessfulExcludesErrors(t *testing.T) {
	notFound := errors.New("not found")
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 1
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, notFound) }

	cb := New[string](cfg)
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", notFound })
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}
}
