package devnode

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

func hostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	_, port := hostPort(t, l.Addr().String())
	l.Close()
	return port
}

func TestProbeRunningNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "0x7a69"})
	}))
	defer srv.Close()

	host, port := hostPort(t, srv.Listener.Addr().String())
	n := New(Config{Host: host, Port: port}, logger.Discard())

	if err := n.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if n.Spawned() {
		t.Fatalf("probing must not mark the node as spawned")
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop on a foreign node should be a no-op: %v", err)
	}
}

func TestProbeNothingListening(t *testing.T) {
	n := New(Config{Port: freePort(t), ProbeTimeout: 200 * time.Millisecond}, logger.Discard())
	if err := n.Probe(context.Background()); err == nil {
		t.Fatalf("expected probe failure")
	}
}

func TestStartMissingBinary(t *testing.T) {
	n := New(Config{Port: freePort(t), Command: "definitely-not-a-ledger-node"}, logger.Discard())

	err := n.Start(context.Background())
	if !apperror.HasCode(err, apperror.CodeDevNodeStartFailed) {
		t.Fatalf("expected start failure, got %v", err)
	}
}

func TestStartProcessExitsEarly(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	n := New(Config{
		Port:           freePort(t),
		Command:        "true",
		Args:           []string{"ignored"},
		StartupTimeout: 5 * time.Second,
		ProbeTimeout:   100 * time.Millisecond,
	}, logger.Discard())

	err := n.Start(context.Background())
	if !apperror.HasCode(err, apperror.CodeDevNodeStartFailed) {
		t.Fatalf("expected start failure after exit, got %v", err)
	}
	if n.Spawned() {
		t.Fatalf("failed start must not leave a spawned node")
	}
}

func TestStartReadinessTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	n := New(Config{
		Port:           freePort(t),
		Command:        "sleep",
		Args:           []string{"30"},
		StartupTimeout: 400 * time.Millisecond,
		ProbeTimeout:   100 * time.Millisecond,
	}, logger.Discard())

	start := time.Now()
	err := n.Start(context.Background())
	if !apperror.HasCode(err, apperror.CodeDevNodeTimeout) {
		t.Fatalf("expected readiness timeout, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatalf("timeout not honoured")
	}
	if n.Spawned() {
		t.Fatalf("timed out node must be killed")
	}
}
