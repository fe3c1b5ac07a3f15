// Package devnode manages a local anvil process used as the development ledger.
package devnode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/asset"
	"github.com/context0/memory-ledger/internal/logger"
)

const stopGrace = 5 * time.Second

// Config describes how to find or launch the dev node.
type Config struct {
	Host           string
	Port           int
	Command        string
	Args           []string // replaces the default anvil arguments when set
	StartupTimeout time.Duration
	ProbeTimeout   time.Duration
}

// Node probes, starts and stops the dev node.
type Node struct {
	cfg    Config
	logger logger.LoggerInterface

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// New creates a Node.
func New(cfg Config, log logger.LoggerInterface) *Node {
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = 30 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &Node{cfg: cfg, logger: log}
}

// URL returns the node's HTTP endpoint.
func (n *Node) URL() string {
	return "http://" + net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
}

// Probe asks the node for its chain ID.
func (n *Node) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.ProbeTimeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, n.URL())
	if err != nil {
		return err
	}
	defer client.Close()

	var id hexutil.Big
	return client.CallContext(ctx, &id, "eth_chainId")
}

// Start launches the node process and waits for it to answer. On failure
// the process is killed.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cmd != nil {
		return nil
	}

	args := n.cfg.Args
	if len(args) == 0 {
		args = []string{
			"--host", n.cfg.Host,
			"--port", strconv.Itoa(n.cfg.Port),
			"--chain-id", strconv.FormatUint(asset.ChainIDAnvil, 10),
			"--silent",
		}
	}

	// The node outlives the bootstrap context, so it is not bound to ctx.
	cmd := exec.Command(n.cfg.Command, args...)
	if err := cmd.Start(); err != nil {
		return apperror.New(apperror.CodeDevNodeStartFailed,
			apperror.WithCause(err),
			apperror.WithContext(n.cfg.Command))
	}

	done := make(chan struct{})
	go func() {
		n.waitErr = cmd.Wait()
		close(done)
	}()

	n.logger.Info(ctx, "dev node spawned", "command", n.cfg.Command, "pid", cmd.Process.Pid, "url", n.URL())

	if err := n.waitReady(ctx, done); err != nil {
		_ = cmd.Process.Kill()
		<-done
		return err
	}

	n.cmd = cmd
	n.done = done
	return nil
}

func (n *Node) waitReady(ctx context.Context, done <-chan struct{}) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxInterval = time.Second

	probe := func() (struct{}, error) {
		select {
		case <-done:
			return struct{}{}, backoff.Permanent(fmt.Errorf("dev node exited: %v", n.waitErr))
		default:
		}
		return struct{}{}, n.Probe(ctx)
	}

	_, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(eb),
		backoff.WithMaxElapsedTime(n.cfg.StartupTimeout),
	)
	if err == nil {
		return nil
	}

	select {
	case <-done:
		return apperror.New(apperror.CodeDevNodeStartFailed, apperror.WithCause(err))
	default:
		return apperror.New(apperror.CodeDevNodeTimeout,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("not ready after %s", n.cfg.StartupTimeout)))
	}
}

// Spawned reports whether a node started by this process is running.
func (n *Node) Spawned() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cmd != nil
}

// Stop interrupts a spawned node and kills it after a grace period.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cmd == nil {
		return nil
	}
	cmd, done := n.cmd, n.done
	n.cmd, n.done = nil, nil

	if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = cmd.Process.Kill()
	}

	select {
	case <-done:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-done
	}

	n.logger.Info(context.Background(), "dev node stopped", "pid", cmd.Process.Pid)
	return nil
}
