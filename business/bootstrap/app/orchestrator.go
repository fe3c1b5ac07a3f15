package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	statecacheapp "github.com/context0/memory-ledger/business/statecache/app"
	walletapp "github.com/context0/memory-ledger/business/wallet/app"
	walletdomain "github.com/context0/memory-ledger/business/wallet/domain"
	"github.com/context0/memory-ledger/internal/apm"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

const tracerName = "bootstrap"

// Result is the ready graph. It is read-only.
type Result struct {
	Environment ledgerdomain.Environment
	Connection  *ledgerdomain.Connection
	Wallet      *walletdomain.Record
	Cache       *statecacheapp.Chain
	// RemoteCache is nil when no connector is configured. It may be
	// degraded; check IsReady.
	RemoteCache RemoteCacheConnector
}

// Deps are the collaborators of the orchestrator. Remote may be nil.
type Deps struct {
	Selector NetworkSelector
	Remote   RemoteCacheConnector
	Binder   CacheBinder
	Wallet   WalletProvider
	Funder   WalletFunder
	// Closers are released last by Close, in order.
	Closers []io.Closer
}

// Orchestrator runs the bootstrap once.
type Orchestrator struct {
	env    ledgerdomain.Environment
	deps   Deps
	log    logger.LoggerInterface
	tracer apm.Tracer

	ran atomic.Bool

	mu        sync.Mutex
	observers []Observer
	conn      *ledgerdomain.Connection
	result    *Result
	closed    bool
}

// NewOrchestrator creates an Orchestrator for env.
func NewOrchestrator(env ledgerdomain.Environment, deps Deps, log logger.LoggerInterface) *Orchestrator {
	return &Orchestrator{
		env:    env,
		deps:   deps,
		log:    log,
		tracer: apm.NewTracer(tracerName),
	}
}

// Observe registers an observer. Observers added after Run started miss
// earlier events.
func (o *Orchestrator) Observe(fn Observer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Environment returns the environment the orchestrator runs for.
func (o *Orchestrator) Environment() ledgerdomain.Environment { return o.env }

// Result returns the result of a successful Run, or nil.
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Run bootstraps the process. It may be called once.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	if !o.ran.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeAlreadyBootstrapped)
	}

	ctx, span := o.tracer.StartSpanFromContext(ctx, "bootstrap.run",
		trace.WithAttributes(attribute.String("environment", o.env.String())))
	defer span.End()

	started := time.Now()
	res, err := o.run(ctx)
	if err != nil {
		span.NoticeError(err)
		o.log.Error(ctx, "bootstrap failed", apperrorLog(err)...)
		return nil, err
	}

	o.mu.Lock()
	o.result = res
	o.mu.Unlock()

	span.SetAttributes(attribute.String("tier", res.Connection.Tier().String()))
	span.SetStatus(codes.Ok, "ready")
	o.emit(Event{Step: StepComplete, Status: StatusDone, Detail: time.Since(started).Round(time.Millisecond).String()})
	o.log.Info(ctx, "bootstrap complete",
		"environment", o.env,
		"tier", res.Connection.Tier(),
		"chain_id", res.Connection.ChainID().String(),
		"wallet", res.Wallet.Address().Hex(),
		"cache_tiers", fmt.Sprint(res.Cache.Kinds()),
		"duration", time.Since(started).String())
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context) (*Result, error) {
	o.emit(Event{Step: StepPreflight, Status: StatusRunning})
	if err := o.deps.Wallet.Preflight(); err != nil {
		o.emit(Event{Step: StepPreflight, Status: StatusFailed, Err: err})
		return nil, err
	}
	o.emit(Event{Step: StepPreflight, Status: StatusDone})

	conn, err := o.connect(ctx)
	if err != nil {
		return nil, err
	}

	var remote statecacheapp.RemoteCache
	if o.deps.Remote != nil {
		remote = o.deps.Remote
	}

	o.emit(Event{Step: StepBind, Status: StatusRunning})
	chain, err := o.deps.Binder.Bind(ctx, conn, remote)
	if err != nil {
		o.emit(Event{Step: StepBind, Status: StatusFailed, Err: err})
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "bind cache hierarchy")
	}
	o.emit(Event{Step: StepBind, Status: StatusDone, Detail: fmt.Sprint(chain.Kinds())})

	o.emit(Event{Step: StepWallet, Status: StatusRunning})
	rec, err := o.deps.Wallet.Resolve(ctx)
	if err != nil {
		o.emit(Event{Step: StepWallet, Status: StatusFailed, Err: err})
		return nil, err
	}
	o.emit(Event{Step: StepWallet, Status: StatusDone,
		Detail: fmt.Sprintf("%s (%s)", rec.Address().Hex(), rec.Provenance())})

	chain.Source().UseSigner(rec)
	o.emit(Event{Step: StepSigner, Status: StatusDone, Detail: chain.Source().Contract().Hex()})

	o.fund(ctx, conn, rec)

	return &Result{
		Environment: o.env,
		Connection:  conn,
		Wallet:      rec,
		Cache:       chain,
		RemoteCache: o.deps.Remote,
	}, nil
}

// connect runs the remote cache connect and the network selection
// concurrently. Only the selection can fail.
func (o *Orchestrator) connect(ctx context.Context) (*ledgerdomain.Connection, error) {
	g, gctx := errgroup.WithContext(ctx)

	if o.deps.Remote != nil {
		g.Go(func() error {
			o.emit(Event{Step: StepRemoteCache, Status: StatusRunning})
			st := o.deps.Remote.Connect(ctx)
			status := StatusDone
			if !o.deps.Remote.IsReady() {
				status = StatusDegraded
			}
			o.emit(Event{Step: StepRemoteCache, Status: status, Detail: st.String()})
			return nil
		})
	} else {
		o.emit(Event{Step: StepRemoteCache, Status: StatusSkipped, Detail: "not configured"})
	}

	g.Go(func() error {
		o.emit(Event{Step: StepNetwork, Status: StatusRunning})
		conn, err := o.deps.Selector.Select(gctx, o.env)
		if err != nil {
			o.emit(Event{Step: StepNetwork, Status: StatusFailed, Err: err})
			return err
		}

		o.mu.Lock()
		o.conn = conn
		o.mu.Unlock()

		o.emit(Event{Step: StepNetwork, Status: StatusDone,
			Detail: fmt.Sprintf("%s chain %s", conn.Tier(), conn.ChainID())})
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conn, nil
}

func (o *Orchestrator) fund(ctx context.Context, conn *ledgerdomain.Connection, rec *walletdomain.Record) {
	if o.deps.Funder == nil || !walletapp.Applies(o.env, conn) {
		o.emit(Event{Step: StepFunding, Status: StatusSkipped, Detail: conn.Tier().String()})
		return
	}

	o.emit(Event{Step: StepFunding, Status: StatusRunning})
	balance, err := o.deps.Funder.Fund(ctx, conn, rec)
	if err != nil {
		o.log.Warn(ctx, "dev wallet funding failed, continuing unfunded", apperrorLog(err)...)
		o.emit(Event{Step: StepFunding, Status: StatusDegraded, Err: err})
		return
	}
	o.emit(Event{Step: StepFunding, Status: StatusDone, Detail: balance.String()})
}

// Close releases the connection, a spawned dev node, the remote cache and
// every extra closer. It is safe to call after a failed Run.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	conn := o.conn
	o.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	var errs []error
	if o.deps.Selector != nil {
		if err := o.deps.Selector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("stop dev node: %w", err))
		}
	}
	if o.deps.Remote != nil {
		if err := o.deps.Remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close remote cache: %w", err))
		}
	}
	for _, c := range o.deps.Closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) emit(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	o.mu.Lock()
	observers := make([]Observer, len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, fn := range observers {
		fn(e)
	}
}

func apperrorLog(err error) []any {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.ToLog()
	}
	return []any{"error", err}
}
