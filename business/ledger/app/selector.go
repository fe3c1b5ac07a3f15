package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

const (
	tracerName = "ledger"
	meterName  = "ledger"
)

// SelectorConfig holds the remote tier endpoints.
type SelectorConfig struct {
	MainnetURL string
	TestnetURL string
}

// attempt is one step of a fallback plan.
type attempt struct {
	tier domain.NetworkTier
	run  func(ctx context.Context) (*domain.Connection, error)
}

// selection tracks progress through a plan. It ends either in selected or
// exhausted, and exhausted is only reachable from the last attempt.
type selection struct {
	plan     []attempt
	index    int
	failures []error
}

func (s *selection) current() attempt { return s.plan[s.index] }
func (s *selection) terminal() bool   { return s.index == len(s.plan)-1 }

func (s *selection) fail(err error) {
	s.failures = append(s.failures, fmt.Errorf("%s: %w", s.current().tier, err))
	s.index++
}

// Selector picks the ledger network tier for the environment.
type Selector struct {
	cfg     SelectorConfig
	dialer  Dialer
	devNode DevNode
	log     logger.LoggerInterface

	tracer   trace.Tracer
	attempts metric.Int64Counter
}

// NewSelector creates a Selector.
func NewSelector(cfg SelectorConfig, dialer Dialer, devNode DevNode, log logger.LoggerInterface) (*Selector, error) {
	s := &Selector{
		cfg:     cfg,
		dialer:  dialer,
		devNode: devNode,
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}

	var err error
	s.attempts, err = otel.Meter(meterName).Int64Counter(
		"ledger_network_attempts_total",
		metric.WithDescription("Network tier attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

// Plan returns the ordered tiers attempted for env. The last tier has no
// fallback.
func Plan(env domain.Environment) []domain.NetworkTier {
	if env == domain.Production {
		return []domain.NetworkTier{domain.TierMainnet}
	}
	return []domain.NetworkTier{domain.TierLocalDev, domain.TierTestnet}
}

func (s *Selector) plan(env domain.Environment) []attempt {
	tiers := Plan(env)
	plan := make([]attempt, 0, len(tiers))
	for _, tier := range tiers {
		switch tier {
		case domain.TierMainnet:
			plan = append(plan, attempt{tier: tier, run: s.remote(tier, s.cfg.MainnetURL)})
		case domain.TierTestnet:
			plan = append(plan, attempt{tier: tier, run: s.remote(tier, s.cfg.TestnetURL)})
		case domain.TierLocalDev:
			plan = append(plan, attempt{tier: tier, run: s.localDev})
		}
	}
	return plan
}

// Select walks the plan for env and returns the first connection that
// dials. Failure of the last attempt is fatal.
func (s *Selector) Select(ctx context.Context, env domain.Environment) (*domain.Connection, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.select",
		trace.WithAttributes(attribute.String("environment", env.String())),
	)
	defer span.End()

	sel := &selection{plan: s.plan(env)}

	for {
		a := sel.current()

		conn, err := a.run(ctx)
		if err == nil {
			s.attempts.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tier", a.tier.String()), attribute.Bool("success", true)))
			span.SetAttributes(attribute.String("tier", a.tier.String()))
			span.SetStatus(codes.Ok, "selected")
			s.log.Info(ctx, "ledger network selected",
				"tier", a.tier, "url", conn.URL(), "chain_id", conn.ChainID().String(), "fresh_node", conn.Fresh())
			return conn, nil
		}

		s.attempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", a.tier.String()), attribute.Bool("success", false)))
		span.AddEvent("attempt_failed", trace.WithAttributes(
			attribute.String("tier", a.tier.String()), attribute.String("error", err.Error())))

		if sel.terminal() {
			sel.fail(err)
			cause := errors.Join(sel.failures...)
			span.RecordError(cause)
			span.SetStatus(codes.Error, "no network")
			return nil, apperror.New(apperror.CodeNetworkUnavailable,
				apperror.WithCause(cause),
				apperror.WithContext(fmt.Sprintf("%s has no further fallback", a.tier)))
		}

		sel.fail(err)
		next := sel.current().tier
		s.log.Warn(ctx, "ledger network unavailable", "tier", a.tier, "error", err)
		s.log.Warn(ctx, "falling back with degraded functionality", "from", a.tier, "to", next)
	}
}

// Close stops a dev node this selector spawned.
func (s *Selector) Close() error {
	if s.devNode == nil {
		return nil
	}
	return s.devNode.Stop()
}

func (s *Selector) remote(tier domain.NetworkTier, url string) func(context.Context) (*domain.Connection, error) {
	return func(ctx context.Context) (*domain.Connection, error) {
		if url == "" {
			return nil, apperror.New(apperror.CodeLedgerConnectionFailed,
				apperror.WithContext(fmt.Sprintf("no endpoint configured for %s", tier)))
		}
		return s.dialer.Dial(ctx, domain.Endpoint{Tier: tier, URL: url})
	}
}

func (s *Selector) localDev(ctx context.Context) (*domain.Connection, error) {
	if s.devNode == nil {
		return nil, apperror.New(apperror.CodeDevNodeStartFailed, apperror.WithContext("dev node not configured"))
	}

	fresh := false
	if err := s.devNode.Probe(ctx); err != nil {
		s.log.Info(ctx, "dev node not reachable, starting one", "url", s.devNode.URL(), "reason", err)
		if err := s.devNode.Start(ctx); err != nil {
			return nil, err
		}
		fresh = true
	} else {
		s.log.Info(ctx, "reusing running dev node", "url", s.devNode.URL())
	}

	conn, err := s.dialer.Dial(ctx, domain.Endpoint{Tier: domain.TierLocalDev, URL: s.devNode.URL(), Fresh: fresh})
	if err != nil {
		if fresh {
			if stopErr := s.devNode.Stop(); stopErr != nil {
				s.log.Warn(ctx, "failed to stop dev node", "error", stopErr)
			}
		}
		return nil, err
	}
	return conn, nil
}
