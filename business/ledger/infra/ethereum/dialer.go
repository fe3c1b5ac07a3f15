// Package ethereum dials ledger nodes with go-ethereum.
package ethereum

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
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
	tracerName = "ledger.ethereum"
	meterName  = "ledger.ethereum"

	defaultDialTimeout = 10 * time.Second
)

// Dialer connects to JSON-RPC endpoints and verifies the chain ID.
type Dialer struct {
	timeout time.Duration
	logger  logger.LoggerInterface

	tracer      trace.Tracer
	dialLatency metric.Float64Histogram
}

// NewDialer creates a Dialer. Every dial is bounded by timeout.
func NewDialer(timeout time.Duration, log logger.LoggerInterface) (*Dialer, error) {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	d := &Dialer{
		timeout: timeout,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}

	var err error
	d.dialLatency, err = otel.Meter(meterName).Float64Histogram(
		"ledger_dial_latency_ms",
		metric.WithDescription("Latency of dial plus chain ID check"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return d, nil
}

// Dial connects to ep and checks the chain ID.
func (d *Dialer) Dial(ctx context.Context, ep domain.Endpoint) (*domain.Connection, error) {
	ctx, span := d.tracer.Start(ctx, "ledger.dial",
		trace.WithAttributes(
			attribute.String("tier", ep.Tier.String()),
			attribute.String("url", ep.URL),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		d.dialLatency.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("tier", ep.Tier.String())))
	}()

	dctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	client, err := ethclient.DialContext(dctx, ep.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("dial %s", ep.Tier)))
	}

	chainID, err := client.ChainID(dctx)
	if err != nil {
		client.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain id failed")
		return nil, apperror.New(apperror.CodeLedgerConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("query chain id of %s", ep.Tier)))
	}

	if want := ep.Tier.ExpectedChainID(); want != 0 && (!chainID.IsUint64() || chainID.Uint64() != want) {
		client.Close()
		span.SetStatus(codes.Error, "chain mismatch")
		return nil, apperror.New(apperror.CodeLedgerChainMismatch,
			apperror.WithContext(fmt.Sprintf("%s reported chain %s, want %d", ep.Tier, chainID, want)))
	}

	span.SetAttributes(attribute.String("chain_id", chainID.String()))
	span.SetStatus(codes.Ok, "connected")
	d.logger.Debug(ctx, "ledger node connected", "tier", ep.Tier, "chain_id", chainID.String())

	return domain.NewConnection(ep, chainID, client), nil
}
