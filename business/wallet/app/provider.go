package app

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/wallet/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/logger"
)

const tracerName = "wallet"

// ProviderConfig holds wallet settings.
type ProviderConfig struct {
	Environment     ledgerdomain.Environment
	KeyPath         string
	ExpectedAddress string
	Passphrase      string
	DevPath         string
}

type policy interface {
	name() string
	preflight() error
	resolve(ctx context.Context) (*domain.Record, error)
}

// Provider resolves the process signing identity. The policy is fixed by
// the environment at construction.
type Provider struct {
	policy      policy
	log         logger.LoggerInterface
	tracer      trace.Tracer
	resolutions metric.Int64Counter
}

// NewProvider creates a Provider for cfg.Environment.
func NewProvider(cfg ProviderConfig, store KeyStore, log logger.LoggerInterface) *Provider {
	var p policy
	if cfg.Environment == ledgerdomain.Production {
		p = &productionPolicy{cfg: cfg, store: store}
	} else {
		p = &developmentPolicy{cfg: cfg, store: store, log: log}
	}

	resolutions, err := otel.Meter(tracerName).Int64Counter("wallet_resolutions_total",
		metric.WithDescription("Wallet resolutions by provenance"))
	if err != nil {
		resolutions = noop.Int64Counter{}
	}
	return &Provider{policy: p, log: log, tracer: otel.Tracer(tracerName), resolutions: resolutions}
}

// Preflight checks configuration without touching the filesystem or network.
func (p *Provider) Preflight() error {
	return p.policy.preflight()
}

// Resolve returns the signing identity.
func (p *Provider) Resolve(ctx context.Context) (*domain.Record, error) {
	ctx, span := p.tracer.Start(ctx, "wallet.resolve",
		trace.WithAttributes(attribute.String("policy", p.policy.name())),
	)
	defer span.End()

	rec, err := p.policy.resolve(ctx)
	if err != nil {
		p.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("provenance", "error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return nil, err
	}
	p.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("provenance", string(rec.Provenance()))))

	span.SetAttributes(
		attribute.String("address", rec.Address().Hex()),
		attribute.String("provenance", string(rec.Provenance())),
	)
	p.log.Info(ctx, "wallet resolved",
		"address", rec.Address().Hex(), "provenance", rec.Provenance(), "path", rec.Path())
	return rec, nil
}

type productionPolicy struct {
	cfg   ProviderConfig
	store KeyStore
}

func (productionPolicy) name() string { return "production" }

func (p *productionPolicy) preflight() error {
	var missing []string
	if strings.TrimSpace(p.cfg.ExpectedAddress) == "" {
		missing = append(missing, "SERVICE_WALLET_ADDRESS")
	}
	if strings.TrimSpace(p.cfg.KeyPath) == "" {
		missing = append(missing, "WALLET_KEY_PATH")
	}
	if len(missing) > 0 {
		return apperror.New(apperror.CodeWalletConfigMissing,
			apperror.WithContext("missing "+strings.Join(missing, ", ")))
	}
	if !common.IsHexAddress(p.cfg.ExpectedAddress) {
		return apperror.New(apperror.CodeWalletConfigMissing,
			apperror.WithContext(fmt.Sprintf("SERVICE_WALLET_ADDRESS is not an address: %q", p.cfg.ExpectedAddress)))
	}
	return nil
}

func (p *productionPolicy) resolve(context.Context) (*domain.Record, error) {
	if err := p.preflight(); err != nil {
		return nil, err
	}

	key, err := p.store.Load(p.cfg.KeyPath, p.cfg.Passphrase)
	if err != nil {
		return nil, apperror.New(apperror.CodeWalletLoadFailed,
			apperror.WithCause(err), apperror.WithContext(p.cfg.KeyPath))
	}

	rec := domain.NewRecord(key, domain.ProvenanceFile, p.cfg.KeyPath)
	expected := common.HexToAddress(p.cfg.ExpectedAddress)
	// common.Address compares bytes, so hex case does not matter.
	if rec.Address() != expected {
		return nil, apperror.New(apperror.CodeWalletAddressMismatch,
			apperror.WithContext(fmt.Sprintf("expected %s, key file holds %s", expected.Hex(), rec.Address().Hex())))
	}
	return rec, nil
}

type developmentPolicy struct {
	cfg   ProviderConfig
	store KeyStore
	log   logger.LoggerInterface
}

func (developmentPolicy) name() string { return "development" }

func (p *developmentPolicy) preflight() error { return nil }

func (p *developmentPolicy) path() string {
	if p.cfg.KeyPath != "" {
		return p.cfg.KeyPath
	}
	return p.cfg.DevPath
}

func (p *developmentPolicy) resolve(ctx context.Context) (*domain.Record, error) {
	path := p.path()

	key, err := p.store.Load(path, p.cfg.Passphrase)
	if err == nil {
		return domain.NewRecord(key, domain.ProvenanceFile, path), nil
	}

	if errors.Is(err, domain.ErrKeyNotFound) {
		p.log.Info(ctx, "no dev wallet found, generating one", "path", path)
	} else {
		p.log.Warn(ctx, "dev wallet unreadable, replacing it", "path", path, "error", err)
		p.keepUnreadable(ctx, path)
	}

	key, err = p.generate(path)
	if err != nil {
		p.log.Error(ctx, "dev wallet could not be persisted", "path", path, "error", err)
		return nil, err
	}
	return domain.NewRecord(key, domain.ProvenanceGenerated, path), nil
}

func (p *developmentPolicy) generate(path string) (*ecdsa.PrivateKey, error) {
	key, err := p.store.Generate()
	if err != nil {
		return nil, apperror.New(apperror.CodeWalletPersistFailed,
			apperror.WithCause(err), apperror.WithContext("generate key"))
	}
	if err := p.store.Save(path, p.cfg.Passphrase, key); err != nil {
		return nil, apperror.New(apperror.CodeWalletPersistFailed,
			apperror.WithCause(err), apperror.WithContext(path))
	}
	return key, nil
}

// keepUnreadable moves an unreadable key file aside instead of overwriting it.
func (p *developmentPolicy) keepUnreadable(ctx context.Context, path string) {
	backup := fmt.Sprintf("%s.unreadable-%d", path, time.Now().Unix())
	if err := os.Rename(path, backup); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.log.Warn(ctx, "could not move unreadable dev wallet aside", "path", path, "error", err)
		}
		return
	}
	p.log.Info(ctx, "unreadable dev wallet moved aside", "backup", backup)
}
