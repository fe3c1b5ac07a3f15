// Package rediscache implements the remote cache connector and tier on Redis.
package rediscache

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/context0/memory-ledger/business/statecache/app"
	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/circuitbreaker"
	"github.com/context0/memory-ledger/internal/logger"
)

const (
	defaultDialTimeout    = 10 * time.Second
	defaultCommandTimeout = 5 * time.Second
	defaultHealthInterval = 5 * time.Second
	purgeBatch            = 500

	meterName = "statecache.redis"
)

// Config configures the connector. Production reads Host, Port and
// Password; development connects to DevAddr without authentication.
type Config struct {
	Enabled    bool
	Production bool

	Host     string
	Port     string
	Password string
	DevAddr  string

	DialTimeout    time.Duration
	CommandTimeout time.Duration
	HealthInterval time.Duration
	TTL            time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = defaultHealthInterval
	}
	if c.DevAddr == "" {
		c.DevAddr = "localhost:6379"
	}
	return c
}

// Connector owns the Redis client and tracks its connection state. State
// reads are lock-free.
type Connector struct {
	cfg     Config
	log     logger.LoggerInterface
	breaker *circuitbreaker.CircuitBreaker[[]byte]

	state atomic.Int32

	mu        sync.Mutex
	attempted bool
	client    *redis.Client
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewConnector creates a disconnected Connector.
func NewConnector(cfg Config, log logger.LoggerInterface) *Connector {
	c := &Connector{cfg: cfg.withDefaults(), log: log}

	bc := circuitbreaker.DefaultConfig("remote-cache")
	bc.Timeout = c.cfg.HealthInterval
	bc.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, domain.ErrNotFound)
	}
	bc.OnStateChange = func(name string, from, to circuitbreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}
	c.breaker = circuitbreaker.New[[]byte](bc)

	if _, err := otel.Meter(meterName).Int64ObservableGauge(
		"statecache_remote_state",
		metric.WithDescription("Remote cache connection state (0 disconnected, 1 connecting, 2 ready, 3 degraded)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(c.state.Load()))
			return nil
		}),
	); err != nil {
		log.Warn(context.Background(), "remote cache state gauge not registered", "error", err)
	}
	return c
}

// Address returns the endpoint the connector uses, or "" when production
// settings are incomplete.
func (c *Connector) Address() string {
	if !c.cfg.Production {
		return c.cfg.DevAddr
	}
	if c.cfg.Host == "" || c.cfg.Port == "" {
		return ""
	}
	return net.JoinHostPort(c.cfg.Host, c.cfg.Port)
}

// Connect creates the client and pings it once. Failures leave the
// connector Degraded with the supervisor retrying; they are never returned.
// Connect is a no-op after the first call.
func (c *Connector) Connect(ctx context.Context) domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempted {
		return c.State()
	}
	c.attempted = true

	if !c.cfg.Enabled {
		c.log.Info(ctx, "remote cache disabled")
		return c.State()
	}

	addr := c.Address()
	if addr == "" {
		c.log.Info(ctx, "remote cache not configured, continuing without it",
			"host_set", c.cfg.Host != "", "port_set", c.cfg.Port != "")
		return c.State()
	}

	c.transition(ctx, domain.StateConnecting, nil)

	opts := &redis.Options{
		Addr:         addr,
		DialTimeout:  c.cfg.DialTimeout,
		ReadTimeout:  c.cfg.CommandTimeout,
		WriteTimeout: c.cfg.CommandTimeout,
		MaxRetries:   1,
	}
	if c.cfg.Production {
		opts.Password = c.cfg.Password
		opts.MaxRetries = 2
	}
	c.client = redis.NewClient(opts)

	if err := c.ping(ctx, c.client); err != nil {
		c.transition(ctx, domain.StateDegraded, err)
	} else {
		c.transition(ctx, domain.StateReady, nil)
	}

	superCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.supervise(superCtx, c.client, c.done)

	return c.State()
}

// State returns the current connection state.
func (c *Connector) State() domain.State {
	return domain.State(c.state.Load())
}

// IsReady reports whether the last health check succeeded.
func (c *Connector) IsReady() bool {
	return c.State() == domain.StateReady
}

// Client returns the client, or nil when no connection was attempted.
func (c *Connector) Client() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Tier returns the cache tier for ns.
func (c *Connector) Tier(ns domain.Namespace) app.Tier {
	return &tier{conn: c, ns: ns, ttl: c.cfg.TTL}
}

// Purge unlinks every key of ns. It is a no-op when the cache is not ready.
func (c *Connector) Purge(ctx context.Context, ns domain.Namespace) error {
	client := c.Client()
	if client == nil || !c.IsReady() {
		return nil
	}

	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, ns.Prefix()+"*", purgeBatch).Result()
		if err != nil {
			return apperror.New(apperror.CodeCacheUnavailable, apperror.WithCause(err), apperror.WithContext("scan "+ns.Prefix()))
		}
		if len(keys) > 0 {
			n, err := client.Unlink(ctx, keys...).Result()
			if err != nil {
				return apperror.New(apperror.CodeCacheUnavailable, apperror.WithCause(err), apperror.WithContext("unlink "+ns.Prefix()))
			}
			removed += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	c.log.Debug(ctx, "remote cache namespace purged", "namespace", ns.Prefix(), "keys", removed)
	return nil
}

// Close stops the supervisor and closes the client.
func (c *Connector) Close() error {
	c.mu.Lock()
	cancel, done, client := c.cancel, c.done, c.client
	c.client = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.state.Store(int32(domain.StateDisconnected))
	if client != nil {
		return client.Close()
	}
	return nil
}

func (c *Connector) ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (c *Connector) supervise(ctx context.Context, client *redis.Client, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(ctx, client); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.transition(ctx, domain.StateDegraded, err)
				continue
			}
			c.transition(ctx, domain.StateReady, nil)
		}
	}
}

// transition stores to and logs only when the state actually changes.
func (c *Connector) transition(ctx context.Context, to domain.State, cause error) {
	from := domain.State(c.state.Swap(int32(to)))
	if from == to {
		return
	}

	switch to {
	case domain.StateReady:
		c.log.Info(ctx, "remote cache ready", "addr", c.Address(), "from", from)
	case domain.StateDegraded:
		c.log.Warn(ctx, "remote cache unavailable, continuing without it", "addr", c.Address(), "from", from, "error", cause)
	default:
		c.log.Debug(ctx, "remote cache state changed", "from", from, "to", to)
	}
}
