// Package badger implements the local persistent cache tier on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/context0/memory-ledger/business/statecache/app"
	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/logger"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("local cache closed")

// Config configures the store.
type Config struct {
	Dir string
	// InMemory keeps everything in memory; Dir is ignored.
	InMemory   bool
	TTL        time.Duration
	GCInterval time.Duration
}

// Store is a BadgerDB database holding every namespace.
type Store struct {
	db     *badger.DB
	cfg    Config
	log    logger.LoggerInterface
	closed atomic.Bool

	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
}

// Open opens or creates the database.
func Open(cfg Config, log logger.LoggerInterface) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(&badgerLogger{log: log}).WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Dir, err)
	}

	s := &Store{db: db, cfg: cfg, log: log}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.startGC()
	}
	return s, nil
}

// Tier returns the tier view of ns.
func (s *Store) Tier(ns domain.Namespace) app.Tier {
	return &tier{store: s, ns: ns}
}

// Purge drops every entry of ns.
func (s *Store) Purge(_ context.Context, ns domain.Namespace) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.DropPrefix([]byte(ns.Prefix()))
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.gcCancel != nil {
		s.gcCancel()
		s.gcWg.Wait()
	}
	return s.db.Close()
}

func (s *Store) startGC() {
	ctx, cancel := context.WithCancel(context.Background())
	s.gcCancel = cancel

	s.gcWg.Add(1)
	go func() {
		defer s.gcWg.Done()

		ticker := time.NewTicker(s.cfg.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Run until badger reports nothing left to rewrite.
				for s.db.RunValueLogGC(0.5) == nil {
				}
			}
		}
	}()
}

type tier struct {
	store *Store
	ns    domain.Namespace
}

func (t *tier) Kind() domain.TierKind { return domain.TierLocalPersistent }

func (t *tier) Get(_ context.Context, key common.Hash) ([]byte, error) {
	if t.store.closed.Load() {
		return nil, ErrClosed
	}

	var value []byte
	err := t.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(t.ns.Key(key)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (t *tier) Put(_ context.Context, key common.Hash, value []byte) error {
	if t.store.closed.Load() {
		return ErrClosed
	}

	return t.store.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(t.ns.Key(key)), value)
		if t.store.cfg.TTL > 0 {
			e = e.WithTTL(t.store.cfg.TTL)
		}
		return txn.SetEntry(e)
	})
}

// badgerLogger routes badger's printf logging into the service logger.
// Info and debug output is dropped.
type badgerLogger struct {
	log logger.LoggerInterface
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(string, ...any)  {}
func (l *badgerLogger) Debugf(string, ...any) {}
