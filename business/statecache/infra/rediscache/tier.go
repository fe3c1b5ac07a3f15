package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/context0/memory-ledger/business/statecache/domain"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/circuitbreaker"
)

type tier struct {
	conn *Connector
	ns   domain.Namespace
	ttl  time.Duration
}

func (t *tier) Kind() domain.TierKind { return domain.TierRemote }

func (t *tier) Get(ctx context.Context, key common.Hash) ([]byte, error) {
	client, err := t.client()
	if err != nil {
		return nil, err
	}

	value, err := t.conn.breaker.Execute(func() ([]byte, error) {
		b, err := client.Get(ctx, t.ns.Key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return b, err
	})
	return value, t.wrap(err)
}

func (t *tier) Put(ctx context.Context, key common.Hash, value []byte) error {
	client, err := t.client()
	if err != nil {
		return err
	}

	_, err = t.conn.breaker.Execute(func() ([]byte, error) {
		return nil, client.Set(ctx, t.ns.Key(key), value, t.ttl).Err()
	})
	return t.wrap(err)
}

func (t *tier) client() (*redis.Client, error) {
	if !t.conn.IsReady() {
		return nil, apperror.New(apperror.CodeCacheUnavailable, apperror.WithContext(t.conn.State().String()))
	}
	client := t.conn.Client()
	if client == nil {
		return nil, apperror.New(apperror.CodeCacheUnavailable, apperror.WithContext("closed"))
	}
	return client, nil
}

func (t *tier) wrap(err error) error {
	switch {
	case err == nil, errors.Is(err, domain.ErrNotFound):
		return err
	case circuitbreaker.IsOpen(err):
		return apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err), apperror.WithContext("remote cache"))
	default:
		return apperror.New(apperror.CodeCacheUnavailable, apperror.WithCause(err))
	}
}
