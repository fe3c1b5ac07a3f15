package app

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	ledgerdomain "github.com/context0/memory-ledger/business/ledger/domain"
	"github.com/context0/memory-ledger/business/statecache/domain"
)

type memTier struct {
	kind   domain.TierKind
	mu     sync.Mutex
	data   map[string][]byte
	ns     domain.Namespace
	getErr error
	putErr error
	gets   int
	puts   int
}

func newMemTier(kind domain.TierKind, ns domain.Namespace) *memTier {
	return &memTier{kind: kind, ns: ns, data: map[string][]byte{}}
}

func (m *memTier) Kind() domain.TierKind { return m.kind }

func (m *memTier) Get(_ context.Context, key common.Hash) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[m.ns.Key(key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *memTier) Put(_ context.Context, key common.Hash, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[m.ns.Key(key)] = value
	return nil
}

func (m *memTier) has(key common.Hash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[m.ns.Key(key)]
	return ok
}

type fakeSource struct {
	*memTier
	contract common.Address
	signer   Signer
}

func newFakeSource() *fakeSource {
	return &fakeSource{memTier: newMemTier(domain.TierNetworkSource, domain.Namespace{})}
}

func (s *fakeSource) Contract() common.Address { return s.contract }
func (s *fakeSource) UseSigner(sg Signer)      { s.signer = sg }

type fakeSources struct {
	source *fakeSource
	err    error
}

func (f *fakeSources) Source(_ *ledgerdomain.Connection) (NetworkSource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.source, nil
}

type fakeRemote struct {
	ready    bool
	tiers    map[domain.Namespace]*memTier
	purged   []domain.Namespace
	purgeErr error
}

func (r *fakeRemote) Purge(_ context.Context, ns domain.Namespace) error {
	r.purged = append(r.purged, ns)
	if r.purgeErr != nil {
		return r.purgeErr
	}
	if t, ok := r.tiers[ns]; ok {
		t.data = map[string][]byte{}
	}
	return nil
}

func (r *fakeRemote) IsReady() bool { return r.ready }

func (r *fakeRemote) Tier(ns domain.Namespace) Tier {
	if r.tiers == nil {
		r.tiers = map[domain.Namespace]*memTier{}
	}
	if t, ok := r.tiers[ns]; ok {
		return t
	}
	t := newMemTier(domain.TierRemote, ns)
	r.tiers[ns] = t
	return t
}

type fakeLocal struct {
	tiers    map[domain.Namespace]*memTier
	purged   []domain.Namespace
	purgeErr error
}

func (l *fakeLocal) Tier(ns domain.Namespace) Tier {
	if l.tiers == nil {
		l.tiers = map[domain.Namespace]*memTier{}
	}
	if t, ok := l.tiers[ns]; ok {
		return t
	}
	t := newMemTier(domain.TierLocalPersistent, ns)
	l.tiers[ns] = t
	return t
}

func (l *fakeLocal) Purge(_ context.Context, ns domain.Namespace) error {
	l.purged = append(l.purged, ns)
	if l.purgeErr != nil {
		return l.purgeErr
	}
	if t, ok := l.tiers[ns]; ok {
		t.data = map[string][]byte{}
	}
	return nil
}

var errBoom = errors.New("boom")
