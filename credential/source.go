package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-rdstation/core"
)

// Source yields the credential to use for the next request.
type Source interface {
	Credential(ctx context.Context) (core.ActiveCredential, error)
}

// Store is the host-owned credential persistence.
type Store interface {
	Load(ctx context.Context) (core.ActiveCredential, error)
	Save(ctx context.Context, cred core.ActiveCredential) error
}

type Refresher interface {
	Refresh(ctx context.Context, cred core.ActiveCredential) (core.ActiveCredential, error)
}

// StaticSource always returns the same credential.
type StaticSource core.ActiveCredential

func (s StaticSource) Credential(context.Context) (core.ActiveCredential, error) {
	return core.ActiveCredential(s), nil
}

// MemoryStore keeps a single credential in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	cred core.ActiveCredential
	set  bool
}

func NewMemoryStore(initial *core.ActiveCredential) *MemoryStore {
	store := &MemoryStore{}
	if initial != nil {
		store.cred = *initial
		store.set = true
	}
	return store
}

func (s *MemoryStore) Load(context.Context) (core.ActiveCredential, error) {
	if s == nil {
		return core.ActiveCredential{}, errors.New("credential: store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return core.ActiveCredential{}, ErrNoAccessToken()
	}
	return s.cred, nil
}

func (s *MemoryStore) Save(_ context.Context, cred core.ActiveCredential) error {
	if s == nil {
		return errors.New("credential: store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.set = true
	return nil
}

// RefreshingSource loads the credential from a Store and refreshes it once
// it is within skew of its expiry. Concurrent callers share one refresh.
type RefreshingSource struct {
	store     Store
	refresher Refresher
	skew      time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

func NewRefreshingSource(store Store, refresher Refresher, skew time.Duration) *RefreshingSource {
	return &RefreshingSource{
		store:     store,
		refresher: refresher,
		skew:      skew,
		now:       time.Now,
	}
}

func (s *RefreshingSource) WithClock(now func() time.Time) *RefreshingSource {
	if s != nil && now != nil {
		s.now = now
	}
	return s
}

func (s *RefreshingSource) Credential(ctx context.Context) (core.ActiveCredential, error) {
	if s == nil || s.store == nil {
		return core.ActiveCredential{}, errors.New("credential: source store is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.store.Load(ctx)
	if err != nil {
		return core.ActiveCredential{}, err
	}
	if !cred.Expired(s.now(), s.skew) {
		return cred, nil
	}
	if s.refresher == nil || cred.RefreshToken == "" {
		return cred, nil
	}
	refreshed, err := s.refresher.Refresh(ctx, cred)
	if err != nil {
		return core.ActiveCredential{}, err
	}
	if err := s.store.Save(ctx, refreshed); err != nil {
		return core.ActiveCredential{}, err
	}
	return refreshed, nil
}

var (
	_ Source    = StaticSource{}
	_ Source    = (*RefreshingSource)(nil)
	_ Store     = (*MemoryStore)(nil)
	_ Refresher = (*OAuth)(nil)
)
