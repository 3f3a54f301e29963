package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/metrics"
)

// Change is delivered to subscribers after a write has been committed.
type Change struct {
	Principal *auth.Principal
	Version   uint64
}

// Listener receives committed changes. It runs on the writer's goroutine and
// must not write to the Store.
type Listener func(ctx context.Context, ch Change)

type snapshot struct {
	principal *auth.Principal
	version   uint64
}

// Store holds the current principal. Reads are lock free; writes are
// serialized and reach the persister before they become visible.
type Store struct {
	persister Persister
	logger    *slog.Logger

	writeMu sync.Mutex
	current atomic.Pointer[snapshot]

	subMu     sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// Open restores the principal from p. Corrupt or unreadable state is logged
// and the store starts empty; corrupt state is also removed from p so it is
// reported once rather than on every request.
func Open(ctx context.Context, p Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		persister: p,
		logger:    logger,
		listeners: make(map[uint64]Listener),
	}

	var restored *auth.Principal
	if p != nil {
		loaded, err := p.Load(ctx)
		switch {
		case err == nil:
			restored = loaded
		case errors.Is(err, ErrCorrupt):
			metrics.SessionLoadFailuresTotal.WithLabelValues("corrupt").Inc()
			logger.Warn("discarding corrupt session state", "error", err)
			if err := p.Persist(ctx, nil); err != nil {
				logger.Warn("corrupt session state could not be removed", "error", err)
			}
		default:
			metrics.SessionLoadFailuresTotal.WithLabelValues("unreadable").Inc()
			logger.Warn("session state unreadable; continuing unauthenticated", "error", err)
		}
	}
	s.current.Store(&snapshot{principal: restored})
	return s
}

// Current returns a copy of the principal, or nil when nobody is signed in.
func (s *Store) Current() *auth.Principal {
	p, _ := s.Snapshot()
	return p
}

// Snapshot returns a copy of the principal together with the store version.
// The version increases on every committed write.
func (s *Store) Snapshot() (*auth.Principal, uint64) {
	if s == nil {
		return nil, 0
	}
	snap := s.current.Load()
	if snap == nil {
		return nil, 0
	}
	if snap.principal == nil {
		return nil, snap.version
	}
	cp := snap.principal.Clone()
	return &cp, snap.version
}

// SetPrincipal replaces the principal wholesale. When persisting fails the
// in-memory state is left untouched.
func (s *Store) SetPrincipal(ctx context.Context, p auth.Principal) error {
	cp := p.Clone()
	cp.Roles = auth.NormalizeRoles(cp.Roles)
	return s.commit(ctx, &cp)
}

// Clear removes the principal and its durable copy.
func (s *Store) Clear(ctx context.Context) error {
	return s.commit(ctx, nil)
}

func (s *Store) commit(ctx context.Context, p *auth.Principal) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.persister != nil {
		if err := s.persister.Persist(ctx, p); err != nil {
			return err
		}
	}

	var version uint64
	if prev := s.current.Load(); prev != nil {
		version = prev.version
	}
	next := &snapshot{principal: p, version: version + 1}
	s.current.Store(next)

	// Notifying under writeMu keeps listeners in commit order.
	s.notify(ctx, next)
	return nil
}

// Subscribe registers fn for committed changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(ctx context.Context, snap *snapshot) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		var p *auth.Principal
		if snap.principal != nil {
			cp := snap.principal.Clone()
			p = &cp
		}
		fn(ctx, Change{Principal: p, Version: snap.version})
	}
}
