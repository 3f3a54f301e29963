package session

import (
	"context"
	"sync"

	"github.com/alexedwards/scs/v2"
	"github.com/medportal/medportal/internal/auth"
)

// Persister is the durable storage behind a Store. Load returns (nil, nil)
// when nothing is stored.
type Persister interface {
	Persist(ctx context.Context, p *auth.Principal) error
	Load(ctx context.Context) (*auth.Principal, error)
}

// DefaultSessionKey is the scs key holding the encoded principal.
const DefaultSessionKey = "auth_principal"

// SCSPersister keeps the principal inside an scs session. The context passed
// to Persist and Load must carry the session, i.e. come from a request that
// went through SessionManager.LoadAndSave.
type SCSPersister struct {
	Sessions *scs.SessionManager
	Key      string
}

func NewSCSPersister(sessions *scs.SessionManager) *SCSPersister {
	return &SCSPersister{Sessions: sessions, Key: DefaultSessionKey}
}

func (sp *SCSPersister) key() string {
	if sp.Key == "" {
		return DefaultSessionKey
	}
	return sp.Key
}

func (sp *SCSPersister) Persist(ctx context.Context, p *auth.Principal) error {
	if p == nil {
		sp.Sessions.Remove(ctx, sp.key())
		return nil
	}
	raw, err := Encode(*p)
	if err != nil {
		return err
	}
	sp.Sessions.Put(ctx, sp.key(), string(raw))
	return nil
}

func (sp *SCSPersister) Load(ctx context.Context) (*auth.Principal, error) {
	raw := sp.Sessions.GetString(ctx, sp.key())
	if raw == "" {
		return nil, nil
	}
	p, err := Decode([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MemoryPersister keeps the encoded principal in memory. Raw exposes the
// stored bytes so tests can plant corrupt data.
type MemoryPersister struct {
	mu   sync.Mutex
	raw  []byte
	fail error
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (m *MemoryPersister) Persist(_ context.Context, p *auth.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if p == nil {
		m.raw = nil
		return nil
	}
	raw, err := Encode(*p)
	if err != nil {
		return err
	}
	m.raw = raw
	return nil
}

func (m *MemoryPersister) Load(_ context.Context) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if len(m.raw) == 0 {
		return nil, nil
	}
	p, err := Decode(m.raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Raw returns a copy of the stored bytes.
func (m *MemoryPersister) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.raw...)
}

// SetRaw replaces the stored bytes verbatim.
func (m *MemoryPersister) SetRaw(raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = append([]byte(nil), raw...)
}

// FailWith makes every subsequent call return err; nil restores normal behavior.
func (m *MemoryPersister) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}
