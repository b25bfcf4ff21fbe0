package checkout

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"pizzaria-checkout/internal/domain"
	"pizzaria-checkout/internal/kv"
	"pizzaria-checkout/internal/paysession"
)

const (
	defaultIdleTTL       = 2 * time.Hour
	janitorSweepInterval = time.Minute
)

// ManagerDeps are the collaborators shared by all sessions. The
// payment session store is derived per session from KV.
type ManagerDeps struct {
	Backend Backend
	Routes  RouteProvider
	CEP     CEPProvider
	KV      kv.Store
	Logger  *log.Logger
}

// Manager owns the live checkout sessions, keyed by id, and evicts
// the ones that have gone idle.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession
	deps     ManagerDeps
	cfg      Config
	idleTTL  time.Duration
	logger   *log.Logger
	stop     chan struct{}
	stopOnce sync.Once
}

type managedSession struct {
	checkout *Checkout
	lastSeen time.Time
}

// NewManager starts a manager with its janitor goroutine.
func NewManager(deps ManagerDeps, cfg Config, idleTTL time.Duration) *Manager {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	m := &Manager{
		sessions: make(map[string]*managedSession),
		deps:     deps,
		cfg:      cfg,
		idleTTL:  idleTTL,
		logger:   deps.Logger,
		stop:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Create opens a new session and returns it.
func (m *Manager) Create() *Checkout {
	id := uuid.NewString()
	session := New(id, Deps{
		Backend:  m.deps.Backend,
		Routes:   m.deps.Routes,
		CEP:      m.deps.CEP,
		Sessions: paysession.New(m.deps.KV, id),
		KV:       m.deps.KV,
		Logger:   m.deps.Logger,
	}, m.cfg)

	m.mu.Lock()
	m.sessions[id] = &managedSession{checkout: session, lastSeen: time.Now()}
	m.mu.Unlock()
	return session
}

// Get returns the live session for the id and refreshes its idle
// clock. Unknown or evicted ids yield domain.ErrNotFound.
func (m *Manager) Get(id string) (*Checkout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry.lastSeen = time.Now()
	return entry.checkout, nil
}

// Close stops the janitor and closes every live session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.sessions {
		entry.checkout.Close()
		delete(m.sessions, id)
	}
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(janitorSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.sessions {
		if now.Sub(entry.lastSeen) > m.idleTTL {
			entry.checkout.Close()
			delete(m.sessions, id)
			m.logger.Printf("evicted idle checkout session %s", id)
		}
	}
}
