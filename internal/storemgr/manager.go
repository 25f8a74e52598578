// Package storemgr owns the pool of per-session triple-store handles: a
// bounded, LRU-evicted, idle-cleaned map keyed by session id, generalizing
// the single global *Manager the chat application keeps into a keyed
// pool (one handle per session instead of one handle total).
package storemgr

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/errgroup"

	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/ontology"
	"github.com/roelfdiedericks/memoryengine/internal/paths"
	"github.com/roelfdiedericks/memoryengine/internal/triplestore"

	. "github.com/roelfdiedericks/memoryengine/internal/logging"
)

// DefaultMaxOpenStores is the bounded-pool capacity used when Config
// leaves MaxOpenStores unset.
const DefaultMaxOpenStores = 100

// Config holds the manager's tunables; zero values fall back to the
// documented defaults.
type Config struct {
	BasePath        string
	MaxOpenStores   int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	CloseDeadline   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxOpenStores <= 0 {
		c.MaxOpenStores = DefaultMaxOpenStores
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	if c.CloseDeadline <= 0 {
		c.CloseDeadline = 10 * time.Second
	}
	return c
}

// Metadata describes one pool entry for inspection callers (Manager.GetMetadata).
type Metadata struct {
	SessionID    string
	OpenedAt     time.Time
	LastAccessed time.Time
}

type entry struct {
	store        *triplestore.Store
	openedAt     time.Time
	lastAccessed time.Time
}

// Manager is the bounded pool of per-session store handles.
type Manager struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry
	lru     *simplelru.LRU[string, struct{}]

	cleanupDone chan struct{}
	cleanupWg   sync.WaitGroup
}

// New constructs a Manager rooted at cfg.BasePath (or the default data
// directory if empty).
func New(cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()
	if cfg.BasePath == "" {
		base, err := paths.BaseDir()
		if err != nil {
			return nil, fmt.Errorf("resolve default base path: %w", err)
		}
		cfg.BasePath = base
	}
	if err := paths.EnsureDir(cfg.BasePath); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}

	m := &Manager{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}

	lru, err := simplelru.NewLRU[string, struct{}](cfg.MaxOpenStores, func(sessionID string, _ struct{}) {
		m.evictLocked(sessionID)
	})
	if err != nil {
		return nil, fmt.Errorf("create lru index: %w", err)
	}
	m.lru = lru

	L_info("storemgr: manager created", "basePath", cfg.BasePath, "maxOpenStores", cfg.MaxOpenStores)
	return m, nil
}

// BasePath returns the root directory every session's store lives under.
func (m *Manager) BasePath() string { return m.cfg.BasePath }

// evictLocked closes and removes sessionID's entry. Called by the LRU's
// own eviction callback, which fires synchronously from within an
// already-locked Add, Remove or Purge call, so it must not itself try to
// lock m.mu.
func (m *Manager) evictLocked(sessionID string) {
	e, ok := m.entries[sessionID]
	if !ok {
		return
	}
	delete(m.entries, sessionID)
	if err := e.store.Close(); err != nil {
		L_warn("storemgr: evicted store close failed", "session", sessionID, "error", err)
	} else {
		L_debug("storemgr: evicted idle store", "session", sessionID)
	}
}

// GetOrCreate opens (or returns the already-open handle for) a session's
// store, loading the ontology corpus exactly once per store.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string) (*triplestore.Store, error) {
	if !memtype.ValidLocalName(sessionID, 64) {
		return nil, memerr.ErrInvalidSessionID
	}

	m.mu.Lock()
	if e, ok := m.entries[sessionID]; ok {
		e.lastAccessed = time.Now()
		m.lru.Get(sessionID)
		store := e.store
		m.mu.Unlock()
		return store, nil
	}
	m.mu.Unlock()

	sessionPath := paths.SessionDir(m.cfg.BasePath, sessionID)
	contained, err := paths.Contains(m.cfg.BasePath, sessionPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrPathTraversal, err)
	}
	if !contained {
		return nil, memerr.ErrPathTraversal
	}

	store, err := triplestore.Open(ctx, filepath.Join(sessionPath, "memory.db"), true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrStoreOpenFailed, err)
	}

	if err := ontology.Load(ctx, store); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %v", memerr.ErrOntologyLoadFailed, err)
	}

	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[sessionID]; ok {
		// Lost a race against a concurrent GetOrCreate for the same
		// session; keep the winner, close our redundant handle.
		store.Close()
		existing.lastAccessed = now
		m.lru.Get(sessionID)
		return existing.store, nil
	}

	m.entries[sessionID] = &entry{store: store, openedAt: now, lastAccessed: now}
	m.lru.Add(sessionID, struct{}{})

	L_info("storemgr: opened store", "session", sessionID, "path", sessionPath)
	return store, nil
}

// Get looks up an already-open session's store without creating one.
func (m *Manager) Get(sessionID string) (*triplestore.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sessionID]
	if !ok {
		return nil, memerr.ErrNotFound
	}
	e.lastAccessed = time.Now()
	m.lru.Get(sessionID)
	return e.store, nil
}

// Close removes and closes sessionID's store, if open. Absent sessions
// are a no-op.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	e, ok := m.entries[sessionID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.entries, sessionID)
	m.lru.Remove(sessionID)
	m.mu.Unlock()

	return e.store.Close()
}

// CloseAll closes every open store concurrently, each bounded by
// cfg.CloseDeadline; individual close errors are logged and never
// propagated.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessionIDs := make([]string, 0, len(m.entries))
	stores := make([]*triplestore.Store, 0, len(m.entries))
	for id, e := range m.entries {
		sessionIDs = append(sessionIDs, id)
		stores = append(stores, e.store)
	}
	m.entries = make(map[string]*entry)
	m.lru.Purge()
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for i := range stores {
		id, store := sessionIDs[i], stores[i]
		g.Go(func() error {
			deadline, cancel := context.WithTimeout(context.Background(), m.cfg.CloseDeadline)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- store.Close() }()
			select {
			case err := <-done:
				if err != nil {
					L_warn("storemgr: close failed during close_all", "session", id, "error", err)
				}
			case <-deadline.Done():
				L_warn("storemgr: close timed out during close_all", "session", id)
			}
			return nil
		})
	}
	g.Wait()

	L_info("storemgr: close_all completed", "count", len(stores))
}

// Health probes sessionID's store, normalizing the result.
func (m *Manager) Health(ctx context.Context, sessionID string) error {
	store, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("%w: %v", memerr.ErrUnhealthy, err)
	}
	return nil
}

// ListOpen returns every currently-open session id.
func (m *Manager) ListOpen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	return ids
}

// IsOpen reports whether sessionID currently has an open store.
func (m *Manager) IsOpen(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[sessionID]
	return ok
}

// GetMetadata returns opened_at/last_accessed bookkeeping for an open
// session.
func (m *Manager) GetMetadata(sessionID string) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[sessionID]
	if !ok {
		return Metadata{}, memerr.ErrNotFound
	}
	return Metadata{SessionID: sessionID, OpenedAt: e.openedAt, LastAccessed: e.lastAccessed}, nil
}

// StartCleanup launches the periodic idle-eviction goroutine. Call
// StopCleanup (or cancel ctx) to stop it.
func (m *Manager) StartCleanup(ctx context.Context) {
	m.cleanupDone = make(chan struct{})
	ticker := time.NewTicker(m.cfg.CleanupInterval)

	m.cleanupWg.Add(1)
	go func() {
		defer m.cleanupWg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweepIdle()
			case <-m.cleanupDone:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	L_info("storemgr: idle cleanup started", "interval", m.cfg.CleanupInterval, "idleTimeout", m.cfg.IdleTimeout)
}

// StopCleanup halts the background idle-cleanup goroutine, if running.
func (m *Manager) StopCleanup() {
	if m.cleanupDone == nil {
		return
	}
	close(m.cleanupDone)
	m.cleanupWg.Wait()
}

func (m *Manager) sweepIdle() {
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var staleIDs []string
	var staleStores []*triplestore.Store
	for id, e := range m.entries {
		if e.lastAccessed.Before(cutoff) {
			staleIDs = append(staleIDs, id)
			staleStores = append(staleStores, e.store)
		}
	}
	for _, id := range staleIDs {
		delete(m.entries, id)
		m.lru.Remove(id)
	}
	m.mu.Unlock()

	for i, id := range staleIDs {
		if err := staleStores[i].Close(); err != nil {
			L_warn("storemgr: idle close failed", "session", id, "error", err)
			continue
		}
		L_debug("storemgr: closed idle store", "session", id)
	}
}
