// Package facade is the single entry point the action surface (and any
// other caller) talks to: it resolves a session id to a store handle via
// the pool manager and forwards every call to a freshly-wrapped adapter.
package facade

import (
	"context"
	"fmt"

	"github.com/roelfdiedericks/memoryengine/internal/memory"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/storemgr"
)

// Facade is the public callable API of the engine. It holds no state
// beyond the pool manager; every method resolves its own store handle
// per call.
type Facade struct {
	stores *storemgr.Manager
}

// New wraps an already-constructed store manager.
func New(stores *storemgr.Manager) *Facade {
	return &Facade{stores: stores}
}

func (f *Facade) adapterForRead(ctx context.Context, sessionID string) (*memory.Adapter, error) {
	store, err := f.stores.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return memory.New(store), nil
}

func (f *Facade) adapterForWrite(ctx context.Context, sessionID string) (*memory.Adapter, error) {
	store, err := f.stores.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return memory.New(store), nil
}

// Persist writes a full memory record, opening the session's store if
// it is not already open.
func (f *Facade) Persist(ctx context.Context, item memory.Item) (string, error) {
	a, err := f.adapterForWrite(ctx, item.SessionID)
	if err != nil {
		return "", err
	}
	return a.Persist(ctx, item)
}

// Query is query_by_session: session-scoped listing with options.
func (f *Facade) Query(ctx context.Context, sessionID string, opts memory.QueryOptions) ([]memory.Item, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return a.QueryBySession(ctx, sessionID, opts)
}

// QueryByType is the session-scoped, superseded-excluding convenience
// wrapper over Query.
func (f *Facade) QueryByType(ctx context.Context, sessionID, memType string, opts memory.QueryOptions) ([]memory.Item, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return a.QueryByType(ctx, sessionID, memType, opts)
}

// QueryByID is the internal, session-unchecked lookup.
func (f *Facade) QueryByID(ctx context.Context, sessionID, id string) (memory.Item, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return memory.Item{}, err
	}
	return a.QueryByID(ctx, id)
}

// Get is the public, session-scoped lookup; the adapter itself spells
// it QueryByIDScoped.
func (f *Facade) Get(ctx context.Context, sessionID, id string) (memory.Item, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return memory.Item{}, err
	}
	return a.QueryByIDScoped(ctx, sessionID, id)
}

// Supersede marks oldID as superseded by newID (which may be empty).
func (f *Facade) Supersede(ctx context.Context, sessionID, oldID, newID string) error {
	a, err := f.adapterForWrite(ctx, sessionID)
	if err != nil {
		return err
	}
	return a.Supersede(ctx, sessionID, oldID, newID)
}

// Delete removes id, idempotently.
func (f *Facade) Delete(ctx context.Context, sessionID, id string) error {
	a, err := f.adapterForWrite(ctx, sessionID)
	if err != nil {
		return err
	}
	return a.Delete(ctx, sessionID, id)
}

// RecordAccess is best-effort and never returns an error to the
// caller; a failure to even resolve the session's store is swallowed
// here without logging.
func (f *Facade) RecordAccess(ctx context.Context, sessionID, id string) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return
	}
	a.RecordAccess(ctx, sessionID, id)
}

// Count returns the number of records in a session.
func (f *Facade) Count(ctx context.Context, sessionID string, includeSuperseded bool) (int64, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return a.Count(ctx, sessionID, includeSuperseded)
}

// QueryRelated is the depth-first related-memory traversal.
func (f *Facade) QueryRelated(ctx context.Context, sessionID, startID string, relationship memtype.Relationship, opts memory.RelatedOptions) ([]memory.Item, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return a.QueryRelated(ctx, sessionID, startID, relationship, opts)
}

// GetContext is the relevance-ranked context assembly.
func (f *Facade) GetContext(ctx context.Context, sessionID, contextHint string, opts memory.ContextOptions) ([]memory.ScoredItem, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return a.GetContext(ctx, sessionID, contextHint, opts)
}

// GetStats computes the session-level aggregate.
func (f *Facade) GetStats(ctx context.Context, sessionID string) (memory.Stats, error) {
	a, err := f.adapterForRead(ctx, sessionID)
	if err != nil {
		return memory.Stats{}, err
	}
	return a.GetStats(ctx, sessionID)
}

// Health probes the session's store, opening it if not already open
// (an unopened session has nothing to report on, but a caller probing
// health is reasonably expected to bring the session up first).
func (f *Facade) Health(ctx context.Context, sessionID string) error {
	if _, err := f.stores.GetOrCreate(ctx, sessionID); err != nil {
		return fmt.Errorf("health %s: %w", sessionID, err)
	}
	return f.stores.Health(ctx, sessionID)
}

// CloseAll shuts down every open session store, bounded by the
// manager's configured per-store close deadline.
func (f *Facade) CloseAll(ctx context.Context) {
	f.stores.CloseAll(ctx)
}
