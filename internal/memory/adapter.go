package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/querytmpl"
	"github.com/roelfdiedericks/memoryengine/internal/triplestore"

	. "github.com/roelfdiedericks/memoryengine/internal/logging"
)

// Adapter is the stateless operational API over a single session's
// triple store. It holds no state of its own beyond the handle;
// concurrent calls against the same handle are safe exactly to the
// extent the underlying store is.
type Adapter struct {
	store *triplestore.Store
}

// New wraps an already-open store handle.
func New(store *triplestore.Store) *Adapter {
	return &Adapter{store: store}
}

// Persist builds and issues the insert_memory template for a full
// record, returning its id on success. Persist is last-writer-wins on
// conflicting ids: any triples already stored for item.ID are deleted
// before the new set is inserted, so re-persisting an id replaces its
// full state rather than accumulating alongside it.
func (a *Adapter) Persist(ctx context.Context, item Item) (string, error) {
	del, err := querytmpl.DeleteMemory(item.ID)
	if err != nil {
		return "", err
	}
	q, err := querytmpl.InsertMemory(
		item.ID, item.Content, memtype.MemoryType(item.MemoryType), item.Confidence,
		memtype.SourceType(item.SourceType), item.SessionID, item.AgentID, item.ProjectID,
		item.Rationale, item.EvidenceRefs, item.CreatedAt,
	)
	if err != nil {
		return "", err
	}
	if _, err := a.store.Update(ctx, del.DeletePatterns, q.InsertTriples); err != nil {
		return "", fmt.Errorf("persist memory %s: %w", item.ID, err)
	}
	return item.ID, nil
}

// hydrate reads every triple for a memory subject and reassembles an
// Item, a row-to-struct mapping over triple-store bindings instead of
// a SQL row.
func (a *Adapter) hydrate(ctx context.Context, id string) (Item, bool, error) {
	subj := memtype.MemoryIRI(id)
	triples, err := a.store.TriplesForSubject(ctx, subj)
	if err != nil {
		return Item{}, false, fmt.Errorf("hydrate memory %s: %w", id, err)
	}
	if len(triples) == 0 {
		return Item{}, false, nil
	}

	item := Item{ID: id}
	for _, tr := range triples {
		switch tr.Predicate {
		case memtype.PredType:
			if tag, ok := memtype.MemoryTypeFromIRI(tr.Object.Value); ok {
				item.MemoryType = string(tag)
			}
		case memtype.PredContent:
			item.Content = tr.Object.Value
		case memtype.PredConfidence:
			if f, ok := parseFloatValue(tr.Object.Value); ok {
				item.Confidence = f
			}
		case memtype.PredSourceType:
			if tag, ok := memtype.SourceTypeFromIRI(tr.Object.Value); ok {
				item.SourceType = string(tag)
			}
		case memtype.PredSessionID:
			item.SessionID = tr.Object.Value
		case memtype.PredAgentID:
			item.AgentID = tr.Object.Value
		case memtype.PredProjectID:
			item.ProjectID = tr.Object.Value
		case memtype.PredRationale:
			item.Rationale = tr.Object.Value
		case memtype.PredEvidenceRef:
			item.EvidenceRefs = append(item.EvidenceRefs, tr.Object.Value)
		case memtype.PredCreatedAt:
			if t, err := time.Parse("2006-01-02T15:04:05.000000000Z", tr.Object.Value); err == nil {
				item.CreatedAt = t
			}
		case memtype.PredSupersededBy:
			if id, ok := querytmpl.StripMemoryIRI(tr.Object.Value); ok {
				item.SupersededBy = id
			}
		case memtype.PredSupersededAt:
			if t, err := time.Parse("2006-01-02T15:04:05.000000000Z", tr.Object.Value); err == nil {
				item.SupersededAt = t
			}
		case memtype.PredAccessCount:
			if n, ok := parseIntValue(tr.Object.Value); ok {
				item.AccessCount = n
			}
		case memtype.PredLastAccessed:
			if t, err := time.Parse("2006-01-02T15:04:05.000000000Z", tr.Object.Value); err == nil {
				item.LastAccessed = t
			}
		}
	}
	return item, true, nil
}

// QueryByID is the internal variant: returns a record without any
// session ownership check.
func (a *Adapter) QueryByID(ctx context.Context, id string) (Item, error) {
	item, ok, err := a.hydrate(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, memerr.ErrNotFound
	}
	return item, nil
}

// QueryByIDScoped is the public variant: enforces that the fetched
// record's session_id matches sessionID, returning ErrNotFound
// (indistinguishable from absence) otherwise so callers cannot probe
// across sessions.
func (a *Adapter) QueryByIDScoped(ctx context.Context, sessionID, id string) (Item, error) {
	item, err := a.QueryByID(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if item.SessionID != sessionID {
		return Item{}, memerr.ErrNotFound
	}
	return item, nil
}

func (a *Adapter) resolveIDs(ctx context.Context, rows []map[string]triplestore.Term, varName string) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		term, ok := row[varName]
		if !ok {
			continue
		}
		id, ok := querytmpl.StripMemoryIRI(term.Value)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (a *Adapter) hydrateAll(ctx context.Context, ids []string) ([]Item, error) {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		item, ok, err := a.hydrate(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// QueryBySession selects active (or all) records in a session ordered
// by creation time descending.
func (a *Adapter) QueryBySession(ctx context.Context, sessionID string, opts QueryOptions) ([]Item, error) {
	if opts.Type != "" {
		return a.QueryByType(ctx, sessionID, opts.Type, opts)
	}
	q, err := querytmpl.QueryBySession(sessionID, opts.MinConfidence, opts.Limit, opts.IncludeSuperseded)
	if err != nil {
		return nil, err
	}
	rows, err := a.store.Select(ctx, q.Patterns, q.Negate, q.Filters, q.Vars, triplestore.SelectOptions{OrderByVar: q.OrderBy, Desc: q.Desc, Limit: q.Limit})
	if err != nil {
		return nil, fmt.Errorf("query_by_session %s: %w", sessionID, err)
	}
	return a.hydrateAll(ctx, a.resolveIDs(ctx, rows, "m"))
}

// QueryByType is the session-scoped, superseded-excluding convenience
// wrapper.
func (a *Adapter) QueryByType(ctx context.Context, sessionID, memoryType string, opts QueryOptions) ([]Item, error) {
	q, err := querytmpl.QueryByType(sessionID, memtype.MemoryType(memoryType), opts.Limit)
	if err != nil {
		return nil, err
	}
	rows, err := a.store.Select(ctx, q.Patterns, q.Negate, q.Filters, q.Vars, triplestore.SelectOptions{OrderByVar: q.OrderBy, Desc: q.Desc, Limit: q.Limit})
	if err != nil {
		return nil, fmt.Errorf("query_by_type %s/%s: %w", sessionID, memoryType, err)
	}
	return a.hydrateAll(ctx, a.resolveIDs(ctx, rows, "m"))
}

// Count returns the number of records in a session, never materializing
// rows.
func (a *Adapter) Count(ctx context.Context, sessionID string, includeSuperseded bool) (int64, error) {
	q, err := querytmpl.CountQuery(sessionID, includeSuperseded)
	if err != nil {
		return 0, err
	}
	n, err := a.store.Count(ctx, q.Patterns, q.Negate, q.Filters)
	if err != nil {
		return 0, fmt.Errorf("count_query %s: %w", sessionID, err)
	}
	return n, nil
}

// Supersede marks old_id as superseded by new_id (which may be empty),
// enforcing session ownership.
func (a *Adapter) Supersede(ctx context.Context, sessionID, oldID, newID string) error {
	old, err := a.QueryByID(ctx, oldID)
	if err != nil {
		return err
	}
	if old.SessionID != sessionID {
		return memerr.ErrSessionMismatch
	}
	q, err := querytmpl.SupersedeMemory(oldID, newID, time.Now())
	if err != nil {
		return err
	}
	if _, err := a.store.Update(ctx, q.DeletePatterns, q.InsertTriples); err != nil {
		return fmt.Errorf("supersede_memory %s: %w", oldID, err)
	}
	return nil
}

// Delete removes every triple of id, enforcing session ownership.
// Missing ids are idempotently ok.
func (a *Adapter) Delete(ctx context.Context, sessionID, id string) error {
	item, err := a.QueryByID(ctx, id)
	if err != nil {
		if err == memerr.ErrNotFound {
			return nil
		}
		return err
	}
	if item.SessionID != sessionID {
		return memerr.ErrSessionMismatch
	}
	q, err := querytmpl.DeleteMemory(id)
	if err != nil {
		return err
	}
	if _, err := a.store.Delete(ctx, q.DeletePatterns[0]); err != nil {
		return fmt.Errorf("delete_memory %s: %w", id, err)
	}
	return nil
}

// RecordAccess best-effort increments access_count and sets
// last_accessed; any failure (missing id, session mismatch, store
// error) is swallowed to a no-op since access tracking never blocks
// reads.
func (a *Adapter) RecordAccess(ctx context.Context, sessionID, id string) {
	item, err := a.QueryByID(ctx, id)
	if err != nil || item.SessionID != sessionID {
		return
	}
	q, err := querytmpl.RecordAccess(id, item.AccessCount+1, time.Now())
	if err != nil {
		return
	}
	if _, err := a.store.Update(ctx, q.DeletePatterns, q.InsertTriples); err != nil {
		L_warn("memory: record_access failed", "id", id, "error", err)
	}
}

// GetStats computes the single-pass session aggregate.
func (a *Adapter) GetStats(ctx context.Context, sessionID string) (Stats, error) {
	all, err := a.QueryBySession(ctx, sessionID, QueryOptions{IncludeSuperseded: true})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{ByType: map[string]int64{}, ByConfidence: map[string]int64{}}
	for _, item := range all {
		if !item.IsActive() {
			stats.SupersededCount++
			continue
		}
		stats.TotalCount++
		stats.ByType[item.MemoryType]++
		stats.ByConfidence[string(memtype.ConfidenceBandFromScore(item.Confidence))]++
		if item.HasEvidence() {
			stats.WithEvidence++
		}
		if item.HasRationale() {
			stats.WithRationale++
		}
	}
	return stats, nil
}

func parseFloatValue(s string) (float64, bool) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err == nil
}

func parseIntValue(s string) (int64, bool) {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err == nil
}
