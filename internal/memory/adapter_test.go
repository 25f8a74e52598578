package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/triplestore"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	dir := t.TempDir()
	store, err := triplestore.Open(context.Background(), filepath.Join(dir, "mem.db"), true)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func sampleItem(id, sessionID string) Item {
	return Item{
		ID:         id,
		Content:    "the build uses cgo sqlite",
		MemoryType: "fact",
		Confidence: 0.9,
		SourceType: "agent",
		SessionID:  sessionID,
		CreatedAt:  time.Now(),
	}
}

func TestPersistAndQueryByID(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	item, err := a.QueryByID(ctx, "mem1")
	if err != nil {
		t.Fatalf("QueryByID() error: %v", err)
	}
	if item.Content != "the build uses cgo sqlite" || item.MemoryType != "fact" {
		t.Errorf("QueryByID() = %+v, unexpected", item)
	}
}

func TestPersistOverwritesExistingID(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	first := sampleItem("mem1", "sess-1")
	first.EvidenceRefs = []string{"mem-old-ref"}
	if _, err := a.Persist(ctx, first); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	second := sampleItem("mem1", "sess-1")
	second.Content = "the build now uses embedded sqlite"
	second.Confidence = 0.4
	second.EvidenceRefs = nil
	if _, err := a.Persist(ctx, second); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	item, err := a.QueryByID(ctx, "mem1")
	if err != nil {
		t.Fatalf("QueryByID() error: %v", err)
	}
	if item.Content != "the build now uses embedded sqlite" {
		t.Errorf("Content = %q, want last-write to win", item.Content)
	}
	if item.Confidence != 0.4 {
		t.Errorf("Confidence = %v, want 0.4 (last write), not a residual from the first persist", item.Confidence)
	}
	if len(item.EvidenceRefs) != 0 {
		t.Errorf("EvidenceRefs = %v, want empty (re-persist must not accumulate old refs)", item.EvidenceRefs)
	}
}

func TestQueryByIDScopedRejectsCrossSession(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	if _, err := a.QueryByIDScoped(ctx, "sess-2", "mem1"); err != memerr.ErrNotFound {
		t.Errorf("QueryByIDScoped() cross-session error = %v, want ErrNotFound", err)
	}
	if _, err := a.QueryByIDScoped(ctx, "sess-1", "mem1"); err != nil {
		t.Errorf("QueryByIDScoped() same-session error = %v, want nil", err)
	}
}

func TestQueryByIDMissing(t *testing.T) {
	a := newTestAdapter(t)
	if _, err := a.QueryByID(context.Background(), "nope"); err != memerr.ErrNotFound {
		t.Errorf("QueryByID() missing error = %v, want ErrNotFound", err)
	}
}

func TestQueryBySessionOrdersByCreatedDescending(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	older := sampleItem("mem1", "sess-1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := sampleItem("mem2", "sess-1")
	newer.CreatedAt = time.Now()

	if _, err := a.Persist(ctx, older); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if _, err := a.Persist(ctx, newer); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	items, err := a.QueryBySession(ctx, "sess-1", QueryOptions{})
	if err != nil {
		t.Fatalf("QueryBySession() error: %v", err)
	}
	if len(items) != 2 || items[0].ID != "mem2" {
		t.Errorf("QueryBySession() = %v, want [mem2, mem1]", items)
	}
}

func TestQueryBySessionExcludesSupersededByDefault(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := a.Supersede(ctx, "sess-1", "mem1", ""); err != nil {
		t.Fatalf("Supersede() error: %v", err)
	}

	items, err := a.QueryBySession(ctx, "sess-1", QueryOptions{})
	if err != nil {
		t.Fatalf("QueryBySession() error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("QueryBySession() = %v, want empty after supersede", items)
	}

	all, err := a.QueryBySession(ctx, "sess-1", QueryOptions{IncludeSuperseded: true})
	if err != nil {
		t.Fatalf("QueryBySession(includeSuperseded) error: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("QueryBySession(includeSuperseded) = %v, want 1", all)
	}
}

func TestSupersedeSetsFields(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if _, err := a.Persist(ctx, sampleItem("mem2", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := a.Supersede(ctx, "sess-1", "mem1", "mem2"); err != nil {
		t.Fatalf("Supersede() error: %v", err)
	}

	item, err := a.QueryByID(ctx, "mem1")
	if err != nil {
		t.Fatalf("QueryByID() error: %v", err)
	}
	if item.SupersededBy != "mem2" {
		t.Errorf("SupersededBy = %q, want mem2", item.SupersededBy)
	}
	if item.SupersededAt.IsZero() {
		t.Error("SupersededAt not set")
	}
}

func TestSupersedeRejectsSessionMismatch(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := a.Supersede(ctx, "sess-2", "mem1", ""); err != memerr.ErrSessionMismatch {
		t.Errorf("Supersede() cross-session error = %v, want ErrSessionMismatch", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := a.Delete(ctx, "sess-1", "mem1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := a.Delete(ctx, "sess-1", "mem1"); err != nil {
		t.Errorf("Delete() second call error = %v, want nil (idempotent)", err)
	}
	if _, err := a.QueryByID(ctx, "mem1"); err != memerr.ErrNotFound {
		t.Errorf("QueryByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRejectsSessionMismatch(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := a.Delete(ctx, "sess-2", "mem1"); err != memerr.ErrSessionMismatch {
		t.Errorf("Delete() cross-session error = %v, want ErrSessionMismatch", err)
	}
}

func TestRecordAccessIncrementsCount(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	a.RecordAccess(ctx, "sess-1", "mem1")
	a.RecordAccess(ctx, "sess-1", "mem1")

	item, err := a.QueryByID(ctx, "mem1")
	if err != nil {
		t.Fatalf("QueryByID() error: %v", err)
	}
	if item.AccessCount != 2 {
		t.Errorf("AccessCount = %d, want 2", item.AccessCount)
	}
	if item.LastAccessed.IsZero() {
		t.Error("LastAccessed not set")
	}
}

func TestRecordAccessSwallowsMissingID(t *testing.T) {
	a := newTestAdapter(t)
	a.RecordAccess(context.Background(), "sess-1", "nope") // must not panic
}

func TestCount(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if _, err := a.Persist(ctx, sampleItem("mem1", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if _, err := a.Persist(ctx, sampleItem("mem2", "sess-1")); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	if err := a.Supersede(ctx, "sess-1", "mem1", ""); err != nil {
		t.Fatalf("Supersede() error: %v", err)
	}

	n, err := a.Count(ctx, "sess-1", false)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	n, err = a.Count(ctx, "sess-1", true)
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count(includeSuperseded) = %d, want 2", n)
	}
}

func TestGetStats(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	fact := sampleItem("mem1", "sess-1")
	fact.Rationale = "observed in go.mod"
	fact.EvidenceRefs = []string{"mem-mem0"}
	if _, err := a.Persist(ctx, fact); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}
	decision := sampleItem("mem2", "sess-1")
	decision.MemoryType = "decision"
	decision.Confidence = 0.4
	if _, err := a.Persist(ctx, decision); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	stats, err := a.GetStats(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.TotalCount != 2 {
		t.Errorf("TotalCount = %d, want 2", stats.TotalCount)
	}
	if stats.ByType["fact"] != 1 || stats.ByType["decision"] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if stats.ByConfidence["high"] != 1 || stats.ByConfidence["low"] != 1 {
		t.Errorf("ByConfidence = %v", stats.ByConfidence)
	}
	if stats.WithEvidence != 1 || stats.WithRationale != 1 {
		t.Errorf("WithEvidence=%d WithRationale=%d, want 1,1", stats.WithEvidence, stats.WithRationale)
	}
}
