package facade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memory"
	"github.com/roelfdiedericks/memoryengine/internal/storemgr"
)

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	mgr, err := storemgr.New(storemgr.Config{BasePath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.CloseAll(context.Background()) })
	return New(mgr)
}

func sampleItem(id, sessionID string) memory.Item {
	return memory.Item{
		ID:         id,
		Content:    "the build uses cgo sqlite",
		MemoryType: "fact",
		Confidence: 0.9,
		SourceType: "agent",
		SessionID:  sessionID,
		CreatedAt:  time.Now(),
	}
}

func TestFacadePersistOpensStoreOnDemand(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Persist(ctx, sampleItem("mem1", "sess-1"))
	require.NoError(t, err)

	item, err := f.Get(ctx, "sess-1", "mem1")
	require.NoError(t, err)
	require.Equal(t, "the build uses cgo sqlite", item.Content)
}

func TestFacadeReadAgainstUnopenedSessionFails(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.Query(context.Background(), "never-opened", memory.QueryOptions{})
	require.ErrorIs(t, err, memerr.ErrNotFound)
}

func TestFacadeGetRejectsCrossSession(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Persist(ctx, sampleItem("mem1", "sess-1"))
	require.NoError(t, err)

	_, err = f.Get(ctx, "sess-2", "mem1")
	require.ErrorIs(t, err, memerr.ErrNotFound)
}

func TestFacadeSupersedeAndDelete(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Persist(ctx, sampleItem("mem1", "sess-1"))
	require.NoError(t, err)
	_, err = f.Persist(ctx, sampleItem("mem2", "sess-1"))
	require.NoError(t, err)
	require.NoError(t, f.Supersede(ctx, "sess-1", "mem1", "mem2"))

	n, err := f.Count(ctx, "sess-1", false)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, f.Delete(ctx, "sess-1", "mem2"))
	require.NoError(t, f.Delete(ctx, "sess-1", "mem2"), "delete must be idempotent")
}

func TestFacadeRecordAccessNeverErrors(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	f.RecordAccess(ctx, "never-opened", "mem1") // must not panic

	_, err := f.Persist(ctx, sampleItem("mem1", "sess-1"))
	require.NoError(t, err)
	f.RecordAccess(ctx, "sess-1", "mem1")

	item, err := f.Get(ctx, "sess-1", "mem1")
	require.NoError(t, err)
	require.Equal(t, int64(1), item.AccessCount)
}

func TestFacadeHealth(t *testing.T) {
	f := newTestFacade(t)
	require.NoError(t, f.Health(context.Background(), "sess-1"))
}

func TestFacadeGetContextAndStats(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	_, err := f.Persist(ctx, sampleItem("mem1", "sess-1"))
	require.NoError(t, err)

	stats, err := f.GetStats(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalCount)

	scored, err := f.GetContext(ctx, "sess-1", "cgo sqlite", memory.DefaultContextOptions())
	require.NoError(t, err)
	require.Len(t, scored, 1)
	require.Equal(t, "mem1", scored[0].Item.ID)
}

func TestFacadeCloseAllDoesNotPanic(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	_, err := f.Persist(ctx, sampleItem("mem1", "sess-1"))
	require.NoError(t, err)
	f.CloseAll(ctx)
}
