package actions

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roelfdiedericks/memoryengine/internal/facade"
	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/storemgr"
	"github.com/roelfdiedericks/memoryengine/internal/telemetry"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	mgr, err := storemgr.New(storemgr.Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("storemgr.New() error: %v", err)
	}
	t.Cleanup(func() { mgr.CloseAll(context.Background()) })
	return New(facade.New(mgr), telemetry.New(prometheus.NewRegistry()))
}

func TestRememberGeneratesIDWhenOmitted(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()

	result, err := s.Remember(ctx, RememberInput{
		SessionID:  "sess-1",
		Content:    "the build uses cgo sqlite",
		MemoryType: "fact",
		Confidence: 0.9,
		SourceType: "agent",
	})
	if err != nil {
		t.Fatalf("Remember() error: %v", err)
	}
	if len(result.ID) != 24 {
		t.Errorf("Remember() generated id %q, want 24 hex chars", result.ID)
	}
}

func TestRememberClampsConfidenceAndContent(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()

	longContent := make([]byte, maxContentBytes+500)
	for i := range longContent {
		longContent[i] = 'a'
	}

	result, err := s.Remember(ctx, RememberInput{
		SessionID:  "sess-1",
		MemoryID:   "mem1",
		Content:    string(longContent),
		MemoryType: "fact",
		Confidence: 5.0,
		SourceType: "agent",
	})
	if err != nil {
		t.Fatalf("Remember() error: %v", err)
	}
	if result.ID != "mem1" {
		t.Errorf("Remember() id = %q, want mem1", result.ID)
	}

	item, gerr := s.facade.Get(ctx, "sess-1", "mem1")
	if gerr != nil {
		t.Fatalf("Get() error: %v", gerr)
	}
	if len(item.Content) != maxContentBytes {
		t.Errorf("Content length = %d, want %d", len(item.Content), maxContentBytes)
	}
	if item.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 (clamped)", item.Confidence)
	}
}

func TestRememberRejectsInvalidSessionID(t *testing.T) {
	s := newTestSurface(t)
	_, err := s.Remember(context.Background(), RememberInput{
		SessionID: "has a space",
		Content:   "x",
	})
	if err != memerr.ErrInvalidSessionID {
		t.Errorf("Remember() error = %v, want ErrInvalidSessionID", err)
	}
}

func TestRecallClampsLimitAndRecordsAccess(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()

	if _, err := s.Remember(ctx, RememberInput{
		SessionID:  "sess-1",
		MemoryID:   "mem1",
		Content:    "cgo sqlite build driver",
		MemoryType: "fact",
		Confidence: 0.9,
		SourceType: "agent",
	}); err != nil {
		t.Fatalf("Remember() error: %v", err)
	}

	result, err := s.Recall(ctx, RecallInput{SessionID: "sess-1", ContextHint: "cgo sqlite", Limit: 500})
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}
	if len(result.Memories) != 1 {
		t.Fatalf("Recall() = %v, want 1 memory", result.Memories)
	}

	item, gerr := s.facade.Get(ctx, "sess-1", "mem1")
	if gerr != nil {
		t.Fatalf("Get() error: %v", gerr)
	}
	if item.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1 after recall", item.AccessCount)
	}
}

func TestRecallEmptyHintReturnsEmpty(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()

	if _, err := s.Remember(ctx, RememberInput{
		SessionID:  "sess-1",
		MemoryID:   "mem1",
		Content:    "cgo sqlite build driver",
		MemoryType: "fact",
		Confidence: 0.9,
		SourceType: "agent",
	}); err != nil {
		t.Fatalf("Remember() error: %v", err)
	}

	result, err := s.Recall(ctx, RecallInput{SessionID: "sess-1", ContextHint: ""})
	if err != nil {
		t.Fatalf("Recall() error: %v", err)
	}
	if len(result.Memories) != 0 {
		t.Errorf("Recall() with empty hint = %v, want no memories", result.Memories)
	}
}

func TestForgetRejectsUnresolvedReplacement(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()

	if _, err := s.Remember(ctx, RememberInput{
		SessionID:  "sess-1",
		MemoryID:   "mem1",
		Content:    "x",
		MemoryType: "fact",
		SourceType: "agent",
	}); err != nil {
		t.Fatalf("Remember() error: %v", err)
	}

	_, err := s.Forget(ctx, ForgetInput{SessionID: "sess-1", MemoryID: "mem1", ReplacementID: "nope"})
	if err == nil {
		t.Error("Forget() with unresolved replacement_id should error")
	}
}

func TestForgetSupersedes(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()

	if _, err := s.Remember(ctx, RememberInput{SessionID: "sess-1", MemoryID: "mem1", Content: "x", MemoryType: "fact", SourceType: "agent"}); err != nil {
		t.Fatalf("Remember() error: %v", err)
	}
	if _, err := s.Remember(ctx, RememberInput{SessionID: "sess-1", MemoryID: "mem2", Content: "y", MemoryType: "fact", SourceType: "agent"}); err != nil {
		t.Fatalf("Remember() error: %v", err)
	}

	result, err := s.Forget(ctx, ForgetInput{SessionID: "sess-1", MemoryID: "mem1", ReplacementID: "mem2"})
	if err != nil {
		t.Fatalf("Forget() error: %v", err)
	}
	if !result.OK {
		t.Error("Forget() result.OK = false, want true")
	}
}
