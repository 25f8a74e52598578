package memory

import (
	"context"
	"testing"
	"time"
)

func TestTokenizeLowercasesStripsAndDedupes(t *testing.T) {
	tokens := tokenize("The Build-Uses CGO sqlite3! sqlite3 a")
	want := []string{"the", "build", "uses", "cgo", "sqlite3"}
	for _, w := range want {
		if !tokens[w] {
			t.Errorf("tokenize() missing token %q in %v", w, tokens)
		}
	}
	if tokens["a"] {
		t.Error("tokenize() kept a single-byte token")
	}
}

func TestTextScoreEmptySideIsZero(t *testing.T) {
	if textScore(map[string]bool{}, map[string]bool{"a": true}) != 0 {
		t.Error("textScore() with empty ctx should be 0")
	}
	if textScore(map[string]bool{"a": true}, map[string]bool{}) != 0 {
		t.Error("textScore() with empty mem should be 0")
	}
}

func TestTextScoreFullOverlap(t *testing.T) {
	ctx := tokenize("sqlite cgo")
	mem := tokenize("sqlite cgo driver")
	score := textScore(ctx, mem)
	if score <= 0 || score > 1 {
		t.Errorf("textScore() = %v, want in (0,1]", score)
	}
}

func TestRecencyScoreDefaultsWhenNoTimestamps(t *testing.T) {
	if recencyScore(Item{}) != 0.5 {
		t.Errorf("recencyScore() with no timestamps = %v, want 0.5", recencyScore(Item{}))
	}
}

func TestRecencyScoreDecaysWithAge(t *testing.T) {
	recent := recencyScore(Item{CreatedAt: time.Now()})
	old := recencyScore(Item{CreatedAt: time.Now().Add(-30 * 24 * time.Hour)})
	if !(recent > old) {
		t.Errorf("recencyScore() recent=%v old=%v, want recent > old", recent, old)
	}
}

func TestGetContextRanksByRelevance(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	relevant := sampleItem("mem1", "sess-1")
	relevant.Content = "the build uses cgo sqlite driver"
	relevant.CreatedAt = time.Now()
	if _, err := a.Persist(ctx, relevant); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	irrelevant := sampleItem("mem2", "sess-1")
	irrelevant.Content = "completely unrelated content about something else"
	irrelevant.CreatedAt = time.Now().Add(-48 * time.Hour)
	if _, err := a.Persist(ctx, irrelevant); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	scored, err := a.GetContext(ctx, "sess-1", "cgo sqlite driver", DefaultContextOptions())
	if err != nil {
		t.Fatalf("GetContext() error: %v", err)
	}
	if len(scored) == 0 {
		t.Fatal("GetContext() returned no results")
	}
	if scored[0].Item.ID != "mem1" {
		t.Errorf("GetContext() top result = %q, want mem1", scored[0].Item.ID)
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("GetContext() not sorted descending at index %d", i)
		}
	}
}

func TestGetContextRespectsMaxResults(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		item := sampleItem(itemID(i), "sess-1")
		item.Content = "cgo sqlite driver build"
		if _, err := a.Persist(ctx, item); err != nil {
			t.Fatalf("Persist() error: %v", err)
		}
	}

	opts := DefaultContextOptions()
	opts.MaxResults = 3
	scored, err := a.GetContext(ctx, "sess-1", "cgo sqlite driver", opts)
	if err != nil {
		t.Fatalf("GetContext() error: %v", err)
	}
	if len(scored) != 3 {
		t.Errorf("GetContext() returned %d results, want 3", len(scored))
	}
}

func TestGetContextEmptyHintReturnsEmpty(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	item := sampleItem("mem1", "sess-1")
	item.Confidence = 1.0
	if _, err := a.Persist(ctx, item); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	scored, err := a.GetContext(ctx, "sess-1", "   ", DefaultContextOptions())
	if err != nil {
		t.Fatalf("GetContext() error: %v", err)
	}
	if len(scored) != 0 {
		t.Errorf("GetContext() with blank hint = %v, want empty despite high confidence", scored)
	}
}

func itemID(i int) string {
	digits := "0123456789"
	return "mem" + string(digits[i])
}
