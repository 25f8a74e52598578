// Package memory implements the operational adapter (persist,
// query-by-session, query-by-type, query-by-id, supersede, delete,
// record-access, count, stats, related-traversal, context ranking)
// between the in-process Item representation and the triple store.
package memory

import "time"

// Item is the core entity every operation reads or writes. It is a
// plain struct with no cycles; callers get a copy, never a shared
// pointer into store-owned state.
type Item struct {
	ID            string
	Content       string
	MemoryType    string // a memtype.MemoryType tag, held as its string value
	Confidence    float64
	SourceType    string
	SessionID     string
	AgentID       string
	ProjectID     string
	Rationale     string
	EvidenceRefs  []string
	CreatedAt     time.Time
	SupersededBy  string
	SupersededAt  time.Time
	AccessCount   int64
	LastAccessed  time.Time
}

// IsActive reports whether the item has not been superseded.
func (it Item) IsActive() bool { return it.SupersededAt.IsZero() }

// HasEvidence reports whether the item carries any evidence references.
func (it Item) HasEvidence() bool { return len(it.EvidenceRefs) > 0 }

// HasRationale reports whether the item carries non-empty rationale.
func (it Item) HasRationale() bool { return it.Rationale != "" }

// DerivedFromIDs returns the subset of EvidenceRefs that name other
// in-store memories (the "mem-" prefix convention).
func (it Item) DerivedFromIDs() []string {
	const prefix = "mem-"
	var ids []string
	for _, ref := range it.EvidenceRefs {
		if len(ref) > len(prefix) && ref[:len(prefix)] == prefix {
			ids = append(ids, ref[len(prefix):])
		}
	}
	return ids
}

// Stats is the single-pass aggregate returned by GetStats.
type Stats struct {
	TotalCount      int64
	SupersededCount int64
	ByType          map[string]int64
	ByConfidence    map[string]int64
	WithEvidence    int64
	WithRationale   int64
}

// ScoredItem pairs a ranked item with its context-ranking score.
type ScoredItem struct {
	Item  Item
	Score float64
}

// QueryOptions configures query_by_session / query_by_type.
type QueryOptions struct {
	MinConfidence     float64
	Limit             int
	IncludeSuperseded bool
	Type              string // empty means "any type"
}

// RelatedOptions configures query_related.
type RelatedOptions struct {
	Depth             int
	Limit             int
	IncludeSuperseded bool
}

// ContextOptions configures get_context.
type ContextOptions struct {
	MaxResults        int
	MinConfidence     float64
	RecencyWeight     float64
	IncludeSuperseded bool
	IncludeTypes      []string
}

// DefaultContextOptions returns the documented default context options.
func DefaultContextOptions() ContextOptions {
	return ContextOptions{
		MaxResults:    5,
		MinConfidence: 0.5,
		RecencyWeight: 0.3,
	}
}
