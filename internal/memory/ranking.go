package memory

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Scoring weights: access weight, confidence weight, and text weight
// (the remainder after access/confidence/recency).
const (
	accessWeight     = 0.1
	confidenceWeight = 0.2
)

var nonTokenChar = regexp.MustCompile(`[^a-z0-9\s]`)

// tokenize lowercases s, replaces every character outside [a-z0-9\s]
// with a space, splits on whitespace, drops tokens shorter than 2
// bytes, and dedupes into a set.
func tokenize(s string) map[string]bool {
	lowered := strings.ToLower(s)
	cleaned := nonTokenChar.ReplaceAllString(lowered, " ")
	set := make(map[string]bool)
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) >= 2 {
			set[tok] = true
		}
	}
	return set
}

func textScore(ctxTokens, memTokens map[string]bool) float64 {
	if len(ctxTokens) == 0 || len(memTokens) == 0 {
		return 0
	}
	overlap := 0
	for tok := range ctxTokens {
		if memTokens[tok] {
			overlap++
		}
	}
	if overlap == 0 {
		return 0
	}
	cc := float64(overlap) / float64(len(ctxTokens))
	mc := float64(overlap) / float64(len(memTokens))
	return 0.7*cc + 0.3*mc
}

func recencyScore(item Item) float64 {
	var anchor time.Time
	switch {
	case !item.LastAccessed.IsZero():
		anchor = item.LastAccessed
	case !item.CreatedAt.IsZero():
		anchor = item.CreatedAt
	default:
		return 0.5
	}
	secondsAgo := time.Since(anchor).Seconds()
	if secondsAgo < 0 {
		secondsAgo = 0
	}
	return math.Exp(-secondsAgo / 604800)
}

func typeIncluded(item Item, includeTypes []string) bool {
	if len(includeTypes) == 0 {
		return true
	}
	for _, t := range includeTypes {
		if item.MemoryType == t {
			return true
		}
	}
	return false
}

// GetContext scores every eligible candidate in the session against
// contextHint and returns up to opts.MaxResults scored items in
// descending score order, dropping non-positive scores.
func (a *Adapter) GetContext(ctx context.Context, sessionID, contextHint string, opts ContextOptions) ([]ScoredItem, error) {
	if strings.TrimSpace(contextHint) == "" {
		return nil, nil
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultContextOptions().MaxResults
	}
	if opts.RecencyWeight <= 0 {
		opts.RecencyWeight = DefaultContextOptions().RecencyWeight
	}

	candidates, err := a.QueryBySession(ctx, sessionID, QueryOptions{
		MinConfidence:     opts.MinConfidence,
		IncludeSuperseded: opts.IncludeSuperseded,
	})
	if err != nil {
		return nil, err
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if typeIncluded(c, opts.IncludeTypes) {
			filtered = append(filtered, c)
		}
	}
	candidates = filtered
	if len(candidates) == 0 {
		return nil, nil
	}

	var maxAccess int64 = 1
	for _, c := range candidates {
		if c.AccessCount > maxAccess {
			maxAccess = c.AccessCount
		}
	}

	rw := opts.RecencyWeight
	cw := confidenceWeight
	aw := accessWeight
	tw := 1.0 - aw - cw - rw

	ctxTokens := tokenize(contextHint)

	scored := make([]ScoredItem, 0, len(candidates))
	for _, c := range candidates {
		memTokens := tokenize(c.Content + " " + c.Rationale)
		text := textScore(ctxTokens, memTokens)
		recency := recencyScore(c)
		confidence := c.Confidence
		access := float64(c.AccessCount) / float64(maxAccess)

		score := tw*text + rw*recency + cw*confidence + aw*access
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredItem{Item: c, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > opts.MaxResults {
		scored = scored[:opts.MaxResults]
	}
	return scored, nil
}
