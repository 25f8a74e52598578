package memory

import (
	"context"
	"fmt"

	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/querytmpl"
	"github.com/roelfdiedericks/memoryengine/internal/triplestore"
)

const (
	minTraversalDepth = 1
	maxTraversalDepth = 5
	defaultRelatedLimit = 10
)

func clampDepth(depth int) int {
	if depth < minTraversalDepth {
		return minTraversalDepth
	}
	if depth > maxTraversalDepth {
		return maxTraversalDepth
	}
	return depth
}

func clampRelatedLimit(limit int) int {
	if limit <= 0 {
		return defaultRelatedLimit
	}
	return limit
}

// QueryRelated implements a depth-first traversal: starting from
// start_id, follows one relationship kind up to depth levels, never
// revisiting a memory already seen at an earlier level or an earlier
// sibling branch, and returns the accumulated list in traversal order.
func (a *Adapter) QueryRelated(ctx context.Context, sessionID, startID string, relationship memtype.Relationship, opts RelatedOptions) ([]Item, error) {
	opts.Depth = clampDepth(opts.Depth)
	opts.Limit = clampRelatedLimit(opts.Limit)

	start, err := a.QueryByIDScoped(ctx, sessionID, startID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{startID: true}
	var result []Item

	var descend func(current Item, depth int) error
	descend = func(current Item, depth int) error {
		if depth == 0 {
			return nil
		}
		ids, err := a.relatedIDs(ctx, sessionID, current, relationship, opts.IncludeSuperseded)
		if err != nil {
			return err
		}

		var candidates []string
		for _, id := range ids {
			if visited[id] {
				continue
			}
			candidates = append(candidates, id)
			if len(candidates) == opts.Limit {
				break
			}
		}

		var resolved []Item
		for _, id := range candidates {
			item, err := a.QueryByIDScoped(ctx, sessionID, id)
			if err != nil {
				continue
			}
			resolved = append(resolved, item)
		}

		for _, item := range resolved {
			visited[item.ID] = true
		}

		for _, item := range resolved {
			result = append(result, item)
			if err := descend(item, depth-1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := descend(start, opts.Depth); err != nil {
		return nil, err
	}
	return result, nil
}

// relatedIDs computes the directly related memory ids for one
// relationship kind from current, applying the per-kind rule. For the
// query-backed kinds (supersedes, same_type, same_project) the source
// itself is dropped from the results here, since triplestore's pattern
// language has no "not equal to a bound value" primitive; for
// derived_from and superseded_by the ids are returned as found and the
// caller's visited set keeps the source out.
func (a *Adapter) relatedIDs(ctx context.Context, sessionID string, current Item, relationship memtype.Relationship, includeSuperseded bool) ([]string, error) {
	switch relationship {
	case memtype.RelDerivedFrom:
		return current.DerivedFromIDs(), nil

	case memtype.RelSupersededBy:
		if current.SupersededBy == "" {
			return nil, nil
		}
		return []string{current.SupersededBy}, nil

	case memtype.RelSupersedes:
		q, err := querytmpl.QuerySupersedes(sessionID, current.ID)
		if err != nil {
			return nil, err
		}
		return a.selectRelatedIDs(ctx, q, current.ID)

	case memtype.RelSameType:
		q, err := querytmpl.QuerySameType(sessionID, current.ID, memtype.MemoryType(current.MemoryType), includeSuperseded)
		if err != nil {
			return nil, err
		}
		return a.selectRelatedIDs(ctx, q, current.ID)

	case memtype.RelSameProject:
		if current.ProjectID == "" {
			return nil, nil
		}
		q, err := querytmpl.QuerySameProject(sessionID, current.ID, current.ProjectID, includeSuperseded)
		if err != nil {
			return nil, err
		}
		return a.selectRelatedIDs(ctx, q, current.ID)

	default:
		return nil, fmt.Errorf("unknown relationship kind %q", relationship)
	}
}

func (a *Adapter) selectRelatedIDs(ctx context.Context, q *querytmpl.Query, excludeID string) ([]string, error) {
	rows, err := a.store.Select(ctx, q.Patterns, q.Negate, q.Filters, q.Vars, triplestore.SelectOptions{})
	if err != nil {
		return nil, fmt.Errorf("query_related: %w", err)
	}
	ids := a.resolveIDs(ctx, rows, "m")
	out := ids[:0]
	for _, id := range ids {
		if id != excludeID {
			out = append(out, id)
		}
	}
	return out, nil
}
