// Package actions is the callable action surface: remember, recall, and
// forget. Each validates and clamps its parameters against the declared
// contract, forwards to the facade, formats a plain result struct, and
// emits a telemetry event. Collapsed here to three concrete Go functions
// since LLM tool registration/dispatch is out of scope.
package actions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/roelfdiedericks/memoryengine/internal/facade"
	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memory"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/telemetry"

	. "github.com/roelfdiedericks/memoryengine/internal/logging"
)

const (
	maxContentBytes = 2000
	minRecallLimit  = 1
	maxRecallLimit  = 50
)

// Surface is the callable action surface over a facade, instrumented
// with telemetry.
type Surface struct {
	facade *facade.Facade
	tel    *telemetry.Telemetry
}

// New wraps f, emitting telemetry through tel.
func New(f *facade.Facade, tel *telemetry.Telemetry) *Surface {
	return &Surface{facade: f, tel: tel}
}

// RememberInput is the remember action's parameter set. MemoryID may be
// left empty to auto-generate a fresh 24-char hex id.
type RememberInput struct {
	SessionID    string
	MemoryID     string
	Content      string
	MemoryType   string
	Confidence   float64
	SourceType   string
	AgentID      string
	ProjectID    string
	Rationale    string
	EvidenceRefs []string
}

// RememberResult is remember's tool-return shape.
type RememberResult struct {
	ID    string
	Error string
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func generateHexID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Remember validates and clamps in, generating a fresh id if none is
// supplied, then persists the record via the facade.
func (s *Surface) Remember(ctx context.Context, in RememberInput) (result RememberResult, err error) {
	done := s.tel.Track("remember")
	defer done(&err)

	id := in.MemoryID
	if id == "" {
		id, err = generateHexID()
		if err != nil {
			return RememberResult{Error: err.Error()}, err
		}
	}
	if !memtype.ValidLocalName(id, 64) {
		err = memerr.ErrInvalidMemoryID
		return RememberResult{Error: err.Error()}, err
	}
	if !memtype.ValidLocalName(in.SessionID, 64) {
		err = memerr.ErrInvalidSessionID
		return RememberResult{Error: err.Error()}, err
	}

	item := memory.Item{
		ID:           id,
		Content:      truncateBytes(in.Content, maxContentBytes),
		MemoryType:   in.MemoryType,
		Confidence:   clampConfidence(in.Confidence),
		SourceType:   in.SourceType,
		SessionID:    in.SessionID,
		AgentID:      in.AgentID,
		ProjectID:    in.ProjectID,
		Rationale:    in.Rationale,
		EvidenceRefs: in.EvidenceRefs,
		CreatedAt:    time.Now(),
	}

	persistedID, perr := s.facade.Persist(ctx, item)
	if perr != nil {
		err = perr
		L_warn("actions: remember failed", "session", in.SessionID, "error", err)
		return RememberResult{Error: err.Error()}, err
	}

	L_info("actions: remembered", "session", in.SessionID, "id", persistedID, "type", in.MemoryType)
	return RememberResult{ID: persistedID}, nil
}

// RecallInput is the recall action's parameter set.
type RecallInput struct {
	SessionID   string
	ContextHint string
	Limit       int
	Options     memory.ContextOptions
}

// RecallResult is recall's tool-return shape.
type RecallResult struct {
	Memories []memory.ScoredItem
	Error    string
}

func clampRecallLimit(limit int) int {
	if limit < minRecallLimit {
		return minRecallLimit
	}
	if limit > maxRecallLimit {
		return maxRecallLimit
	}
	return limit
}

// Recall scores and returns the most relevant memories for contextHint,
// firing a best-effort record_access against every returned memory.
func (s *Surface) Recall(ctx context.Context, in RecallInput) (result RecallResult, err error) {
	done := s.tel.Track("recall")
	defer done(&err)

	opts := in.Options
	opts.MaxResults = clampRecallLimit(in.Limit)

	scored, gerr := s.facade.GetContext(ctx, in.SessionID, in.ContextHint, opts)
	if gerr != nil {
		err = gerr
		L_warn("actions: recall failed", "session", in.SessionID, "error", err)
		return RecallResult{Error: err.Error()}, err
	}

	for _, item := range scored {
		s.facade.RecordAccess(ctx, in.SessionID, item.Item.ID)
	}

	L_info("actions: recalled", "session", in.SessionID, "count", len(scored))
	return RecallResult{Memories: scored}, nil
}

// ForgetInput is the forget action's parameter set. ReplacementID is
// optional; when set it must resolve in the same session.
type ForgetInput struct {
	SessionID     string
	MemoryID      string
	ReplacementID string
}

// ForgetResult is forget's tool-return shape.
type ForgetResult struct {
	OK    bool
	Error string
}

// Forget supersedes MemoryID with ReplacementID (if given), enforcing
// that a supplied replacement resolves in the same session first.
func (s *Surface) Forget(ctx context.Context, in ForgetInput) (result ForgetResult, err error) {
	done := s.tel.Track("forget")
	defer done(&err)

	if in.MemoryID == "" {
		err = memerr.ErrInvalidMemoryID
		return ForgetResult{Error: err.Error()}, err
	}

	if in.ReplacementID != "" {
		if _, gerr := s.facade.Get(ctx, in.SessionID, in.ReplacementID); gerr != nil {
			err = fmt.Errorf("replacement_id %s: %w", in.ReplacementID, gerr)
			return ForgetResult{Error: err.Error()}, err
		}
	}

	if serr := s.facade.Supersede(ctx, in.SessionID, in.MemoryID, in.ReplacementID); serr != nil {
		err = serr
		L_warn("actions: forget failed", "session", in.SessionID, "id", in.MemoryID, "error", err)
		return ForgetResult{Error: err.Error()}, err
	}

	L_info("actions: forgot", "session", in.SessionID, "id", in.MemoryID, "replacement", in.ReplacementID)
	return ForgetResult{OK: true}, nil
}
