package querytmpl

import (
	"fmt"
	"strings"
	"time"

	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/triplestore"
)

// Kind names the nine read/write query shapes the adapter issues.
type Kind string

const (
	KindInsertMemory    Kind = "insert_memory"
	KindQueryBySession  Kind = "query_by_session"
	KindQueryByType     Kind = "query_by_type"
	KindQueryByID       Kind = "query_by_id"
	KindSupersedeMemory Kind = "supersede_memory"
	KindDeleteMemory    Kind = "delete_memory"
	KindRecordAccess    Kind = "record_access"
	KindCountQuery      Kind = "count_query"
	KindQueryRelated    Kind = "query_related"
)

// Query is the artifact every template produces: either a write (Insert /
// Delete+Insert) or a read (Select / Ask) over the triple store, plus a
// rendered text form for logging and tests.
type Query struct {
	Kind Kind

	InsertTriples  []triplestore.Triple
	DeletePatterns []triplestore.TriplePattern

	Patterns []triplestore.TriplePattern
	Negate   []triplestore.TriplePattern
	Filters  []triplestore.ValueFilter
	Vars     []string
	OrderBy  string
	Desc     bool
	Limit    int

	text string
}

// Text renders the pseudo-SPARQL form of the query for logs and tests.
func (q *Query) Text() string { return q.text }

const prefixBlock = "PREFIX mem: <" + memtype.Namespace + "> PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> PREFIX xsd: <http://www.w3.org/2001/XMLSchema#> "

// clampLimit applies the default cap: a non-positive or over-large
// limit is clamped to DefaultLimit.
func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultLimit {
		return DefaultLimit
	}
	return limit
}

// InsertMemory builds the INSERT DATA for a full memory record.
func InsertMemory(id, content string, memType memtype.MemoryType, confidence float64, sourceType memtype.SourceType, sessionID, agentID, projectID, rationale string, evidenceRefs []string, createdAt time.Time) (*Query, error) {
	if err := validateID(id, 128); err != nil {
		return nil, err
	}
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	if len(content) < 1 || len(content) > 2000 {
		return nil, fmt.Errorf("%w: content length out of bounds", memerr.ErrInvalidQueryInput)
	}
	classIRI, err := memtype.MemoryTypeIRI(memType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrInvalidQueryInput, err)
	}
	sourceIRI, err := memtype.SourceTypeIRI(sourceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrInvalidQueryInput, err)
	}
	escapedContent, err := escapeLiteral(content)
	if err != nil {
		return nil, err
	}

	subj := memtype.MemoryIRI(id)
	triples := []triplestore.Triple{
		{Subject: subj, Predicate: memtype.PredType, Object: triplestore.IRI(classIRI)},
		{Subject: subj, Predicate: memtype.PredContent, Object: triplestore.PlainLiteral(escapedContent)},
		{Subject: subj, Predicate: memtype.PredConfidence, Object: triplestore.TypedLiteral(formatDecimal(clampConfidence(confidence)), "xsd:decimal")},
		{Subject: subj, Predicate: memtype.PredSourceType, Object: triplestore.IRI(sourceIRI)},
		{Subject: subj, Predicate: memtype.PredSessionID, Object: triplestore.PlainLiteral(sessionID)},
		{Subject: subj, Predicate: memtype.PredCreatedAt, Object: triplestore.TypedLiteral(formatDateTime(createdAt), "xsd:dateTime")},
		{Subject: subj, Predicate: memtype.PredAccessCount, Object: triplestore.TypedLiteral("0", "xsd:integer")},
	}

	if agentID != "" {
		triples = append(triples, triplestore.Triple{Subject: subj, Predicate: memtype.PredAgentID, Object: triplestore.PlainLiteral(agentID)})
	}
	if projectID != "" {
		triples = append(triples, triplestore.Triple{Subject: subj, Predicate: memtype.PredProjectID, Object: triplestore.PlainLiteral(projectID)})
	}
	if rationale != "" {
		escapedRationale, err := escapeLiteral(rationale)
		if err != nil {
			return nil, err
		}
		triples = append(triples, triplestore.Triple{Subject: subj, Predicate: memtype.PredRationale, Object: triplestore.PlainLiteral(escapedRationale)})
	}
	for _, ref := range evidenceRefs {
		escapedRef, err := escapeLiteral(ref)
		if err != nil {
			return nil, err
		}
		triples = append(triples, triplestore.Triple{Subject: subj, Predicate: memtype.PredEvidenceRef, Object: triplestore.PlainLiteral(escapedRef)})
	}

	return &Query{
		Kind:          KindInsertMemory,
		InsertTriples: triples,
		text:          fmt.Sprintf("%sINSERT DATA { <%s> mem:type <%s> ; mem:content %q ; ... }", prefixBlock, subj, classIRI, escapedContent),
	}, nil
}

// clampConfidence clamps a real confidence value into [0.0, 1.0] on ingress.
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// activePatterns returns the negation pattern excluding superseded
// records, unless includeSuperseded is set. A record is superseded once
// it carries supersededAt, which every supersede writes (supersededBy is
// written only when a replacement is named).
func activePatterns(subjVar string, includeSuperseded bool) []triplestore.TriplePattern {
	if includeSuperseded {
		return nil
	}
	return []triplestore.TriplePattern{
		{Subject: triplestore.Var(subjVar), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSupersededAt)), Object: triplestore.Var(subjVar + "_sa")},
	}
}

// QueryBySession selects active (or all, if includeSuperseded) memory ids
// in a session, optionally filtered by minimum confidence, ordered by
// creation time descending.
func QueryBySession(sessionID string, minConfidence float64, limit int, includeSuperseded bool) (*Query, error) {
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	patterns := []triplestore.TriplePattern{
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSessionID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(sessionID))},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredConfidence)), Object: triplestore.Var("conf")},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredCreatedAt)), Object: triplestore.Var("created")},
	}

	return &Query{
		Kind:     KindQueryBySession,
		Patterns: patterns,
		Negate:   activePatterns("m", includeSuperseded),
		Filters:  []triplestore.ValueFilter{{Var: "conf", Min: clampConfidence(minConfidence)}},
		Vars:     []string{"m"},
		OrderBy:  "created",
		Desc:     true,
		Limit:    limit,
		text:     fmt.Sprintf("%sSELECT ?m WHERE { ?m mem:sessionId %q ; mem:confidence ?conf ; mem:createdAt ?created . } ORDER BY DESC(?created) LIMIT %d", prefixBlock, sessionID, limit),
	}, nil
}

// QueryByType is QueryBySession additionally filtered to a single memory
// type; superseded records are always excluded.
func QueryByType(sessionID string, memType memtype.MemoryType, limit int) (*Query, error) {
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	classIRI, err := memtype.MemoryTypeIRI(memType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrInvalidQueryInput, err)
	}
	limit = clampLimit(limit)

	patterns := []triplestore.TriplePattern{
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSessionID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(sessionID))},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredType)), Object: triplestore.BoundTerm(triplestore.IRI(classIRI))},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredCreatedAt)), Object: triplestore.Var("created")},
	}

	return &Query{
		Kind:     KindQueryByType,
		Patterns: patterns,
		Negate:   activePatterns("m", false),
		Vars:     []string{"m"},
		OrderBy:  "created",
		Desc:     true,
		Limit:    limit,
		text:     fmt.Sprintf("%sSELECT ?m WHERE { ?m mem:sessionId %q ; mem:type <%s> ; mem:createdAt ?created . } ORDER BY DESC(?created) LIMIT %d", prefixBlock, sessionID, classIRI, limit),
	}, nil
}

// QueryByID builds the subject IRI lookup for a single memory by id.
// Validation only; the adapter hydrates the record via
// triplestore.TriplesForSubject once the id is known-valid.
func QueryByID(id string) (*Query, error) {
	if err := validateID(id, 128); err != nil {
		return nil, err
	}
	subj := memtype.MemoryIRI(id)
	return &Query{
		Kind: KindQueryByID,
		Vars: []string{"m"},
		text: fmt.Sprintf("%sSELECT * WHERE { <%s> ?p ?o . }", prefixBlock, subj),
	}, nil
}

// SupersedeMemory builds the DELETE/INSERT WHERE that marks a memory
// superseded. newID may be empty, meaning "superseded with no named
// replacement".
func SupersedeMemory(id, newID string, supersededAt time.Time) (*Query, error) {
	if err := validateID(id, 128); err != nil {
		return nil, err
	}
	if newID != "" {
		if err := validateID(newID, 128); err != nil {
			return nil, err
		}
	}
	subj := memtype.MemoryIRI(id)

	del := []triplestore.TriplePattern{
		{Subject: triplestore.BoundTerm(triplestore.IRI(subj)), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSupersededBy)), Object: triplestore.Var("old_sb")},
		{Subject: triplestore.BoundTerm(triplestore.IRI(subj)), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSupersededAt)), Object: triplestore.Var("old_sa")},
	}
	ins := []triplestore.Triple{
		{Subject: subj, Predicate: memtype.PredSupersededAt, Object: triplestore.TypedLiteral(formatDateTime(supersededAt), "xsd:dateTime")},
	}
	if newID != "" {
		ins = append(ins, triplestore.Triple{Subject: subj, Predicate: memtype.PredSupersededBy, Object: triplestore.IRI(memtype.MemoryIRI(newID))})
	}

	return &Query{
		Kind:           KindSupersedeMemory,
		DeletePatterns: del,
		InsertTriples:  ins,
		text:           fmt.Sprintf("%sDELETE { <%s> mem:supersededBy ?o1 ; mem:supersededAt ?o2 . } INSERT { <%s> mem:supersededAt %q . } WHERE { ... }", prefixBlock, subj, subj, formatDateTime(supersededAt)),
	}, nil
}

// DeleteMemory builds the DELETE WHERE removing every triple of a memory.
func DeleteMemory(id string) (*Query, error) {
	if err := validateID(id, 128); err != nil {
		return nil, err
	}
	subj := memtype.MemoryIRI(id)
	return &Query{
		Kind: KindDeleteMemory,
		DeletePatterns: []triplestore.TriplePattern{
			{Subject: triplestore.BoundTerm(triplestore.IRI(subj)), Predicate: triplestore.Var("p"), Object: triplestore.Var("o")},
		},
		text: fmt.Sprintf("%sDELETE WHERE { <%s> ?p ?o . }", prefixBlock, subj),
	}, nil
}

// RecordAccess builds the DELETE/INSERT WHERE that overwrites accessCount
// and lastAccessed. newAccessCount is computed by the caller (the adapter
// reads the current value before calling this, since the engine has no
// arithmetic expressions in its pattern language).
func RecordAccess(id string, newAccessCount int64, accessedAt time.Time) (*Query, error) {
	if err := validateID(id, 128); err != nil {
		return nil, err
	}
	subj := memtype.MemoryIRI(id)

	del := []triplestore.TriplePattern{
		{Subject: triplestore.BoundTerm(triplestore.IRI(subj)), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredAccessCount)), Object: triplestore.Var("old_count")},
		{Subject: triplestore.BoundTerm(triplestore.IRI(subj)), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredLastAccessed)), Object: triplestore.Var("old_la")},
	}
	ins := []triplestore.Triple{
		{Subject: subj, Predicate: memtype.PredAccessCount, Object: triplestore.TypedLiteral(fmt.Sprintf("%d", newAccessCount), "xsd:integer")},
		{Subject: subj, Predicate: memtype.PredLastAccessed, Object: triplestore.TypedLiteral(formatDateTime(accessedAt), "xsd:dateTime")},
	}

	return &Query{
		Kind:           KindRecordAccess,
		DeletePatterns: del,
		InsertTriples:  ins,
		text:           fmt.Sprintf("%sDELETE { <%s> mem:accessCount ?c ; mem:lastAccessed ?l . } INSERT { <%s> mem:accessCount %d ; mem:lastAccessed %q . } WHERE { ... }", prefixBlock, subj, subj, newAccessCount, formatDateTime(accessedAt)),
	}, nil
}

// CountQuery builds the SELECT COUNT aggregate shape for a session.
func CountQuery(sessionID string, includeSuperseded bool) (*Query, error) {
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	patterns := []triplestore.TriplePattern{
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSessionID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(sessionID))},
	}
	return &Query{
		Kind:     KindCountQuery,
		Patterns: patterns,
		Negate:   activePatterns("m", includeSuperseded),
		Vars:     []string{"m"},
		text:     fmt.Sprintf("%sSELECT (COUNT(?m) AS ?n) WHERE { ?m mem:sessionId %q . }", prefixBlock, sessionID),
	}, nil
}

// QuerySupersedes builds the SELECT for the "supersedes" relationship:
// every memory in the session whose supersededBy equals sourceID.
func QuerySupersedes(sessionID, sourceID string) (*Query, error) {
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	if err := validateID(sourceID, 128); err != nil {
		return nil, err
	}
	sourceIRI := memtype.MemoryIRI(sourceID)
	patterns := []triplestore.TriplePattern{
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSessionID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(sessionID))},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSupersededBy)), Object: triplestore.BoundTerm(triplestore.IRI(sourceIRI))},
	}
	return &Query{
		Kind:     KindQueryRelated,
		Patterns: patterns,
		Vars:     []string{"m"},
		text:     fmt.Sprintf("%sSELECT ?m WHERE { ?m mem:sessionId %q ; mem:supersededBy <%s> . }", prefixBlock, sessionID, sourceIRI),
	}, nil
}

// QuerySameType builds the SELECT for the "same_type" relationship:
// memories in the session sharing memType, excluding superseded records
// unless includeSuperseded. The pattern matches the source itself too;
// callers drop it from the results.
func QuerySameType(sessionID, sourceID string, memType memtype.MemoryType, includeSuperseded bool) (*Query, error) {
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	if err := validateID(sourceID, 128); err != nil {
		return nil, err
	}
	classIRI, err := memtype.MemoryTypeIRI(memType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memerr.ErrInvalidQueryInput, err)
	}
	patterns := []triplestore.TriplePattern{
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSessionID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(sessionID))},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredType)), Object: triplestore.BoundTerm(triplestore.IRI(classIRI))},
	}
	return &Query{
		Kind:     KindQueryRelated,
		Patterns: patterns,
		Negate:   activePatterns("m", includeSuperseded),
		Vars:     []string{"m"},
		text:     fmt.Sprintf("%sSELECT ?m WHERE { ?m mem:sessionId %q ; mem:type <%s> . }", prefixBlock, sessionID, classIRI),
	}, nil
}

// QuerySameProject builds the SELECT for the "same_project" relationship.
func QuerySameProject(sessionID, sourceID, projectID string, includeSuperseded bool) (*Query, error) {
	if err := validateID(sessionID, 64); err != nil {
		return nil, err
	}
	if err := validateID(sourceID, 128); err != nil {
		return nil, err
	}
	escapedProject, err := escapeLiteral(projectID)
	if err != nil {
		return nil, err
	}
	patterns := []triplestore.TriplePattern{
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredSessionID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(sessionID))},
		{Subject: triplestore.Var("m"), Predicate: triplestore.BoundTerm(triplestore.IRI(memtype.PredProjectID)), Object: triplestore.BoundTerm(triplestore.PlainLiteral(escapedProject))},
	}
	return &Query{
		Kind:     KindQueryRelated,
		Patterns: patterns,
		Negate:   activePatterns("m", includeSuperseded),
		Vars:     []string{"m"},
		text:     fmt.Sprintf("%sSELECT ?m WHERE { ?m mem:sessionId %q ; mem:projectId %q . }", prefixBlock, sessionID, escapedProject),
	}, nil
}

// StripMemoryIRI extracts the local memory id from a full memory IRI, used
// by the adapter when turning resolved subjects and SELECT bindings back
// into plain ids.
func StripMemoryIRI(iri string) (string, bool) {
	prefix := memtype.Namespace + "memory_"
	if !strings.HasPrefix(iri, prefix) {
		return "", false
	}
	return strings.TrimPrefix(iri, prefix), true
}
