// Package memtype holds the canonical tables mapping in-process memory
// types, source types, confidence bands, and relationship kinds to ontology
// IRIs and back. All mappings are compile-time-determinable; there is no
// reflection and no config file involved.
package memtype

import (
	"fmt"
	"regexp"
)

// Namespace is the canonical ontology namespace prefix every IRI is built
// from.
const Namespace = "https://memoryengine.internal/ontology#"

// MemoryType is a tag drawn from the closed set of memory categories.
type MemoryType string

// Knowledge types
const (
	TypeFact       MemoryType = "fact"
	TypeAssumption MemoryType = "assumption"
	TypeHypothesis MemoryType = "hypothesis"
	TypeDiscovery  MemoryType = "discovery"
	TypeRisk       MemoryType = "risk"
	TypeUnknown    MemoryType = "unknown"
)

// Decision types
const (
	TypeDecision               MemoryType = "decision"
	TypeArchitecturalDecision  MemoryType = "architectural_decision"
	TypeImplementationDecision MemoryType = "implementation_decision"
	TypeAlternative            MemoryType = "alternative"
	TypeTradeOff               MemoryType = "trade_off"
)

// Convention types
const (
	TypeConvention              MemoryType = "convention"
	TypeCodingStandard          MemoryType = "coding_standard"
	TypeArchitecturalConvention MemoryType = "architectural_convention"
	TypeAgentRule               MemoryType = "agent_rule"
	TypeProcessConvention       MemoryType = "process_convention"
)

// Error types
const (
	TypeError         MemoryType = "error"
	TypeBug           MemoryType = "bug"
	TypeFailure       MemoryType = "failure"
	TypeIncident      MemoryType = "incident"
	TypeRootCause     MemoryType = "root_cause"
	TypeLessonLearned MemoryType = "lesson_learned"
)

// memoryTypeToIRI maps every closed-set memory type to its ontology class
// IRI. The full list spans four families (knowledge, decision,
// convention, error) — 22 tags in total.
var memoryTypeToIRI = map[MemoryType]string{
	TypeFact:       Namespace + "Fact",
	TypeAssumption: Namespace + "Assumption",
	TypeHypothesis: Namespace + "Hypothesis",
	TypeDiscovery:  Namespace + "Discovery",
	TypeRisk:       Namespace + "Risk",
	TypeUnknown:    Namespace + "Unknown",

	TypeDecision:               Namespace + "Decision",
	TypeArchitecturalDecision:  Namespace + "ArchitecturalDecision",
	TypeImplementationDecision: Namespace + "ImplementationDecision",
	TypeAlternative:            Namespace + "Alternative",
	TypeTradeOff:               Namespace + "TradeOff",

	TypeConvention:              Namespace + "Convention",
	TypeCodingStandard:          Namespace + "CodingStandard",
	TypeArchitecturalConvention: Namespace + "ArchitecturalConvention",
	TypeAgentRule:               Namespace + "AgentRule",
	TypeProcessConvention:       Namespace + "ProcessConvention",

	TypeError:         Namespace + "Error",
	TypeBug:           Namespace + "Bug",
	TypeFailure:       Namespace + "Failure",
	TypeIncident:      Namespace + "Incident",
	TypeRootCause:     Namespace + "RootCause",
	TypeLessonLearned: Namespace + "LessonLearned",
}

var iriToMemoryType map[string]MemoryType

func init() {
	iriToMemoryType = make(map[string]MemoryType, len(memoryTypeToIRI))
	for tag, iri := range memoryTypeToIRI {
		iriToMemoryType[iri] = tag
	}
}

// MemoryTypeIRI returns the ontology class IRI for tag, or an error if tag
// is not a member of the closed set.
func MemoryTypeIRI(tag MemoryType) (string, error) {
	iri, ok := memoryTypeToIRI[tag]
	if !ok {
		return "", fmt.Errorf("unknown memory type %q", tag)
	}
	return iri, nil
}

// MemoryTypeFromIRI is the inverse lookup. An unrecognized IRI is not
// fatal — it means the record is not one this registry owns — so ok is
// false rather than an error.
func MemoryTypeFromIRI(iri string) (MemoryType, bool) {
	tag, ok := iriToMemoryType[iri]
	return tag, ok
}

// SourceType is the tag identifying who or what produced a memory.
type SourceType string

const (
	SourceUser             SourceType = "user"
	SourceAgent            SourceType = "agent"
	SourceTool             SourceType = "tool"
	SourceExternalDocument SourceType = "external_document"
)

var sourceTypeToIRI = map[SourceType]string{
	SourceUser:             Namespace + "SourceUser",
	SourceAgent:            Namespace + "SourceAgent",
	SourceTool:             Namespace + "SourceTool",
	SourceExternalDocument: Namespace + "SourceExternalDocument",
}

var iriToSourceType map[string]SourceType

func init() {
	iriToSourceType = make(map[string]SourceType, len(sourceTypeToIRI))
	for tag, iri := range sourceTypeToIRI {
		iriToSourceType[iri] = tag
	}
}

// SourceTypeIRI returns the ontology individual IRI for tag.
func SourceTypeIRI(tag SourceType) (string, error) {
	iri, ok := sourceTypeToIRI[tag]
	if !ok {
		return "", fmt.Errorf("unknown source type %q", tag)
	}
	return iri, nil
}

// SourceTypeFromIRI is the inverse lookup.
func SourceTypeFromIRI(iri string) (SourceType, bool) {
	tag, ok := iriToSourceType[iri]
	return tag, ok
}

// ConfidenceBand is the binned representation of a real-valued confidence
// score, used only when mapping to ontology individuals.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

var confidenceBandToIRI = map[ConfidenceBand]string{
	ConfidenceHigh:   Namespace + "ConfidenceHigh",
	ConfidenceMedium: Namespace + "ConfidenceMedium",
	ConfidenceLow:    Namespace + "ConfidenceLow",
}

// ConfidenceBandFromScore bins a real-valued confidence in [0.0, 1.0]:
// High >= 0.8, Medium >= 0.5, else Low. The score is clamped to [0,1]
// before binning.
func ConfidenceBandFromScore(score float64) ConfidenceBand {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceBandIRI returns the ontology individual IRI for a band. This
// direction is forward-only — there is no real-valued inverse.
func ConfidenceBandIRI(band ConfidenceBand) (string, error) {
	iri, ok := confidenceBandToIRI[band]
	if !ok {
		return "", fmt.Errorf("unknown confidence band %q", band)
	}
	return iri, nil
}

// Relationship is one of the five traversable relationship kinds between
// memories.
type Relationship string

const (
	RelDerivedFrom  Relationship = "derived_from"
	RelSupersededBy Relationship = "superseded_by"
	RelSupersedes   Relationship = "supersedes"
	RelSameType     Relationship = "same_type"
	RelSameProject  Relationship = "same_project"
)

var relationshipToIRI = map[Relationship]string{
	RelDerivedFrom:  Namespace + "derivedFrom",
	RelSupersededBy: Namespace + "supersededBy",
	RelSupersedes:   Namespace + "supersedes",
	RelSameType:     Namespace + "sameType",
	RelSameProject:  Namespace + "sameProject",
}

var iriToRelationship map[string]Relationship

func init() {
	iriToRelationship = make(map[string]Relationship, len(relationshipToIRI))
	for kind, iri := range relationshipToIRI {
		iriToRelationship[iri] = kind
	}
}

// RelationshipIRI returns the ontology predicate IRI for kind.
func RelationshipIRI(kind Relationship) (string, error) {
	iri, ok := relationshipToIRI[kind]
	if !ok {
		return "", fmt.Errorf("unknown relationship kind %q", kind)
	}
	return iri, nil
}

// RelationshipFromIRI is the inverse lookup.
func RelationshipFromIRI(iri string) (Relationship, bool) {
	kind, ok := iriToRelationship[iri]
	return kind, ok
}

// idCharset matches the charset constraint shared by memory ids and session
// ids: ASCII letters, digits, underscore, hyphen.
var idCharset = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidLocalName reports whether name is safe to use, unescaped, as the
// local part of an IRI: matches the shared id charset and is within the
// given maximum length.
func ValidLocalName(name string, maxLen int) bool {
	if len(name) < 1 || len(name) > maxLen {
		return false
	}
	return idCharset.MatchString(name)
}

// MemoryIRI builds the IRI for a memory id. The caller must have already
// validated id via ValidLocalName.
func MemoryIRI(id string) string {
	return Namespace + "memory_" + id
}

// SessionIRI builds the IRI for a session id.
func SessionIRI(sessionID string) string {
	return Namespace + "session_" + sessionID
}

// AgentIRI builds the IRI for an agent id.
func AgentIRI(agentID string) string {
	return Namespace + "agent_" + agentID
}

// ProjectIRI builds the IRI for a project id.
func ProjectIRI(projectID string) string {
	return Namespace + "project_" + projectID
}

// EvidenceIRI builds the IRI for an evidence reference.
func EvidenceIRI(ref string) string {
	return Namespace + "evidence_" + ref
}
