package memtype

// Property predicate IRIs used by the query template layer to build and
// read MemoryItem triples. These correspond to the "properties" declared
// in the ontology corpus, not to the class/individual registries above.
var (
	PredType          = Namespace + "type" // rdf:type equivalent, local to this ontology
	PredContent       = Namespace + "content"
	PredConfidence    = Namespace + "confidence"
	PredSourceType    = Namespace + "sourceType"
	PredSessionID     = Namespace + "sessionId"
	PredAgentID       = Namespace + "agentId"
	PredProjectID     = Namespace + "projectId"
	PredRationale     = Namespace + "rationale"
	PredEvidenceRef   = Namespace + "evidenceRef"
	PredCreatedAt     = Namespace + "createdAt"
	PredSupersededBy  = Namespace + "supersededBy"
	PredSupersededAt  = Namespace + "supersededAt"
	PredAccessCount   = Namespace + "accessCount"
	PredLastAccessed  = Namespace + "lastAccessed"
	PredConfidenceBand = Namespace + "confidenceBand"
)
