package triplestore

import "sort"

// PatternTerm is one slot of a TriplePattern: either a variable (matches
// anything, binding the match into the current row) or a bound term
// (filters rows to that exact value).
type PatternTerm struct {
	IsVar   bool
	VarName string
	Bound   Term
}

// Var constructs a variable pattern term.
func Var(name string) PatternTerm {
	return PatternTerm{IsVar: true, VarName: name}
}

// BoundTerm constructs a bound pattern term matching exactly t.
func BoundTerm(t Term) PatternTerm {
	return PatternTerm{Bound: t}
}

// TriplePattern is one line of a basic graph pattern: subject and
// predicate are always IRI-shaped slots; object may be IRI or literal.
type TriplePattern struct {
	Subject   PatternTerm
	Predicate PatternTerm
	Object    PatternTerm
}

// ValueFilter is a post-join numeric filter over a bound variable, used for
// constraints like min_confidence that SQL alone can't express once the
// value has come through a generic literal column.
type ValueFilter struct {
	Var string
	Min float64 // inclusive lower bound
}

// bind resolves any variable in pattern that already has a value in
// binding into a bound pattern term, leaving genuinely free variables as
// variables.
func (p TriplePattern) bind(binding map[string]Term) TriplePattern {
	resolve := func(pt PatternTerm) PatternTerm {
		if !pt.IsVar {
			return pt
		}
		if v, ok := binding[pt.VarName]; ok {
			return PatternTerm{Bound: v}
		}
		return pt
	}
	return TriplePattern{
		Subject:   resolve(p.Subject),
		Predicate: resolve(p.Predicate),
		Object:    resolve(p.Object),
	}
}

// whereClause renders the SQL WHERE fragment (and its bind args)
// corresponding to this pattern's bound slots; variable slots impose no
// constraint.
func (p TriplePattern) whereClause() (string, []interface{}) {
	clause := "1=1"
	var args []interface{}

	if !p.Subject.IsVar {
		clause += " AND subject = ?"
		args = append(args, p.Subject.Bound.Value)
	}
	if !p.Predicate.IsVar {
		clause += " AND predicate = ?"
		args = append(args, p.Predicate.Bound.Value)
	}
	if !p.Object.IsVar {
		clause += " AND object = ?"
		args = append(args, p.Object.Bound.Value)
		if p.Object.Bound.Kind == KindIRI {
			clause += " AND object_kind = 'iri'"
		} else {
			clause += " AND object_kind = 'literal'"
		}
	}
	return clause, args
}

// unifyVar attempts to bind pt (if a variable) to value within binding,
// reporting false if pt is already bound to a different value.
func unifyVar(binding map[string]Term, pt PatternTerm, value Term) bool {
	if !pt.IsVar {
		return true
	}
	if existing, ok := binding[pt.VarName]; ok {
		return existing == value
	}
	binding[pt.VarName] = value
	return true
}

func cloneBinding(b map[string]Term) map[string]Term {
	next := make(map[string]Term, len(b)+3)
	for k, v := range b {
		next[k] = v
	}
	return next
}

func passesFilters(filters []ValueFilter, binding map[string]Term) bool {
	for _, f := range filters {
		term, ok := binding[f.Var]
		if !ok {
			return false
		}
		val, ok := parseFloat(term.Value)
		if !ok {
			return false
		}
		if val < f.Min {
			return false
		}
	}
	return true
}

func sortBindings(bindings []map[string]Term, varName string, desc bool) {
	sort.SliceStable(bindings, func(i, j int) bool {
		vi, oki := bindings[i][varName]
		vj, okj := bindings[j][varName]
		if !oki || !okj {
			return false
		}
		less := vi.Value < vj.Value
		if fi, oki := parseFloat(vi.Value); oki {
			if fj, okj := parseFloat(vj.Value); okj {
				less = fi < fj
			}
		}
		if desc {
			return !less && vi.Value != vj.Value
		}
		return less
	})
}

func patternVars(patterns []TriplePattern) []string {
	seen := map[string]bool{}
	var vars []string
	add := func(pt PatternTerm) {
		if pt.IsVar && !seen[pt.VarName] {
			seen[pt.VarName] = true
			vars = append(vars, pt.VarName)
		}
	}
	for _, p := range patterns {
		add(p.Subject)
		add(p.Predicate)
		add(p.Object)
	}
	return vars
}
