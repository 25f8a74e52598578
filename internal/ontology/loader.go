// Package ontology embeds the fixed ten-file schema corpus and loads it
// into a freshly opened store exactly once. The corpus is a
// small declarative subset — class/individual/property/shape lines — not
// real Turtle, since nothing downstream needs a general RDF parser: the
// engine only ever asks "what classes/individuals/properties exist" and
// "assert this schema into the store".
package ontology

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	. "github.com/roelfdiedericks/memoryengine/internal/logging"
	"github.com/roelfdiedericks/memoryengine/internal/memerr"
	"github.com/roelfdiedericks/memoryengine/internal/memtype"
	"github.com/roelfdiedericks/memoryengine/internal/triplestore"
)

//go:embed corpus/*.ttl
var corpusFS embed.FS

// Namespace-local predicate IRIs used only for schema bookkeeping triples
// (class hierarchy, property domains/ranges), distinct from the data
// predicates in memtype.Pred*.
var (
	predRDFType     = memtype.Namespace + "rdfType"
	predSubClassOf  = memtype.Namespace + "subClassOf"
	predIndOf       = memtype.Namespace + "individualOf"
	predDomain      = memtype.Namespace + "domain"
	predRange       = memtype.Namespace + "range"
	classClassIRI   = memtype.Namespace + "Class"
	classPropIRI    = memtype.Namespace + "Property"
	loadedMarkerSub = memtype.Namespace + "_ontology_loaded"
)

// ClassDecl, IndividualDecl and PropertyDecl mirror one declaration line
// each from the corpus.
type ClassDecl struct {
	Name   string
	Parent string
}

type IndividualDecl struct {
	Name  string
	Class string
}

type PropertyDecl struct {
	Name   string
	Domain string
	Range  string
}

// Corpus is the parsed form of all ten files, held in memory once at
// package init.
type Corpus struct {
	Classes     []ClassDecl
	Individuals []IndividualDecl
	Properties  []PropertyDecl
}

var parsedCorpus Corpus

func init() {
	c, err := parseCorpus(corpusFS)
	if err != nil {
		panic(fmt.Sprintf("ontology: embedded corpus failed to parse: %v", err))
	}
	parsedCorpus = c
}

func parseCorpus(fsys embed.FS) (Corpus, error) {
	var out Corpus
	entries, err := fsys.ReadDir("corpus")
	if err != nil {
		return out, fmt.Errorf("failed to read embedded ontology corpus: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".ttl") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := fsys.ReadFile("corpus/" + name)
		if err != nil {
			return out, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if err := parseFile(name, string(data), &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func parseFile(name, content string, out *Corpus) error {
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		kind := fields[0]
		switch kind {
		case "class":
			decl := ClassDecl{Name: fields[1]}
			for _, kv := range fields[2:] {
				if v, ok := attr(kv, "parent"); ok {
					decl.Parent = v
				}
			}
			out.Classes = append(out.Classes, decl)
		case "individual":
			decl := IndividualDecl{Name: fields[1]}
			for _, kv := range fields[2:] {
				if v, ok := attr(kv, "class"); ok {
					decl.Class = v
				}
			}
			out.Individuals = append(out.Individuals, decl)
		case "property":
			decl := PropertyDecl{Name: fields[1]}
			for _, kv := range fields[2:] {
				if v, ok := attr(kv, "domain"); ok {
					decl.Domain = v
				}
				if v, ok := attr(kv, "range"); ok {
					decl.Range = v
				}
			}
			out.Properties = append(out.Properties, decl)
		case "shape":
			// Shapes are descriptive only; no runtime enforcement engine
			// exists, so they are parsed (to catch corpus typos) and
			// otherwise discarded.
		default:
			return fmt.Errorf("%s:%d: unrecognized declaration kind %q", name, lineNo, kind)
		}
	}
	return scanner.Err()
}

func attr(kv, key string) (string, bool) {
	prefix := key + "="
	if strings.HasPrefix(kv, prefix) {
		return strings.TrimPrefix(kv, prefix), true
	}
	return "", false
}

// ListClasses returns every declared class name, in corpus file order.
func ListClasses() []string {
	names := make([]string, len(parsedCorpus.Classes))
	for i, c := range parsedCorpus.Classes {
		names[i] = c.Name
	}
	return names
}

// ListIndividuals returns every declared individual name.
func ListIndividuals() []string {
	names := make([]string, len(parsedCorpus.Individuals))
	for i, d := range parsedCorpus.Individuals {
		names[i] = d.Name
	}
	return names
}

// ListProperties returns every declared property name.
func ListProperties() []string {
	names := make([]string, len(parsedCorpus.Properties))
	for i, p := range parsedCorpus.Properties {
		names[i] = p.Name
	}
	return names
}

func classIRI(name string) string { return memtype.Namespace + name }

// Load asserts the full corpus into store as triples, unless a marker
// triple shows it has already been loaded — the loader is idempotent per
// store, loading the fixed set of schema files into each new store
// exactly once.
func Load(ctx context.Context, store *triplestore.Store) error {
	probe := triplestore.TriplePattern{
		Subject:   triplestore.BoundTerm(triplestore.IRI(loadedMarkerSub)),
		Predicate: triplestore.BoundTerm(triplestore.IRI(predRDFType)),
		Object:    triplestore.BoundTerm(triplestore.IRI(memtype.Namespace + "OntologyMarker")),
	}
	loaded, err := store.Ask(ctx, probe)
	if err != nil {
		return fmt.Errorf("%w: %v", memerr.ErrOntologyLoadFailed, err)
	}
	if loaded {
		L_debug("ontology: already loaded, skipping")
		return nil
	}

	var triples []triplestore.Triple
	for _, c := range parsedCorpus.Classes {
		iri := classIRI(c.Name)
		triples = append(triples, triplestore.Triple{Subject: iri, Predicate: predRDFType, Object: triplestore.IRI(classClassIRI)})
		if c.Parent != "" {
			triples = append(triples, triplestore.Triple{Subject: iri, Predicate: predSubClassOf, Object: triplestore.IRI(classIRI(c.Parent))})
		}
	}
	for _, d := range parsedCorpus.Individuals {
		iri := classIRI(d.Name)
		if d.Class != "" {
			triples = append(triples, triplestore.Triple{Subject: iri, Predicate: predIndOf, Object: triplestore.IRI(classIRI(d.Class))})
		}
	}
	for _, p := range parsedCorpus.Properties {
		iri := classIRI(p.Name)
		triples = append(triples, triplestore.Triple{Subject: iri, Predicate: predRDFType, Object: triplestore.IRI(classPropIRI)})
		if p.Domain != "" {
			triples = append(triples, triplestore.Triple{Subject: iri, Predicate: predDomain, Object: triplestore.IRI(classIRI(p.Domain))})
		}
		if p.Range != "" {
			triples = append(triples, triplestore.Triple{Subject: iri, Predicate: predRange, Object: triplestore.PlainLiteral(p.Range)})
		}
	}
	triples = append(triples, triplestore.Triple{Subject: loadedMarkerSub, Predicate: predRDFType, Object: triplestore.IRI(memtype.Namespace + "OntologyMarker")})

	n, err := store.Insert(ctx, triples)
	if err != nil {
		return fmt.Errorf("%w: %v", memerr.ErrOntologyLoadFailed, err)
	}
	L_info("ontology: loaded corpus into store", "triples", n, "classes", len(parsedCorpus.Classes), "individuals", len(parsedCorpus.Individuals), "properties", len(parsedCorpus.Properties))
	return nil
}
