// Package triplestore implements the external triple-store dependency the
// higher layers of the memory engine are specified against (open, close,
// load_file, update, ask, select, health, stats). No Go RDF/SPARQL library
// exists in the retrieved reference corpus, so this package provides a
// small, real graph-pattern engine of its own, backed by the same
// mattn/go-sqlite3 driver the rest of the stack already depends on for
// persistence. Higher layers never see SQL; they see IRIs, terms, triples
// and basic graph patterns.
package triplestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/roelfdiedericks/memoryengine/internal/logging"
)

// Store is a single opened triple-store handle, one per session.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and, if createIfMissing, creates) a triple store at path.
// The DSN sets WAL journal mode, a busy timeout, and foreign keys on.
func Open(ctx context.Context, path string, createIfMissing bool) (*Store, error) {
	dir := filepath.Dir(path)
	if createIfMissing {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	} else if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("store directory does not exist: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open triple store: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping triple store: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close flushes and releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadFile bulk-inserts a pre-parsed set of triples, standing in for the
// contract's "load a named schema file" call. Turtle parsing happens in
// the ontology loader (which has the file content); by the time it reaches
// the store, a schema file is already just a slice of triples to insert.
func (s *Store) LoadFile(ctx context.Context, triples []Triple) (int64, error) {
	return s.Insert(ctx, triples)
}

// Insert performs an INSERT DATA of the given triples.
func (s *Store) Insert(ctx context.Context, triples []Triple) (int64, error) {
	if len(triples) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triples (subject, predicate, object, object_kind, object_datatype, object_lang)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for _, t := range triples {
		kind := "iri"
		if t.Object.Kind == KindLiteral {
			kind = "literal"
		}
		res, err := stmt.ExecContext(ctx, t.Subject, t.Predicate, t.Object.Value, kind, nullIfEmpty(t.Object.Datatype), nullIfEmpty(t.Object.Lang))
		if err != nil {
			return 0, fmt.Errorf("insert triple: %w", err)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return n, nil
}

// Delete removes every triple matching pattern. Variables in pattern are
// wildcards; bound fields filter.
func (s *Store) Delete(ctx context.Context, pattern TriplePattern) (int64, error) {
	where, args := pattern.whereClause()
	res, err := s.db.ExecContext(ctx, "DELETE FROM triples WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete triples: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Update performs a DELETE/INSERT WHERE: every pattern in del is removed,
// then every triple in ins is added, atomically.
func (s *Store) Update(ctx context.Context, del []TriplePattern, ins []Triple) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var deleted int64
	for _, pattern := range del {
		where, args := pattern.whereClause()
		res, err := tx.ExecContext(ctx, "DELETE FROM triples WHERE "+where, args...)
		if err != nil {
			return 0, fmt.Errorf("delete triples: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted += n
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triples (subject, predicate, object, object_kind, object_datatype, object_lang)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ins {
		kind := "iri"
		if t.Object.Kind == KindLiteral {
			kind = "literal"
		}
		if _, err := stmt.ExecContext(ctx, t.Subject, t.Predicate, t.Object.Value, kind, nullIfEmpty(t.Object.Datatype), nullIfEmpty(t.Object.Lang)); err != nil {
			return 0, fmt.Errorf("insert triple: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	return deleted + int64(len(ins)), nil
}

// Ask is a boolean probe: does any triple match pattern?
func (s *Store) Ask(ctx context.Context, pattern TriplePattern) (bool, error) {
	where, args := pattern.whereClause()
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM triples WHERE "+where+")", args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ask: %w", err)
	}
	return exists == 1, nil
}

// SelectOptions controls ordering and truncation of Select results.
type SelectOptions struct {
	OrderByVar string
	Desc       bool
	Limit      int
}

// Select evaluates a basic graph pattern (a conjunction of triple
// patterns joined by shared variables) plus a set of negated patterns
// (FILTER NOT EXISTS) and numeric filters, returning one binding map per
// surviving row, restricted to vars, ordered and truncated per opts.
func (s *Store) Select(ctx context.Context, patterns []TriplePattern, negate []TriplePattern, filters []ValueFilter, vars []string, opts SelectOptions) ([]map[string]Term, error) {
	bindings := []map[string]Term{{}}

	for _, pattern := range patterns {
		next := make([]map[string]Term, 0, len(bindings))
		for _, b := range bindings {
			rows, err := s.matchPattern(ctx, pattern, b)
			if err != nil {
				return nil, err
			}
			next = append(next, rows...)
		}
		bindings = next
		if len(bindings) == 0 {
			break
		}
	}

	var survivors []map[string]Term
	for _, b := range bindings {
		ok, err := s.survivesNegation(ctx, negate, b)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !passesFilters(filters, b) {
			continue
		}
		survivors = append(survivors, b)
	}

	if opts.OrderByVar != "" {
		sortBindings(survivors, opts.OrderByVar, opts.Desc)
	}

	if opts.Limit > 0 && len(survivors) > opts.Limit {
		survivors = survivors[:opts.Limit]
	}

	projected := make([]map[string]Term, 0, len(survivors))
	for _, b := range survivors {
		row := make(map[string]Term, len(vars))
		for _, v := range vars {
			if t, ok := b[v]; ok {
				row[v] = t
			}
		}
		projected = append(projected, row)
	}
	return projected, nil
}

// Count evaluates the same kind of pattern as Select but returns only the
// surviving row count, never materializing bindings into the caller.
func (s *Store) Count(ctx context.Context, patterns []TriplePattern, negate []TriplePattern, filters []ValueFilter) (int64, error) {
	rows, err := s.Select(ctx, patterns, negate, filters, patternVars(patterns), SelectOptions{})
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// Health pings the underlying database connection.
func (s *Store) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("unhealthy: %w", err)
	}
	return nil
}

// Stats returns an opaque diagnostic map, per the external contract.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	var tripleCount int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM triples").Scan(&tripleCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	var subjectCount int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT subject) FROM triples").Scan(&subjectCount); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	return map[string]interface{}{
		"path":          s.path,
		"triple_count":  tripleCount,
		"subject_count": subjectCount,
	}, nil
}

// TriplesForSubject returns every triple with the given subject, ordered
// by insertion (row id), which is how multi-valued predicates such as
// evidence references preserve the order they were asserted in.
func (s *Store) TriplesForSubject(ctx context.Context, subject string) ([]Triple, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT predicate, object, object_kind, object_datatype, object_lang
		FROM triples WHERE subject = ? ORDER BY id ASC
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("triples for subject: %w", err)
	}
	defer rows.Close()

	var result []Triple
	for rows.Next() {
		var pred, obj, kind string
		var datatype, lang sql.NullString
		if err := rows.Scan(&pred, &obj, &kind, &datatype, &lang); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		objTerm := Term{Value: obj, Datatype: datatype.String, Lang: lang.String}
		if kind == "iri" {
			objTerm.Kind = KindIRI
		} else {
			objTerm.Kind = KindLiteral
		}
		result = append(result, Triple{Subject: subject, Predicate: pred, Object: objTerm})
	}
	return result, rows.Err()
}

func (s *Store) matchPattern(ctx context.Context, pattern TriplePattern, existing map[string]Term) ([]map[string]Term, error) {
	bound := pattern.bind(existing)
	where, args := bound.whereClause()

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject, predicate, object, object_kind, object_datatype, object_lang
		FROM triples WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	var results []map[string]Term
	for rows.Next() {
		var subj, pred, obj, kind string
		var datatype, lang sql.NullString
		if err := rows.Scan(&subj, &pred, &obj, &kind, &datatype, &lang); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}

		objTerm := Term{Value: obj, Datatype: datatype.String, Lang: lang.String}
		if kind == "iri" {
			objTerm.Kind = KindIRI
		} else {
			objTerm.Kind = KindLiteral
		}

		next := cloneBinding(existing)
		if ok := unifyVar(next, bound.Subject, IRI(subj)); !ok {
			continue
		}
		if ok := unifyVar(next, bound.Predicate, IRI(pred)); !ok {
			continue
		}
		if ok := unifyVar(next, bound.Object, objTerm); !ok {
			continue
		}
		results = append(results, next)
	}
	return results, rows.Err()
}

func (s *Store) survivesNegation(ctx context.Context, negate []TriplePattern, binding map[string]Term) (bool, error) {
	for _, pattern := range negate {
		bound := pattern.bind(binding)
		// A negated pattern containing an unbound variable can't be asked
		// directly; skip it (conservative: treat as not violating).
		if bound.Subject.IsVar || bound.Predicate.IsVar {
			continue
		}
		exists, err := s.Ask(ctx, bound)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
	return true, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// parseFloat is a small helper shared with filter evaluation so triplestore
// never depends on the adapter layer for numeric literal parsing.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
