package triplestore

import (
	"database/sql"
	"fmt"

	. "github.com/roelfdiedericks/memoryengine/internal/logging"
)

// schemaVersion is bumped whenever the triples table shape changes.
const schemaVersion = 1

type migration struct {
	version int
	up      string
}

var migrations = []migration{
	{
		version: 1,
		up: `
CREATE TABLE IF NOT EXISTS triples (
    id INTEGER PRIMARY KEY,
    subject TEXT NOT NULL,
    predicate TEXT NOT NULL,
    object TEXT NOT NULL,
    object_kind TEXT NOT NULL,
    object_datatype TEXT,
    object_lang TEXT
);

CREATE INDEX IF NOT EXISTS idx_triples_subject ON triples(subject);
CREATE INDEX IF NOT EXISTS idx_triples_subject_predicate ON triples(subject, predicate);
CREATE INDEX IF NOT EXISTS idx_triples_predicate_object ON triples(predicate, object);

CREATE TABLE IF NOT EXISTS store_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

// initSchema applies every migration newer than the database's current
// recorded version.
func initSchema(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		currentVersion = 0
	}

	for _, m := range migrations {
		if m.version > currentVersion {
			L_debug("triplestore: applying migration", "version", m.version)
			if _, err := db.Exec(m.up); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			currentVersion = m.version
		}
	}

	return nil
}
