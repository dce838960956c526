package store

import "database/sql"

// CurrentSchemaVersion is bumped whenever pendingMigrations grows a new
// additive column, following the teacher's internal/store/migrations.go
// convention.
const CurrentSchemaVersion = 1

// migrate creates every table this package persists to if it does not yet
// exist, then applies any additive-column migrations recorded below.
func (s *Store) migrate() error {
	tables := []string{novelsTable, chaptersTable, chapterFactsTable,
		entityDictionaryTable, aliasMapsTable, worldStructuresTable, worldStructureOverridesTable,
		mapUserOverridesTable, analysisTasksTable, benchmarkRecordsTable,
		schemaVersionTable}

	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version(id, version) VALUES (1, ?)`, CurrentSchemaVersion); err != nil {
		return err
	}
	return s.applyMigrations()
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
);
`

const novelsTable = `
CREATE TABLE IF NOT EXISTS novels (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	genre TEXT,
	author TEXT,
	source TEXT,
	geo_type TEXT NOT NULL DEFAULT 'fictional',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const chaptersTable = `
CREATE TABLE IF NOT EXISTS chapters (
	novel_id TEXT NOT NULL,
	number INTEGER NOT NULL,
	title TEXT,
	text TEXT NOT NULL,
	analysis_error TEXT,
	error_type TEXT,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (novel_id, number)
);
CREATE INDEX IF NOT EXISTS idx_chapters_novel ON chapters(novel_id);
`

// chapter_facts stores the full extracted ChapterFact as a JSON payload,
// plus the handful of columns (is_truncated/segment_count/elapsed_ms) spec
// §4.1's persisted-state layout calls out explicitly so they can be queried
// without decoding the payload.
const chapterFactsTable = `
CREATE TABLE IF NOT EXISTS chapter_facts (
	novel_id TEXT NOT NULL,
	chapter_num INTEGER NOT NULL,
	payload TEXT NOT NULL,
	is_truncated BOOLEAN DEFAULT FALSE,
	segment_count INTEGER DEFAULT 0,
	elapsed_ms INTEGER DEFAULT 0,
	error_type TEXT,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (novel_id, chapter_num)
);
CREATE INDEX IF NOT EXISTS idx_chapter_facts_novel ON chapter_facts(novel_id);
`

// entity_dictionary is one row per novel: the whole dictionary is rebuilt
// and persisted atomically (spec §4.5's dictionary is invalidated and
// rebuilt wholesale, never patched incrementally).
const entityDictionaryTable = `
CREATE TABLE IF NOT EXISTS entity_dictionary (
	novel_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// alias_maps is one row per novel, rebuilt wholesale from the dictionary and
// full chapter-fact run each time build_alias_map runs (spec §4.6), mirroring
// entity_dictionary's whole-blob persistence.
const aliasMapsTable = `
CREATE TABLE IF NOT EXISTS alias_maps (
	novel_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const worldStructuresTable = `
CREATE TABLE IF NOT EXISTS world_structures (
	novel_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// world_structure_overrides keeps each manual correction as its own row so a
// hierarchy rebuild can replay them one at a time rather than as an
// all-or-nothing blob (spec §4.11's rebuild API diffs and re-applies
// overrides individually).
const worldStructureOverridesTable = `
CREATE TABLE IF NOT EXISTS world_structure_overrides (
	novel_id TEXT NOT NULL,
	override_type TEXT NOT NULL,
	override_key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (novel_id, override_type, override_key)
);
`

const mapUserOverridesTable = `
CREATE TABLE IF NOT EXISTS map_user_overrides (
	novel_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const analysisTasksTable = `
CREATE TABLE IF NOT EXISTS analysis_tasks (
	id TEXT PRIMARY KEY,
	novel_id TEXT NOT NULL,
	state TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tasks_novel ON analysis_tasks(novel_id);
CREATE INDEX IF NOT EXISTS idx_tasks_state ON analysis_tasks(state);
`

// benchmark_records tracks the Gateway-level latency/cost samples the CLI's
// benchmark subcommand collects per provider/model pairing.
const benchmarkRecordsTable = `
CREATE TABLE IF NOT EXISTS benchmark_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	novel_id TEXT,
	chapter_num INTEGER,
	elapsed_ms INTEGER NOT NULL,
	input_tokens INTEGER,
	output_tokens INTEGER,
	success BOOLEAN NOT NULL,
	error_type TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_benchmark_provider_model ON benchmark_records(provider, model);
`

// migration is one additive column to apply if not already present.
type migration struct {
	table  string
	column string
	def    string
}

// pendingMigrations is currently empty: the schema above is the first
// version. Future additive columns are appended here, following the
// teacher's migrations.go pattern, never as destructive ALTERs.
var pendingMigrations = []migration{}

func (s *Store) applyMigrations() error {
	for _, m := range pendingMigrations {
		has, err := s.columnExists(m.table, m.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := s.db.Exec("ALTER TABLE " + m.table + " ADD COLUMN " + m.column + " " + m.def); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
