package store

// schemaVersion is written to meta and checked on open.
const schemaVersion = "1"

// schema creates the tables of a tree database. Statements are run one at
// a time and are safe to repeat.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS repositories (
		id       TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name     TEXT NOT NULL,
		address  TEXT NOT NULL,
		note     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		id            TEXT PRIMARY KEY,
		position      INTEGER NOT NULL,
		title         TEXT NOT NULL,
		author        TEXT NOT NULL,
		publisher     TEXT NOT NULL,
		note          TEXT NOT NULL,
		repository_id TEXT REFERENCES repositories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS people (
		id             TEXT PRIMARY KEY,
		position       INTEGER NOT NULL,
		prefix         TEXT NOT NULL,
		given          TEXT NOT NULL,
		surname_prefix TEXT NOT NULL,
		surname        TEXT NOT NULL,
		suffix         TEXT NOT NULL,
		gender         INTEGER NOT NULL,
		living         INTEGER NOT NULL,
		restriction    INTEGER NOT NULL,
		note           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS unions (
		id INTEGER PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS relationships (
		person_id  TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		kind       INTEGER NOT NULL,
		related_id TEXT NOT NULL REFERENCES people(id) ON DELETE CASCADE,
		modifier   INTEGER NOT NULL,
		union_id   INTEGER REFERENCES unions(id)
	)`,
	`CREATE TABLE IF NOT EXISTS facts (
		id            INTEGER PRIMARY KEY,
		person_id     TEXT REFERENCES people(id) ON DELETE CASCADE,
		union_id      INTEGER REFERENCES unions(id) ON DELETE CASCADE,
		position      INTEGER NOT NULL,
		tag           TEXT NOT NULL,
		date          TEXT,
		descriptor    TEXT NOT NULL,
		place         TEXT NOT NULL,
		value         TEXT NOT NULL,
		source_id     TEXT REFERENCES sources(id),
		page          TEXT NOT NULL,
		citation_note TEXT NOT NULL,
		link          TEXT NOT NULL,
		CHECK ((person_id IS NULL) <> (union_id IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS imports (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		path         TEXT NOT NULL,
		blake3       TEXT NOT NULL,
		imported_at  TEXT NOT NULL,
		people       INTEGER NOT NULL,
		sources      INTEGER NOT NULL,
		repositories INTEGER NOT NULL,
		dropped      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_person ON facts(person_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_facts_union ON facts(union_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_relationships_person ON relationships(person_id, position)`,
}

// clearOrder deletes tree content without violating foreign keys.
var clearOrder = []string{
	`DELETE FROM facts`,
	`DELETE FROM relationships`,
	`DELETE FROM unions`,
	`DELETE FROM people`,
	`DELETE FROM sources`,
	`DELETE FROM repositories`,
	`DELETE FROM meta WHERE key = 'current_person'`,
}
