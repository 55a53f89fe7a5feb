// Package store persists a family tree in SQLite. A database holds one
// tree; Save replaces it as a whole and records where it came from.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/FocuswithJustin/EasyTree/core/errors"
	"github.com/FocuswithJustin/EasyTree/core/family"
	"github.com/FocuswithJustin/EasyTree/core/sqlite"
	"github.com/FocuswithJustin/EasyTree/internal/logging"
)

// Provenance describes the import a saved tree came from.
type Provenance struct {
	Path         string
	Fingerprint  string // BLAKE3 of the source bytes
	ImportedAt   time.Time
	People       int
	Sources      int
	Repositories int
	Dropped      int
}

// ImportRecord is a stored Provenance.
type ImportRecord struct {
	ID int64
	Provenance
}

// Store is an open tree database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.OpenDatabase(ctx, path)
	if err != nil {
		return nil, apperrors.NewIO("open", path, err)
	}
	s := &Store{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logging.Debug("tree database opened", "path", path, "driver", sqlite.DriverType())
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Migrate creates missing tables and checks the schema version.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	var version string
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}
	if version != schemaVersion {
		return apperrors.NewValidation("schema_version", version, "unsupported database schema")
	}
	return nil
}

// Save replaces the stored tree with tree in one transaction. When
// prov.Path is set an import record is added and its id returned.
func (s *Store) Save(ctx context.Context, tree *family.Tree, prov Provenance) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range clearOrder {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("store: clear: %w", err)
		}
	}
	if err := saveRepositories(ctx, tx, tree.Repositories); err != nil {
		return 0, err
	}
	if err := saveSources(ctx, tx, tree.Sources); err != nil {
		return 0, err
	}
	if err := savePeople(ctx, tx, tree.People); err != nil {
		return 0, err
	}
	if err := saveRelationships(ctx, tx, tree.People); err != nil {
		return 0, err
	}
	if cur := tree.People.Current(); cur != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES ('current_person', ?)`, cur.ID); err != nil {
			return 0, fmt.Errorf("store: save current person: %w", err)
		}
	}

	var importID int64
	if prov.Path != "" {
		if prov.ImportedAt.IsZero() {
			prov.ImportedAt = time.Now()
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO imports (path, blake3, imported_at, people, sources, repositories, dropped)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			prov.Path, prov.Fingerprint, prov.ImportedAt.UTC().Format(time.RFC3339Nano),
			prov.People, prov.Sources, prov.Repositories, prov.Dropped)
		if err != nil {
			return 0, fmt.Errorf("store: record import: %w", err)
		}
		if importID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("store: record import: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	logging.TreeSaved(ctx, s.path, tree.People.Len(), "sources", len(tree.Sources), "repositories", len(tree.Repositories))
	return importID, nil
}

func saveRepositories(ctx context.Context, tx *sql.Tx, repos []*family.Repository) error {
	for i, r := range repos {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO repositories (id, position, name, address, note) VALUES (?, ?, ?, ?, ?)`,
			r.ID, i, r.Name, r.Address, r.Note); err != nil {
			return fmt.Errorf("store: save repository %s: %w", r.ID, err)
		}
	}
	return nil
}

func saveSources(ctx context.Context, tx *sql.Tx, sources []*family.Source) error {
	for i, src := range sources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sources (id, position, title, author, publisher, note, repository_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			src.ID, i, src.Title, src.Author, src.Publisher, src.Note, nullString(src.RepositoryID)); err != nil {
			return fmt.Errorf("store: save source %s: %w", src.ID, err)
		}
	}
	return nil
}

func savePeople(ctx context.Context, tx *sql.Tx, people *family.People) error {
	for i, p := range people.All() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO people (id, position, prefix, given, surname_prefix, surname, suffix, gender, living, restriction, note)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, i, p.Name.Prefix, p.Name.Given, p.Name.SurnamePrefix, p.Name.Surname, p.Name.Suffix,
			int(p.Gender), p.Living, int(p.Restriction), p.Note); err != nil {
			return fmt.Errorf("store: save person %s: %w", p.ID, err)
		}
		for j, f := range p.Facts {
			if err := saveFact(ctx, tx, p.ID, 0, j, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// saveFact writes a fact owned by either a person or a union.
func saveFact(ctx context.Context, tx *sql.Tx, personID string, unionID int64, position int, f family.Fact) error {
	var union sql.NullInt64
	if unionID != 0 {
		union = sql.NullInt64{Int64: unionID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO facts (person_id, union_id, position, tag, date, descriptor, place, value, source_id, page, citation_note, link)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(personID), union, position, f.Type.GedcomTag(), f.Date, f.Descriptor, f.Place, f.Value,
		nullString(f.Citation.SourceID), f.Citation.Page, f.Citation.Note, f.Citation.Link); err != nil {
		return fmt.Errorf("store: save %s fact: %w", f.Type, err)
	}
	return nil
}

// saveRelationships writes each edge once: parent edges from the child,
// spouse edges once per union and sibling edges once per pair. Load
// restores the mirrors.
func saveRelationships(ctx context.Context, tx *sql.Tx, people *family.People) error {
	unions := make(map[*family.Union]int64)
	pairs := make(map[[2]string]bool)

	for _, p := range people.All() {
		for i, r := range people.Relationships(p.ID) {
			var union sql.NullInt64
			switch r.Type {
			case family.Child:
				continue
			case family.Spouse, family.Sibling:
				key := pairKey(r.Type, p.ID, r.PersonID)
				if pairs[key] {
					continue
				}
				pairs[key] = true
				if r.Type == family.Spouse && r.Union != nil {
					id, err := saveUnion(ctx, tx, unions, r.Union)
					if err != nil {
						return err
					}
					union = sql.NullInt64{Int64: id, Valid: true}
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO relationships (person_id, position, kind, related_id, modifier, union_id)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				p.ID, i, int(r.Type), r.PersonID, int(r.Modifier), union); err != nil {
				return fmt.Errorf("store: save %s of %s: %w", r.Type, p.ID, err)
			}
		}
	}
	return nil
}

func saveUnion(ctx context.Context, tx *sql.Tx, seen map[*family.Union]int64, u *family.Union) (int64, error) {
	if id, ok := seen[u]; ok {
		return id, nil
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO unions DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("store: save union: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: save union: %w", err)
	}
	seen[u] = id
	for i, f := range []*family.Fact{u.Marriage, u.Divorce} {
		if f == nil {
			continue
		}
		if err := saveFact(ctx, tx, "", id, i, *f); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// pairKey orders the two ids so both directions of an edge share a key.
func pairKey(kind family.RelationshipType, a, b string) [2]string {
	ids := []string{a, b}
	sort.Strings(ids)
	return [2]string{kind.String() + ":" + ids[0], ids[1]}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Load rebuilds the stored tree. An empty database gives an empty tree.
func (s *Store) Load(ctx context.Context) (*family.Tree, error) {
	tree := family.NewTree()
	if err := s.loadRepositories(ctx, tree); err != nil {
		return nil, err
	}
	if err := s.loadSources(ctx, tree); err != nil {
		return nil, err
	}
	if err := s.loadPeople(ctx, tree.People); err != nil {
		return nil, err
	}
	unions, err := s.loadFacts(ctx, tree.People)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelationships(ctx, tree.People, unions); err != nil {
		return nil, err
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'current_person'`).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("store: load current person: %w", err)
	default:
		if err := tree.People.SetCurrent(current); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func (s *Store) loadRepositories(ctx context.Context, tree *family.Tree) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, note FROM repositories ORDER BY position`)
	if err != nil {
		return fmt.Errorf("store: load repositories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r := &family.Repository{}
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Note); err != nil {
			return fmt.Errorf("store: scan repository: %w", err)
		}
		tree.Repositories = append(tree.Repositories, r)
	}
	return rows.Err()
}

func (s *Store) loadSources(ctx context.Context, tree *family.Tree) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, author, publisher, note, repository_id FROM sources ORDER BY position`)
	if err != nil {
		return fmt.Errorf("store: load sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		src := &family.Source{}
		var repo sql.NullString
		if err := rows.Scan(&src.ID, &src.Title, &src.Author, &src.Publisher, &src.Note, &repo); err != nil {
			return fmt.Errorf("store: scan source: %w", err)
		}
		src.RepositoryID = repo.String
		tree.Sources = append(tree.Sources, src)
	}
	return rows.Err()
}

func (s *Store) loadPeople(ctx context.Context, people *family.People) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, prefix, given, surname_prefix, surname, suffix, gender, living, restriction, note
		 FROM people ORDER BY position`)
	if err != nil {
		return fmt.Errorf("store: load people: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			p                   family.Person
			gender, restriction int
		)
		if err := rows.Scan(&p.ID, &p.Name.Prefix, &p.Name.Given, &p.Name.SurnamePrefix, &p.Name.Surname,
			&p.Name.Suffix, &gender, &p.Living, &restriction, &p.Note); err != nil {
			return fmt.Errorf("store: scan person: %w", err)
		}
		p.Gender = family.Gender(gender)
		p.Restriction = family.Restriction(restriction)
		if err := people.Add(&p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// loadFacts attaches person facts and returns the unions keyed by id.
func (s *Store) loadFacts(ctx context.Context, people *family.People) (map[int64]*family.Union, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT person_id, union_id, tag, date, descriptor, place, value, source_id, page, citation_note, link
		 FROM facts ORDER BY person_id, union_id, position`)
	if err != nil {
		return nil, fmt.Errorf("store: load facts: %w", err)
	}
	defer rows.Close()

	unions := make(map[int64]*family.Union)
	for rows.Next() {
		var (
			f        family.Fact
			personID sql.NullString
			unionID  sql.NullInt64
			tag      string
			sourceID sql.NullString
		)
		if err := rows.Scan(&personID, &unionID, &tag, &f.Date, &f.Descriptor, &f.Place, &f.Value,
			&sourceID, &f.Citation.Page, &f.Citation.Note, &f.Citation.Link); err != nil {
			return nil, fmt.Errorf("store: scan fact: %w", err)
		}
		t, ok := family.FactTypeFromTag(tag)
		if !ok {
			return nil, apperrors.NewValidation("tag", tag, "unknown fact type")
		}
		f.Type = t
		f.Citation.SourceID = sourceID.String

		if unionID.Valid {
			u := unions[unionID.Int64]
			if u == nil {
				u = &family.Union{}
				unions[unionID.Int64] = u
			}
			fact := f
			if t == family.Divorce {
				u.Divorce = &fact
			} else {
				u.Marriage = &fact
			}
			continue
		}
		p := people.Get(personID.String)
		if p == nil {
			return nil, apperrors.NewNotFound("person", personID.String)
		}
		p.Facts = append(p.Facts, f)
	}
	return unions, rows.Err()
}

func (s *Store) loadRelationships(ctx context.Context, people *family.People, unions map[int64]*family.Union) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT person_id, kind, related_id, modifier, union_id FROM relationships ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("store: load relationships: %w", err)
	}
	defer rows.Close()

	g := people.Graph()
	for rows.Next() {
		var (
			personID, relatedID string
			kind, modifier      int
			unionID             sql.NullInt64
		)
		if err := rows.Scan(&personID, &kind, &relatedID, &modifier, &unionID); err != nil {
			return fmt.Errorf("store: scan relationship: %w", err)
		}
		m := family.Modifier(modifier)
		switch family.RelationshipType(kind) {
		case family.Parent:
			err = g.AddParentChild(relatedID, personID, m)
		case family.Spouse:
			var u *family.Union
			if unionID.Valid {
				if u = unions[unionID.Int64]; u == nil {
					u = &family.Union{}
					unions[unionID.Int64] = u
				}
			}
			err = g.AddSpouse(personID, relatedID, m, u)
		case family.Sibling:
			err = g.AddSibling(personID, relatedID)
		default:
			err = apperrors.NewValidation("kind", fmt.Sprint(kind), "unexpected stored relationship")
		}
		if err != nil {
			return apperrors.Wrapf(err, "restoring relationship of %s", personID)
		}
	}
	return rows.Err()
}

// Imports lists the recorded imports, oldest first.
func (s *Store) Imports(ctx context.Context) ([]ImportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, blake3, imported_at, people, sources, repositories, dropped FROM imports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list imports: %w", err)
	}
	defer rows.Close()

	var records []ImportRecord
	for rows.Next() {
		var (
			rec ImportRecord
			at  string
		)
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Fingerprint, &at,
			&rec.People, &rec.Sources, &rec.Repositories, &rec.Dropped); err != nil {
			return nil, fmt.Errorf("store: scan import: %w", err)
		}
		if rec.ImportedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, apperrors.NewParse("timestamp", at, err.Error())
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
