// Package index persists scanned symbols in SQLite so the symbols
// command can query past scans without re-parsing the workspace.
package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"astscope/internal/lang"
	"astscope/internal/logging"
	"astscope/internal/scan"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	ref        TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	language   TEXT NOT NULL,
	file       TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	signature  TEXT NOT NULL,
	visibility TEXT NOT NULL,
	parent     TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	doc        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS scans (
	id            TEXT PRIMARY KEY,
	root          TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	duration_ms   INTEGER NOT NULL,
	file_count    INTEGER NOT NULL,
	element_count INTEGER NOT NULL
);
`

// Store is a SQLite-backed symbol index.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the index database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logging.Index("Opened symbol index: %s", path)
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceFile transactionally replaces all symbols for a file.
// Used both by full scans and watch-mode incremental updates.
func (s *Store) ReplaceFile(file string, elements []lang.Element) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM symbols WHERE file = ?", file); err != nil {
		return fmt.Errorf("failed to delete old symbols: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO symbols
		(ref, kind, language, file, start_line, end_line, signature, visibility, parent, name, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range elements {
		e := &elements[i]
		if e.File != file {
			continue
		}
		if _, err := stmt.Exec(e.Ref, string(e.Kind), e.Language, e.File,
			e.StartLine, e.EndLine, e.Signature, string(e.Visibility),
			e.Parent, e.Name, e.Doc); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", e.Ref, err)
		}
	}

	return tx.Commit()
}

// RecordScan stores a scan report and its symbols.
func (s *Store) RecordScan(report *scan.Report) error {
	byFile := make(map[string][]lang.Element)
	for _, e := range report.Elements {
		byFile[e.File] = append(byFile[e.File], e)
	}
	for file, elements := range byFile {
		if err := s.ReplaceFile(file, elements); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(`INSERT OR REPLACE INTO scans
		(id, root, started_at, duration_ms, file_count, element_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.Root, report.StartedAt.UnixMilli(),
		report.Duration.Milliseconds(), report.FileCount, len(report.Elements))
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}

	logging.Index("Recorded scan %s: %d files, %d symbols",
		report.ID, report.FileCount, len(report.Elements))
	return nil
}

// Filter narrows a symbol query. Zero values match everything.
type Filter struct {
	Kind       string
	Language   string
	NamePrefix string
	PublicOnly bool
	Limit      int
}

// Query returns symbols matching the filter, ordered by file and line.
func (s *Store) Query(f Filter) ([]lang.Element, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, f.Language)
	}
	if f.NamePrefix != "" {
		// LIKE is case-insensitive for ASCII in SQLite; substr keeps the
		// prefix match exact. substr counts characters, not bytes.
		conds = append(conds, "substr(name, 1, ?) = ?")
		args = append(args, utf8.RuneCountInString(f.NamePrefix), f.NamePrefix)
	}
	if f.PublicOnly {
		conds = append(conds, "visibility = 'public'")
	}

	query := "SELECT ref, kind, language, file, start_line, end_line, signature, visibility, parent, name, doc FROM symbols"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY file, start_line, ref"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []lang.Element
	for rows.Next() {
		var e lang.Element
		var kind, visibility string
		if err := rows.Scan(&e.Ref, &kind, &e.Language, &e.File,
			&e.StartLine, &e.EndLine, &e.Signature, &visibility,
			&e.Parent, &e.Name, &e.Doc); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		e.Kind = lang.ElementKind(kind)
		e.Visibility = lang.Visibility(visibility)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SymbolCount returns the number of indexed symbols.
func (s *Store) SymbolCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&n)
	return n, err
}

// LastScan returns the id and element count of the most recent scan,
// or ok=false when the index is empty.
func (s *Store) LastScan() (id string, elements int, ok bool, err error) {
	row := s.db.QueryRow("SELECT id, element_count FROM scans ORDER BY started_at DESC LIMIT 1")
	switch err = row.Scan(&id, &elements); err {
	case nil:
		return id, elements, true, nil
	case sql.ErrNoRows:
		return "", 0, false, nil
	default:
		return "", 0, false, err
	}
}
