package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sigidx/internal/model"
)

// FileState is the last recorded (mtime, size) for a path. Mtime is
// unix nanoseconds.
type FileState struct {
	Mtime int64
	Size  int64
}

// Counts summarizes catalog contents for status reporting.
type Counts struct {
	Files     int64
	Functions int64
	Failed    int64
}

// Store persists file records and their function declarations. All
// mutations happen through the single pipeline writer; readers may run
// concurrently and see a consistent snapshot because every per-file
// change is one transaction.
type Store interface {
	// KnownStates returns the last recorded (mtime, size) per cleanly
	// parsed path. Files with a recorded error are left out so they
	// get retried every run until they parse or disappear.
	KnownStates() (map[string]FileState, error)
	// ApplyParsed upserts the file record and atomically replaces its
	// function set with the parsed one, clearing any prior error.
	ApplyParsed(path string, mtime, size int64, funcs []model.Function) error
	// ApplyError upserts the file record and records the parse error.
	// The file keeps any previously stored functions.
	ApplyError(path string, mtime, size int64, msg string) error
	// FetchCandidates returns unranked substring matches for a query,
	// falling back to the unfiltered top rows when a filter matched
	// nothing.
	FetchCandidates(q model.Query, limit int) ([]model.Candidate, error)
	// Counts reports file, function, and failed-file totals.
	Counts() (Counts, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and
// initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) KnownStates() (map[string]FileState, error) {
	rows, err := s.db.Query("SELECT path, mtime, size FROM files WHERE last_error IS NULL")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]FileState)
	for rows.Next() {
		var path string
		var st FileState
		if err := rows.Scan(&path, &st.Mtime, &st.Size); err != nil {
			return nil, err
		}
		states[path] = st
	}
	return states, rows.Err()
}

// upsertFile resolves or creates the file row for a path, refreshing
// mtime and size, and returns its id.
func upsertFile(tx *sql.Tx, path string, mtime, size int64) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&id)
	if err == nil {
		_, err = tx.Exec("UPDATE files SET mtime = ?, size = ? WHERE id = ?", mtime, size, id)
		return id, err
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.Exec(
		"INSERT INTO files (path, mtime, size, parsed_at, last_error) VALUES (?, ?, ?, NULL, NULL)",
		path, mtime, size,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) ApplyParsed(path string, mtime, size int64, funcs []model.Function) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fileID, err := upsertFile(tx, path, mtime, size)
	if err != nil {
		return err
	}

	// The function set is replaced as a unit so it always reflects
	// exactly one parse attempt.
	if _, err := tx.Exec("DELETE FROM functions WHERE file_id = ?", fileID); err != nil {
		return err
	}

	if len(funcs) > 0 {
		stmt, err := tx.Prepare(
			`INSERT INTO functions (file_id, name, return_type, params_json, signature_norm, line, column)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, fn := range funcs {
			paramsJSON, err := encodeParams(fn.Params)
			if err != nil {
				return fmt.Errorf("encode params for %s: %w", fn.Name, err)
			}
			if _, err := stmt.Exec(fileID, fn.Name, fn.ReturnType, paramsJSON, fn.SignatureNorm, fn.Line, fn.Column); err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(
		"UPDATE files SET parsed_at = ?, last_error = NULL WHERE id = ?",
		time.Now().UnixNano(), fileID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ApplyError(path string, mtime, size int64, msg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fileID, err := upsertFile(tx, path, mtime, size)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		"UPDATE files SET parsed_at = ?, last_error = ? WHERE id = ?",
		time.Now().UnixNano(), msg, fileID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

const candidateColumns = `
	SELECT fn.id, fi.path, fn.name, fn.return_type, fn.params_json, fn.signature_norm, fn.line, fn.column
	FROM functions AS fn
	JOIN files AS fi ON fi.id = fn.file_id
`

const candidateOrder = `
	ORDER BY fn.name COLLATE NOCASE, fi.path COLLATE NOCASE, fn.line, fn.column
	LIMIT ?
`

func (s *SQLiteStore) FetchCandidates(q model.Query, limit int) ([]model.Candidate, error) {
	var where string
	var args []any

	switch {
	case q.Name != "" && q.SignatureNorm != "":
		where = "WHERE fn.name LIKE ? OR fn.signature_norm LIKE ?"
		args = append(args, like(q.Name), like(q.SignatureNorm))
	case q.Name != "":
		where = "WHERE fn.name LIKE ?"
		args = append(args, like(q.Name))
	case q.SignatureNorm != "":
		where = "WHERE fn.signature_norm LIKE ?"
		args = append(args, like(q.SignatureNorm))
	}
	args = append(args, limit)

	rows, err := s.queryCandidates(candidateColumns+where+candidateOrder, args...)
	if err != nil {
		return nil, err
	}

	// A filter that matches nothing degrades to the unfiltered top
	// rows rather than an empty result.
	if len(rows) == 0 && where != "" {
		return s.queryCandidates(candidateColumns+candidateOrder, limit)
	}
	return rows, nil
}

func (s *SQLiteStore) queryCandidates(query string, args ...any) ([]model.Candidate, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		var paramsJSON string
		if err := rows.Scan(&c.ID, &c.Path, &c.Name, &c.ReturnType, &paramsJSON, &c.SignatureNorm, &c.Line, &c.Column); err != nil {
			return nil, err
		}
		c.Params = decodeParams(paramsJSON)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Counts() (Counts, error) {
	var c Counts
	if err := s.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&c.Files); err != nil {
		return c, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM functions").Scan(&c.Functions); err != nil {
		return c, err
	}
	err := s.db.QueryRow("SELECT COUNT(*) FROM files WHERE last_error IS NOT NULL").Scan(&c.Failed)
	return c, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func like(s string) string {
	return "%" + s + "%"
}

// Params are stored as a JSON array of [type, name] pairs, name null
// when the parameter is unnamed.
func encodeParams(params []model.Param) (string, error) {
	pairs := make([][2]*string, 0, len(params))
	for _, p := range params {
		typ := p.Type
		pair := [2]*string{&typ, nil}
		if p.Name != "" {
			name := p.Name
			pair[1] = &name
		}
		pairs = append(pairs, pair)
	}
	data, err := json.Marshal(pairs)
	return string(data), err
}

// decodeParams tolerates malformed rows by returning no params, the
// same way it tolerates an empty column.
func decodeParams(paramsJSON string) []model.Param {
	if strings.TrimSpace(paramsJSON) == "" {
		return nil
	}
	var pairs [][2]*string
	if err := json.Unmarshal([]byte(paramsJSON), &pairs); err != nil {
		return nil
	}
	params := make([]model.Param, 0, len(pairs))
	for _, pair := range pairs {
		var p model.Param
		if pair[0] != nil {
			p.Type = *pair[0]
		}
		if pair[1] != nil {
			p.Name = *pair[1]
		}
		params = append(params, p)
	}
	return params
}
