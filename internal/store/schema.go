package store

import "database/sql"

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=NORMAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS files (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    path       TEXT NOT NULL UNIQUE,
    mtime      INTEGER NOT NULL,
    size       INTEGER NOT NULL,
    parsed_at  INTEGER,
    last_error TEXT
);

CREATE TABLE IF NOT EXISTS functions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id        INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    name           TEXT NOT NULL,
    return_type    TEXT NOT NULL,
    params_json    TEXT NOT NULL,
    signature_norm TEXT NOT NULL,
    line           INTEGER NOT NULL,
    column         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_functions_name ON functions(name);
CREATE INDEX IF NOT EXISTS idx_functions_sig ON functions(signature_norm);
CREATE INDEX IF NOT EXISTS idx_functions_file_id ON functions(file_id);
`

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}
