// Package sqlite opens the SQLite databases family trees are saved in.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// The driver name is "sqlite" or "sqlite3" depending on the implementation,
// so open databases through this package rather than sql.Open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// busyTimeout is how long a statement waits on a locked database.
const busyTimeout = 5 * time.Second

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// DriverPackage returns the import path of the compiled-in driver.
func DriverPackage() string {
	return driverPackage
}

// Open opens a SQLite database with the compiled-in driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenDatabase opens a database for reading and writing. The pool holds a
// single connection, so the connection pragmas set here apply to every
// statement: foreign keys are enforced and writers wait on locks.
func OpenDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return db, nil
}
