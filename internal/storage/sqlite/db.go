// Package sqlite implements the storage interfaces using SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// WAL keeps history reads from blocking behind recorder flushes; the busy
// timeout absorbs the occasional write/checkpoint collision instead of
// surfacing SQLITE_BUSY to callers.
const dsnPragmas = "_pragma=journal_mode(WAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=foreign_keys(1)"

// Store implements storage.Store over two pools: a single-connection writer
// (SQLite permits one writer at a time, so queueing in the pool beats
// contending on the file lock) and a multi-connection reader.
type Store struct {
	write *sql.DB
	read  *sql.DB
}

// New opens the database at dsn, applies any pending migrations, and returns
// the Store. ":memory:" is accepted for tests; it gets a shared cache so both
// pools see the same data.
func New(dsn string) (*Store, error) {
	uri := "file:" + dsn + "?" + dsnPragmas
	if dsn == ":memory:" {
		uri = "file::memory:?mode=memory&cache=shared&" + dsnPragmas
	}

	write, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open write db: %w", err)
	}
	write.SetMaxOpenConns(1)

	read, err := sql.Open("sqlite", uri)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read db: %w", err)
	}
	read.SetMaxOpenConns(max(4, runtime.NumCPU()))

	if err := migrate(write); err != nil {
		write.Close()
		read.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &Store{write: write, read: read}, nil
}

// migrate applies the embedded goose migrations. fs.Sub strips the
// "migrations/" prefix so goose sees the files at the FS root.
func migrate(db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sub fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	_, err = provider.Up(context.Background())
	return err
}

// Ping verifies connectivity through the read pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.read.PingContext(ctx)
}

// Close closes both pools.
func (s *Store) Close() error {
	return errors.Join(s.write.Close(), s.read.Close())
}
