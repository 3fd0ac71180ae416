// Package db provides SQLite connectivity, migrations, and driver error
// classification for the membership store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Mode selects the pool flavour opened by OpenSQLite.
type Mode string

// Pool modes.
const (
	// ModeWrite opens a single-connection pool whose transactions start with
	// BEGIN IMMEDIATE, so every read inside a write transaction is serialized
	// against all other writers.
	ModeWrite Mode = "write"
	// ModeRead opens a multi-connection pool for listings.
	ModeRead Mode = "read"
)

// SQLite DSN parameters for production hardening.
const (
	defaultBusyTimeout = 5 * time.Second
	defaultSynchronous = "NORMAL"
	defaultJournalMode = "WAL"
	defaultReadConns   = 4
)

// Options tunes OpenSQLite. Zero values select defaults.
type Options struct {
	BusyTimeout time.Duration
	ReadConns   int
}

// OpenSQLite opens a *sql.DB pool for the given SQLite file path.
//
//   - ModeWrite: MaxOpenConns=1, _txlock=immediate
//   - ModeRead:  MaxOpenConns=opts.ReadConns (default 4)
//
// Both modes set WAL journal, busy_timeout, synchronous=NORMAL and foreign_keys=on.
func OpenSQLite(path string, mode Mode, opts Options) (*sql.DB, error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be %q or %q", mode, ModeRead, ModeWrite)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	switch mode {
	case ModeWrite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case ModeRead:
		n := opts.ReadConns
		if n <= 0 {
			n = defaultReadConns
		}
		db.SetMaxOpenConns(n)
		db.SetMaxIdleConns(n)
	}
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return db, nil
}

// OpenSQLitePair opens the write pool and a read pool for the same file.
// Membership transitions must run on writeDB; readDB serves listings.
func OpenSQLitePair(path string, opts Options) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, ModeWrite, opts)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = OpenSQLite(path, ModeRead, opts)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

func buildDSN(path string, mode Mode, opts Options) string {
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}

	params := url.Values{}
	params.Set("_journal_mode", defaultJournalMode)
	params.Set("_busy_timeout", strconv.FormatInt(busy.Milliseconds(), 10))
	params.Set("_synchronous", defaultSynchronous)
	params.Set("_foreign_keys", "on")

	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}

	return path + "?" + params.Encode()
}
