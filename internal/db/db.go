// Package db opens the SQLite database that holds admin users, the pricing
// config and the submission history.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const pingTimeout = 5 * time.Second

// pragmas are applied by the driver on every new connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open opens the database at dbPath and validates connectivity. The pool is
// limited to one connection so pricing config upserts are serialized.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", dbPath, err)
	}

	return db, nil
}

// DSN builds a modernc.org/sqlite connection string carrying the pragmas.
func DSN(dbPath string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + strings.TrimPrefix(dbPath, "file:") + sep + q.Encode()
}
