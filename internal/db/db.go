package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDB opens (or creates) a SQLite database at the given path, ensuring
// that the parent directory exists.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	return db, nil
}

// PathFromURL turns a storage connection string into a SQLite file path.
// "sqlite:///x" names the relative path x and "sqlite:////x" the absolute
// path /x. "sqlite3://", "file:" and plain paths are also accepted.
func PathFromURL(dsn string) string {
	for _, scheme := range []string{"sqlite", "sqlite3"} {
		if rest, ok := strings.CutPrefix(dsn, scheme+":///"); ok {
			return rest
		}
		if rest, ok := strings.CutPrefix(dsn, scheme+"://"); ok {
			return rest
		}
	}
	if rest, ok := strings.CutPrefix(dsn, "file:"); ok {
		return rest
	}
	return dsn
}

// postgresScheme matches "postgres://", "postgresql://" and driver-qualified
// forms such as "postgresql+psycopg2://".
var postgresScheme = regexp.MustCompile(`^postgres(?:ql)?(\+[A-Za-z0-9_]+)?://`)

// IsPostgresURL reports whether dsn names a PostgreSQL server.
func IsPostgresURL(dsn string) bool {
	return postgresScheme.MatchString(dsn)
}

// IsSQLiteURL reports whether dsn should be served by the SQLite backend.
func IsSQLiteURL(dsn string) bool {
	return !IsPostgresURL(dsn)
}

// PostgresDSN drops a "+driver" suffix from the scheme so pgx accepts the URL.
func PostgresDSN(dsn string) string {
	m := postgresScheme.FindStringSubmatchIndex(dsn)
	if m == nil || m[2] < 0 {
		return dsn
	}
	return dsn[:m[2]] + dsn[m[3]:]
}

// InitSchema creates the messages table.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
			text TEXT NOT NULL CHECK (length(text) <= 4000),
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_created_at ON chat_messages(created_at);
	`)
	return err
}

// WaitReady pings until the database answers or attempts run out.
func WaitReady(ctx context.Context, ping func(context.Context) error, attempts int, wait time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("database not ready after %d attempts: %w", attempts, err)
}
