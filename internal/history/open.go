package history

import (
	"context"
	"time"

	"github.com/stupiduntilnot/chatrelay/internal/db"
)

const (
	connectAttempts = 20
	connectWait     = 500 * time.Millisecond
)

// Open picks a backend from the connection string. Postgres URLs may carry a
// "+driver" scheme suffix, which is dropped. Postgres connections are
// retried while the server comes up; SQLite files open immediately.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if db.IsSQLiteURL(databaseURL) {
		return NewSQLiteStore(db.PathFromURL(databaseURL))
	}

	dsn := db.PostgresDSN(databaseURL)
	var store *PostgresStore
	err := db.WaitReady(ctx, func(ctx context.Context) error {
		s, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return err
		}
		store = s
		return nil
	}, connectAttempts, connectWait)
	if err != nil {
		return nil, err
	}
	return store, nil
}
