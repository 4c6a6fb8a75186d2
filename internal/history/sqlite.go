package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stupiduntilnot/chatrelay/internal/db"
)

// SQLiteStore keeps the conversation in a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	database, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return &SQLiteStore{db: database, now: time.Now}, nil
}

const sqliteColumns = `id, role, text, created_at`

func scanSQLite(row interface{ Scan(...any) error }) (Message, error) {
	var (
		m    Message
		role string
		ms   int64
	)
	if err := row.Scan(&m.ID, &role, &m.Text, &ms); err != nil {
		return Message{}, err
	}
	m.Role = Role(role)
	m.Timestamp = time.UnixMilli(ms).UTC()
	return m, nil
}

func (s *SQLiteStore) Append(ctx context.Context, role Role, text string) (*Message, error) {
	if err := checkAppend(role, text); err != nil {
		return nil, err
	}
	ts := time.UnixMilli(s.now().UnixMilli()).UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (role, text, created_at) VALUES (?, ?, ?)`,
		string(role), text, ts.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get message id: %w", err)
	}
	return &Message{ID: id, Role: role, Text: text, Timestamp: ts}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Message, error) {
	return getSQLite(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getSQLite(ctx context.Context, q queryRower, id int64) (*Message, error) {
	m, err := scanSQLite(q.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM chat_messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &m, nil
}

func (s *SQLiteStore) Edit(ctx context.Context, id int64, text string) (*Message, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE chat_messages SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return nil, fmt.Errorf("update message %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}
	return s.query(ctx,
		`SELECT `+sqliteColumns+` FROM chat_messages ORDER BY id DESC LIMIT ?`, true, limit)
}

func (s *SQLiteStore) ListUpTo(ctx context.Context, id int64, limit int) ([]Message, error) {
	if limit > 0 {
		return s.query(ctx,
			`SELECT `+sqliteColumns+` FROM chat_messages WHERE id <= ? ORDER BY id DESC LIMIT ?`, true, id, limit)
	}
	return s.query(ctx,
		`SELECT `+sqliteColumns+` FROM chat_messages WHERE id <= ? ORDER BY id ASC`, false, id)
}

func (s *SQLiteStore) query(ctx context.Context, query string, newestFirst bool, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		m, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if newestFirst {
		reverse(msgs)
	}
	return msgs, nil
}

func (s *SQLiteStore) DeleteAfter(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE id > ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete after %d: %w", id, err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages`)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Rewrite(ctx context.Context, id int64, text string) (*Message, int64, error) {
	if err := checkText(text); err != nil {
		return nil, 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin rewrite: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE chat_messages SET text = ? WHERE id = ?`, text, id)
	if err != nil {
		return nil, 0, fmt.Errorf("update message %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, 0, nil
	}
	res, err = tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE id > ?`, id)
	if err != nil {
		return nil, 0, fmt.Errorf("delete after %d: %w", id, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, 0, err
	}
	m, err := getSQLite(ctx, tx, id)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit rewrite: %w", err)
	}
	return m, deleted, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
