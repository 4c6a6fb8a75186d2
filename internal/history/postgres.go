package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the conversation in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to databaseURL and creates the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			role VARCHAR(16) NOT NULL CHECK (role IN ('user', 'assistant')),
			text VARCHAR(4000) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_created_at ON chat_messages(created_at);
	`)
	return err
}

const pgColumns = `id, role, text, created_at`

func scanPostgres(row pgx.Row) (Message, error) {
	var (
		m    Message
		role string
	)
	if err := row.Scan(&m.ID, &role, &m.Text, &m.Timestamp); err != nil {
		return Message{}, err
	}
	m.Role = Role(role)
	m.Timestamp = m.Timestamp.UTC()
	return m, nil
}

func (s *PostgresStore) Append(ctx context.Context, role Role, text string) (*Message, error) {
	if err := checkAppend(role, text); err != nil {
		return nil, err
	}
	m, err := scanPostgres(s.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (role, text) VALUES ($1, $2) RETURNING `+pgColumns,
		string(role), text))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Message, error) {
	m, err := scanPostgres(s.pool.QueryRow(ctx,
		`SELECT `+pgColumns+` FROM chat_messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &m, nil
}

func (s *PostgresStore) Edit(ctx context.Context, id int64, text string) (*Message, error) {
	if err := checkText(text); err != nil {
		return nil, err
	}
	m, err := scanPostgres(s.pool.QueryRow(ctx,
		`UPDATE chat_messages SET text = $1 WHERE id = $2 RETURNING `+pgColumns, text, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update message %d: %w", id, err)
	}
	return &m, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return []Message{}, nil
	}
	return s.query(ctx,
		`SELECT `+pgColumns+` FROM chat_messages ORDER BY id DESC LIMIT $1`, true, limit)
}

func (s *PostgresStore) ListUpTo(ctx context.Context, id int64, limit int) ([]Message, error) {
	if limit > 0 {
		return s.query(ctx,
			`SELECT `+pgColumns+` FROM chat_messages WHERE id <= $1 ORDER BY id DESC LIMIT $2`, true, id, limit)
	}
	return s.query(ctx,
		`SELECT `+pgColumns+` FROM chat_messages WHERE id <= $1 ORDER BY id ASC`, false, id)
}

func (s *PostgresStore) query(ctx context.Context, query string, newestFirst bool, args ...any) ([]Message, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		m, err := scanPostgres(rows)
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

func (s *PostgresStore) DeleteAfter(ctx context.Context, id int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE id > $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete after %d: %w", id, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages`)
	if err != nil {
		return 0, fmt.Errorf("delete all: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Rewrite(ctx context.Context, id int64, text string) (*Message, int64, error) {
	if err := checkText(text); err != nil {
		return nil, 0, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin rewrite: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := scanPostgres(tx.QueryRow(ctx,
		`UPDATE chat_messages SET text = $1 WHERE id = $2 RETURNING `+pgColumns, text, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("update message %d: %w", id, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE id > $1`, id)
	if err != nil {
		return nil, 0, fmt.Errorf("delete after %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit rewrite: %w", err)
	}
	return &m, tag.RowsAffected(), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&n)
	return n, err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
