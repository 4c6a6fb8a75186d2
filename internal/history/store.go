package history

import (
	"context"
	"fmt"
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the persisted roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// MaxTextLength is the storage cap on message text, in runes.
const MaxTextLength = 4000

// Message is one persisted turn of the conversation.
type Message struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// Store is the ordered conversation log. Lookups that find nothing return a
// nil message and a nil error.
type Store interface {
	Append(ctx context.Context, role Role, text string) (*Message, error)
	Get(ctx context.Context, id int64) (*Message, error)
	Edit(ctx context.Context, id int64, text string) (*Message, error)

	// ListRecent returns at most limit of the newest messages, oldest first.
	ListRecent(ctx context.Context, limit int) ([]Message, error)
	// ListUpTo returns messages with id <= id, oldest first. A positive limit
	// keeps only the newest limit of them.
	ListUpTo(ctx context.Context, id int64, limit int) ([]Message, error)

	DeleteAfter(ctx context.Context, id int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	// Rewrite edits id and deletes everything after it in one transaction.
	Rewrite(ctx context.Context, id int64, text string) (*Message, int64, error)

	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

func checkAppend(role Role, text string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	return checkText(text)
}

func checkText(text string) error {
	if n := len([]rune(text)); n > MaxTextLength {
		return fmt.Errorf("text length %d exceeds storage cap %d", n, MaxTextLength)
	}
	return nil
}

// reverse flips rows fetched newest-first into chronological order.
func reverse(msgs []Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
