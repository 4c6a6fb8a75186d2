package context

import "github.com/stupiduntilnot/chatrelay/internal/history"

// WindowBuilder keeps only the last MaxMessages messages of a source.
type WindowBuilder struct {
	Enabled     bool
	MaxMessages int
}

var _ Builder = (*WindowBuilder)(nil)

// FetchLimit is how many rows to read from the store before windowing.
func (b *WindowBuilder) FetchLimit() int {
	return 2 * b.MaxMessages
}

// Build strips ids and timestamps and returns at most MaxMessages of the
// newest entries in chronological order. A disabled builder returns nothing.
func (b *WindowBuilder) Build(source []history.Message) []Message {
	if !b.Enabled || b.MaxMessages <= 0 {
		return []Message{}
	}
	if len(source) > b.MaxMessages {
		source = source[len(source)-b.MaxMessages:]
	}
	out := make([]Message, 0, len(source))
	for _, m := range source {
		out = append(out, Message{Role: string(m.Role), Content: m.Text})
	}
	return out
}
