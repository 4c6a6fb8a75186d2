package context

import "github.com/stupiduntilnot/chatrelay/internal/history"

// Builder reduces stored history to the context sent upstream.
type Builder interface {
	Build(source []history.Message) []Message
}

// Assembler combines system prompt, history, and user message into a final message list.
type Assembler interface {
	Assemble(system string, history []Message, userMsg string) []Message
}
