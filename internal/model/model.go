package model

import (
	"context"

	ctxpkg "github.com/stupiduntilnot/chatrelay/internal/context"
)

// Completion is the common result of a reply generation.
type Completion struct {
	Reply        string
	InputTokens  int
	OutputTokens int
}

// Provider resolves one reply for a user message, an optional system prompt
// and prior context.
type Provider interface {
	GenerateReply(ctx context.Context, message, system string, history []ctxpkg.Message) (Completion, error)
}
