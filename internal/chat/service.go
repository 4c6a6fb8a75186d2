package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	ctxpkg "github.com/stupiduntilnot/chatrelay/internal/context"
	"github.com/stupiduntilnot/chatrelay/internal/history"
	"github.com/stupiduntilnot/chatrelay/internal/metrics"
	modelpkg "github.com/stupiduntilnot/chatrelay/internal/model"
)

const (
	// MaxAskLength caps a new utterance.
	MaxAskLength = 200
	// MaxEditLength caps replacement text for an existing message.
	MaxEditLength = 2000

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// Options carries the conversation settings taken from configuration.
type Options struct {
	UseContext   bool
	MaxHistory   int
	SystemPrompt string
}

// AskResult is the reply to a new utterance.
type AskResult struct {
	Reply        string
	InputTokens  int
	OutputTokens int
}

// Service runs ask, update, edit-and-regenerate, history and reset against a
// single conversation. A nil store disables persistence.
type Service struct {
	store    history.Store
	provider modelpkg.Provider
	builder  *ctxpkg.WindowBuilder
	system   string
	logger   zerolog.Logger

	// editMu serializes the read-rewrite-read section of EditAndRegenerate.
	editMu sync.Mutex
}

// NewService wires the orchestrator. Pass a nil store to run without persistence.
func NewService(store history.Store, provider modelpkg.Provider, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		builder:  &ctxpkg.WindowBuilder{Enabled: opts.UseContext, MaxMessages: opts.MaxHistory},
		system:   strings.TrimSpace(opts.SystemPrompt),
		logger:   logger.With().Str("component", "chat").Logger(),
	}
}

// PersistenceEnabled reports whether history is stored.
func (s *Service) PersistenceEnabled() bool {
	return s.store != nil
}

func validateText(text string, max int) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if utf8.RuneCountInString(text) > max {
		return ErrMessageTooLong
	}
	return nil
}

// before keeps only messages older than id: the context for a turn never
// contains the turn itself.
func before(msgs []history.Message, id int64) []history.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.ID < id {
			out = append(out, m)
		}
	}
	return out
}

// Ask records the utterance, asks upstream with recent context and records
// the reply. An upstream failure leaves the recorded utterance in place.
func (s *Service) Ask(ctx context.Context, message, system string) (AskResult, error) {
	if err := validateText(message, MaxAskLength); err != nil {
		return AskResult{}, err
	}
	sys := strings.TrimSpace(system)
	if sys == "" {
		sys = s.system
	}

	contextMsgs := []ctxpkg.Message{}
	if s.store != nil {
		userMsg, err := s.store.Append(ctx, history.RoleUser, message)
		if err != nil {
			return AskResult{}, fmt.Errorf("record user message: %w", err)
		}
		metrics.MessagesStored.WithLabelValues(string(history.RoleUser)).Inc()

		if s.builder.Enabled {
			recent, err := s.store.ListRecent(ctx, s.builder.FetchLimit())
			if err != nil {
				return AskResult{}, fmt.Errorf("load context: %w", err)
			}
			contextMsgs = s.builder.Build(before(recent, userMsg.ID))
		}
	}

	completion, err := s.provider.GenerateReply(ctx, message, sys, contextMsgs)
	if err != nil {
		s.logger.Warn().Err(err).Int("context_messages", len(contextMsgs)).Msg("reply generation failed")
		return AskResult{}, err
	}

	if s.store != nil {
		if _, err := s.store.Append(ctx, history.RoleAssistant, completion.Reply); err != nil {
			return AskResult{}, fmt.Errorf("record assistant message: %w", err)
		}
		metrics.MessagesStored.WithLabelValues(string(history.RoleAssistant)).Inc()
	}

	s.logger.Info().
		Int("context_messages", len(contextMsgs)).
		Int("tokens_input", completion.InputTokens).
		Int("tokens_output", completion.OutputTokens).
		Msg("reply generated")

	return AskResult{
		Reply:        completion.Reply,
		InputTokens:  completion.InputTokens,
		OutputTokens: completion.OutputTokens,
	}, nil
}

// History returns up to limit of the newest messages, oldest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Message, error) {
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, ErrInvalidLimit
	}
	if s.store == nil {
		return []history.Message{}, nil
	}
	return s.store.ListRecent(ctx, limit)
}

func (s *Service) editable(ctx context.Context, id int64) error {
	target, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load message %d: %w", id, err)
	}
	if target == nil {
		return ErrNotFound
	}
	if target.Role != history.RoleUser {
		return ErrNotEditable
	}
	return nil
}

// UpdateMessage replaces the text of a user message without touching later
// messages.
func (s *Service) UpdateMessage(ctx context.Context, id int64, text string) (*history.Message, error) {
	if s.store == nil {
		return nil, ErrPersistenceDisabled
	}
	if err := validateText(text, MaxEditLength); err != nil {
		return nil, err
	}
	if err := s.editable(ctx, id); err != nil {
		return nil, err
	}
	updated, err := s.store.Edit(ctx, id, text)
	if err != nil {
		return nil, fmt.Errorf("update message %d: %w", id, err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// EditAndRegenerate rewrites a user message, deletes everything after it and
// generates a fresh reply. The deletion is committed before the upstream call
// and is not undone if that call fails.
func (s *Service) EditAndRegenerate(ctx context.Context, id int64, text string) (*history.Message, *history.Message, error) {
	if s.store == nil {
		return nil, nil, ErrPersistenceDisabled
	}
	if err := validateText(text, MaxEditLength); err != nil {
		return nil, nil, err
	}

	updated, prefix, err := s.rewrite(ctx, id, text)
	if err != nil {
		return nil, nil, err
	}
	contextMsgs := s.builder.Build(before(prefix, id))

	completion, err := s.provider.GenerateReply(ctx, updated.Text, "", contextMsgs)
	if err != nil {
		s.logger.Warn().Err(err).Int64("message_id", id).Msg("regeneration failed; truncated tail stays deleted")
		return nil, nil, err
	}

	assistant, err := s.store.Append(ctx, history.RoleAssistant, completion.Reply)
	if err != nil {
		return nil, nil, fmt.Errorf("record assistant message: %w", err)
	}
	metrics.MessagesStored.WithLabelValues(string(history.RoleAssistant)).Inc()

	s.logger.Info().
		Int64("message_id", id).
		Int64("assistant_id", assistant.ID).
		Int("context_messages", len(contextMsgs)).
		Msg("reply regenerated")
	return updated, assistant, nil
}

func (s *Service) rewrite(ctx context.Context, id int64, text string) (*history.Message, []history.Message, error) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	if err := s.editable(ctx, id); err != nil {
		return nil, nil, err
	}
	updated, deleted, err := s.store.Rewrite(ctx, id, text)
	if err != nil {
		return nil, nil, fmt.Errorf("rewrite message %d: %w", id, err)
	}
	if updated == nil {
		return nil, nil, ErrNotFound
	}
	metrics.MessagesTruncated.Add(float64(deleted))
	s.logger.Info().Int64("message_id", id).Int64("deleted", deleted).Msg("conversation truncated after edit")

	if !s.builder.Enabled {
		return updated, nil, nil
	}
	prefix, err := s.store.ListUpTo(ctx, id, s.builder.FetchLimit())
	if err != nil {
		return nil, nil, fmt.Errorf("load context: %w", err)
	}
	return updated, prefix, nil
}

// Reset deletes the whole conversation and returns how many messages were
// removed. Without persistence it is a no-op.
func (s *Service) Reset(ctx context.Context) (int64, error) {
	if s.store == nil {
		return 0, nil
	}
	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	s.logger.Info().Int64("deleted", n).Msg("history cleared")
	return n, nil
}
