package context

import (
	"testing"
	"time"

	"github.com/stupiduntilnot/chatrelay/internal/history"
)

func source(texts ...string) []history.Message {
	out := make([]history.Message, 0, len(texts))
	for i, text := range texts {
		role := history.RoleUser
		if i%2 == 1 {
			role = history.RoleAssistant
		}
		out = append(out, history.Message{ID: int64(i + 1), Role: role, Text: text, Timestamp: time.Now()})
	}
	return out
}

func TestWindowBuilder_Truncate(t *testing.T) {
	b := &WindowBuilder{Enabled: true, MaxMessages: 2}
	result := b.Build(source("a", "b", "c"))
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Content != "b" || result[0].Role != "assistant" {
		t.Errorf("unexpected first entry: %+v", result[0])
	}
	if result[1].Content != "c" || result[1].Role != "user" {
		t.Errorf("unexpected second entry: %+v", result[1])
	}
}

func TestWindowBuilder_ShortSourceUnchanged(t *testing.T) {
	b := &WindowBuilder{Enabled: true, MaxMessages: 5}
	result := b.Build(source("a", "b"))
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}
	if result[0].Content != "a" || result[1].Content != "b" {
		t.Errorf("unexpected order: %+v", result)
	}
}

func TestWindowBuilder_EmptyInput(t *testing.T) {
	b := &WindowBuilder{Enabled: true, MaxMessages: 3}
	result := b.Build(nil)
	if len(result) != 0 {
		t.Fatalf("expected 0 messages, got %d", len(result))
	}
}

func TestWindowBuilder_Disabled(t *testing.T) {
	b := &WindowBuilder{Enabled: false, MaxMessages: 10}
	result := b.Build(source("a", "b", "c"))
	if result == nil || len(result) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", result)
	}
}

func TestWindowBuilder_FetchLimit(t *testing.T) {
	b := &WindowBuilder{Enabled: true, MaxMessages: 10}
	if got := b.FetchLimit(); got != 20 {
		t.Fatalf("expected 20, got %d", got)
	}
}
