package context

// StandardAssembler combines system prompt, history, and user message
// into a single ordered message list.
type StandardAssembler struct{}

// Assemble builds the final message list: system + history + user. The system
// entry is omitted when empty; history entries with an unknown role or no text
// are dropped.
func (a *StandardAssembler) Assemble(system string, history []Message, userMsg string) []Message {
	messages := make([]Message, 0, 1+len(history)+1)
	if system != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: system})
	}
	for _, h := range history {
		if (h.Role != RoleUser && h.Role != RoleAssistant) || h.Content == "" {
			continue
		}
		messages = append(messages, h)
	}
	messages = append(messages, Message{Role: RoleUser, Content: userMsg})
	return messages
}
