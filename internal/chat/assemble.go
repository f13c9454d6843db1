package chat

// Assemble builds the ordered message list for the upstream provider: one
// system message carrying the behavioral directive and the supplied
// context, the retained history oldest-first, then the new user message.
// The result always has len(req.History)+2 entries.
func Assemble(directive string, req *ValidatedRequest) []Message {
	messages := make([]Message, 0, len(req.History)+2)

	system := directive
	if req.Context != "" {
		system = directive + "\n\n" + req.Context
	}
	messages = append(messages, Message{Role: MessageRoleSystem, Content: system})

	for _, turn := range req.History {
		messages = append(messages, Message{
			Role:    turn.Role.String(),
			Content: turn.Content,
		})
	}

	return append(messages, Message{Role: MessageRoleUser, Content: req.Message})
}
