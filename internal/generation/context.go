package generation

// ConversationContext is the working copy of history and files carried
// through a run. It is owned by exactly one in-flight run. Stages that
// shrink or extend it return a new value instead of mutating in place.
type ConversationContext struct {
	// Turns is the conversation history, oldest first. The final turn is
	// always the active user request and is never dropped by compression.
	Turns []Turn `json:"turns"`

	// Files is the current file set needed for the active task.
	Files map[string]string `json:"files,omitempty"`
}

// Clone returns a deep copy of the context.
func (c *ConversationContext) Clone() *ConversationContext {
	turns := make([]Turn, len(c.Turns))
	copy(turns, c.Turns)

	files := make(map[string]string, len(c.Files))
	for name, content := range c.Files {
		files[name] = content
	}

	return &ConversationContext{Turns: turns, Files: files}
}

// WithTurn returns a copy of the context with an additional turn appended.
func (c *ConversationContext) WithTurn(t Turn) *ConversationContext {
	next := c.Clone()
	next.Turns = append(next.Turns, t)
	return next
}

// LastUserTurn returns the most recent user turn, or nil if there is none.
func (c *ConversationContext) LastUserTurn() *Turn {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == TurnRoleUser {
			return &c.Turns[i]
		}
	}
	return nil
}
