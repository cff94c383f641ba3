package generation

import "fmt"

// TurnRole identifies the author of a conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleSystem    TurnRole = "system"
)

// Turn is a single entry in the conversation history.
type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// Request is the immutable input to a generation run. It is created at
// request entry and never mutated; the pipeline works on a ConversationContext
// derived from it.
type Request struct {
	// Prompt is the natural-language description of the project to build.
	Prompt string `json:"prompt"`

	// Category is the project category (e.g. "webapp", "api", "cli").
	Category string `json:"category,omitempty"`

	// Model selects the inference model for this run. Empty uses the
	// configured default.
	Model string `json:"model,omitempty"`

	// History is the prior conversation, oldest first.
	History []Turn `json:"history,omitempty"`

	// Files is an optional existing file set for iterative edits,
	// keyed by file name.
	Files map[string]string `json:"files,omitempty"`
}

// Validate checks that the request is well formed.
func (r *Request) Validate() error {
	if r.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	for i, t := range r.History {
		switch t.Role {
		case TurnRoleUser, TurnRoleAssistant, TurnRoleSystem:
		default:
			return fmt.Errorf("history[%d]: unknown role %q", i, t.Role)
		}
	}
	return nil
}

// Context builds the initial working context for a run: the request history
// plus the prompt as the most recent user turn, and a copy of the existing
// file set.
func (r *Request) Context() *ConversationContext {
	turns := make([]Turn, 0, len(r.History)+1)
	turns = append(turns, r.History...)
	turns = append(turns, Turn{Role: TurnRoleUser, Text: r.Prompt})

	files := make(map[string]string, len(r.Files))
	for name, content := range r.Files {
		files[name] = content
	}

	return &ConversationContext{Turns: turns, Files: files}
}
