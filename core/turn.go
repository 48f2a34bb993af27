package core

import "sync"

// Role is the closed set of conversation roles.
type Role string

const (
	// RoleSystem marks instruction turns. Never pruned.
	RoleSystem Role = "system"
	// RoleUser marks the originating user query. Never pruned.
	RoleUser Role = "user"
	// RoleAssistant marks model output turns.
	RoleAssistant Role = "assistant"
	// RoleToolResult marks results returned from tools or workers.
	RoleToolResult Role = "tool_result"
)

// Turn is one entry of the model-facing conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// NewTurn builds a turn with Size derived from the content length.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content, Size: len(content)}
}

// Anchor reports whether the turn must survive history pruning. System
// turns and the originating user turn anchor the conversation.
func (t Turn) Anchor() bool {
	return t.Role == RoleSystem || t.Role == RoleUser
}

// Conversation is the coordinator's model-facing turn history for one query.
// It is append-only until the budget manager evicts interior turns
// wholesale. A single coordinator goroutine mutates it; reads take
// defensive copies so concurrent inspection (tests, logging) stays safe.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a turn to the end of the history.
func (c *Conversation) Append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
}

// Turns returns a copy of the turn history.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Replace swaps the full history for the provided turns. Used by the budget
// manager after pruning; the eviction is hard and non-recoverable.
func (c *Conversation) Replace(turns []Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = make([]Turn, len(turns))
	copy(c.turns, turns)
}

// Clone returns an independent copy safe for divergent mutation.
func (c *Conversation) Clone() *Conversation {
	return &Conversation{turns: c.Turns()}
}
