// Package chat holds the conversation state and the gateway to the
// model-serving collaborator.
package chat

// Message roles, matching the wire format of the model server.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the append-only message sequence for one session. It
// lives in memory only: cleared on logout, never persisted.
type Conversation struct {
	msgs []Message
}

// Append adds turns to the end of the sequence.
func (c *Conversation) Append(msgs ...Message) {
	c.msgs = append(c.msgs, msgs...)
}

// Reset clears the sequence. Invoked on logout.
func (c *Conversation) Reset() {
	c.msgs = nil
}

// Messages returns a copy of the sequence.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.msgs)
}
