package conversation

import (
	"time"

	"github.com/spigell/hh-screener/internal/profile"
)

// Context is the mutable per-session aggregate the classifier and the state
// machine work against. The session owns it; components get read/append
// access during a turn, never delete access.
type Context struct {
	CurrentState  State
	PreviousState State

	// Intentions is the ordered history of classified intentions.
	Intentions []Intention

	// Messages is the ordered conversation history, oldest first.
	Messages []Message

	Profile *profile.Profile
	Job     *JobReference

	// Metadata is a free-form bag merged from transition context data.
	Metadata map[string]any
}

// NewContext returns a context positioned at the initial greeting state.
func NewContext() *Context {
	return &Context{
		CurrentState: StateGreeting,
		Metadata:     map[string]any{},
	}
}

// AppendMessage records one message at the end of the history, evicting the
// oldest entries when the history would exceed max (max <= 0 means
// unbounded).
func (c *Context) AppendMessage(role Role, content string, at time.Time, max int) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content, Timestamp: at})
	if max > 0 && len(c.Messages) > max {
		c.Messages = c.Messages[len(c.Messages)-max:]
	}
}

// AppendIntention records one classified intention.
func (c *Context) AppendIntention(in Intention) {
	c.Intentions = append(c.Intentions, in)
}

// HasIntention reports whether the intention occurred earlier this session.
func (c *Context) HasIntention(in Intention) bool {
	for _, prev := range c.Intentions {
		if prev == in {
			return true
		}
	}
	return false
}

// RecentMessages returns up to n most recent messages, oldest first.
func (c *Context) RecentMessages(n int) []Message {
	if n <= 0 || len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// MergeMetadata merges data into the context bag, overwriting existing keys.
func (c *Context) MergeMetadata(data map[string]any) {
	if len(data) == 0 {
		return
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	for k, v := range data {
		c.Metadata[k] = v
	}
}
