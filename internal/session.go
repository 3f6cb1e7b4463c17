package internal

import (
	"strings"
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Session is a named conversation thread as persisted under the chatSessions key
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Messages []Message `json:"messages" yaml:"messages"`
	// Timestamp is the last modification time in milliseconds since the epoch
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`
}

// Message is a single entry in a session log
type Message struct {
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
	Timestamp int64  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// NewMessage creates a message stamped with at
func NewMessage(role Role, content string, at time.Time) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: at.UnixMilli(),
	}
}

// GetTimestamp returns a time.Time from the message timestamp
func (m Message) GetTimestamp() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// LastModified returns a time.Time from the session timestamp
func (s *Session) LastModified() time.Time {
	if s.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.Timestamp)
}

// LastMessage returns the most recent message, if any
func (s *Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return &c
}

// MatchesQuery reports whether the session name contains query, ignoring case
func (s *Session) MatchesQuery(query string) bool {
	return strings.Contains(strings.ToLower(s.Name), strings.ToLower(query))
}
