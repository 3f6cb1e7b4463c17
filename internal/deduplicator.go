package internal

import "strings"

// Deduplicator guards the idempotent inserts of the fold, so a redelivered
// tool event does not add a second structured message
type Deduplicator struct{}

// NewDeduplicator creates a new Deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// HasSystemNotice reports whether a system message already carries notice
func (d *Deduplicator) HasSystemNotice(messages []Message, notice string) bool {
	for _, msg := range messages {
		if msg.Role == RoleSystem && strings.Contains(msg.Content, notice) {
			return true
		}
	}
	return false
}

// HasToolResult reports whether a tool message already mentions kind.
// The match is a substring test on the serialized content, so it is
// coarse: any earlier result of the same kind suppresses a new one, and a
// tag that occurs inside another result's JSON also matches.
func (d *Deduplicator) HasToolResult(messages []Message, kind ToolKind) bool {
	for _, msg := range messages {
		if msg.Role == RoleTool && strings.Contains(msg.Content, string(kind)) {
			return true
		}
	}
	return false
}
