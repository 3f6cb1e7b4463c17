package internal

// Event types recognized on the wire
const (
	EventChunk      = "chunk"
	EventToolUse    = "tool_use"
	EventToolOutput = "tool_output"
	EventEnd        = "end"
)

// Frame is one (eventType, payload) unit extracted from the raw stream
type Frame struct {
	Event string
	Data  string
}

// StreamEvent is a normalized frame. It is one of ChunkEvent, ToolUseEvent,
// ToolOutputEvent or EndEvent.
type StreamEvent interface {
	EventType() string
}

// ChunkEvent carries a piece of assistant text
type ChunkEvent struct {
	Text string
}

// ToolUseEvent reports that the backend started a tool invocation
type ToolUseEvent struct {
	Name       string
	Parameters map[string]any
}

// ToolOutputEvent carries an interpreted tool result
type ToolOutputEvent struct {
	Result ToolResult
}

// EndEvent marks the end of a response stream
type EndEvent struct{}

func (ChunkEvent) EventType() string      { return EventChunk }
func (ToolUseEvent) EventType() string    { return EventToolUse }
func (ToolOutputEvent) EventType() string { return EventToolOutput }
func (EndEvent) EventType() string        { return EventEnd }
