package internal

import (
	"encoding/json"
	"errors"
	"strings"
)

// Fallback payload for tool_output frames that cannot be processed
const (
	toolOutputErrorName    = "error"
	toolOutputErrorMessage = "Failed to process tool output"
)

// Normalizer converts decoded frames into typed stream events
type Normalizer struct {
	interpreter *Interpreter
}

// NewNormalizer creates a new Normalizer that delegates tool outputs to interpreter
func NewNormalizer(interpreter *Interpreter) *Normalizer {
	return &Normalizer{interpreter: interpreter}
}

// Normalize converts a frame into at most one event. Unrecognized event
// types, including the empty type, yield false.
func (n *Normalizer) Normalize(frame Frame) (StreamEvent, bool) {
	switch frame.Event {
	case EventChunk:
		if strings.TrimSpace(frame.Data) == "" {
			return nil, false
		}
		return ChunkEvent{Text: frame.Data}, true
	case EventToolUse:
		return n.normalizeToolUse(frame.Data), true
	case EventToolOutput:
		return n.normalizeToolOutput(frame.Data), true
	case EventEnd:
		return EndEvent{}, true
	default:
		if frame.Event == "" {
			LogDebug("Dropping data frame with no event type")
		} else {
			LogDebug("Dropping frame with unrecognized event type %q", frame.Event)
		}
		return nil, false
	}
}

// normalizeToolUse accepts either a bare tool name or {name|tool, parameters|args}
func (n *Normalizer) normalizeToolUse(data string) ToolUseEvent {
	raw := strings.TrimSpace(data)
	event := ToolUseEvent{Name: raw, Parameters: map[string]any{}}

	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil || obj == nil {
		return event
	}

	if name, ok := firstString(obj, "name", "tool"); ok {
		event.Name = name
	}
	if params, ok := firstObject(obj, "parameters", "args"); ok {
		event.Parameters = params
	}
	return event
}

func (n *Normalizer) normalizeToolOutput(data string) ToolOutputEvent {
	raw, err := parseRawToolOutput(data)
	if err != nil {
		LogDebug("%v", &ParseError{Source: EventToolOutput, Key: excerpt(data), Err: err})
		return ToolOutputEvent{Result: NewToolResult(RawToolOutput{
			Name:   toolOutputErrorName,
			Output: toolOutputErrorMessage,
		})}
	}
	return ToolOutputEvent{Result: n.interpreter.Interpret(CallSiteStream, raw.Name, raw.Output)}
}

// parseRawToolOutput requires a JSON object with non-empty string name and output
func parseRawToolOutput(data string) (RawToolOutput, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return RawToolOutput{}, err
	}
	return rawToolOutputFromObject(obj)
}

func rawToolOutputFromObject(obj map[string]any) (RawToolOutput, error) {
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return RawToolOutput{}, errors.New("tool output has no name")
	}
	output, ok := obj["output"].(string)
	if !ok || output == "" {
		return RawToolOutput{}, errors.New("tool output has no output text")
	}
	return RawToolOutput{Name: name, Output: output}, nil
}

func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func firstObject(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if m, ok := obj[k].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}
