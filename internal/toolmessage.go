package internal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// toolShape is one recognized layout of a tool message payload
type toolShape struct {
	name    string
	matches func(obj map[string]any) bool
	decode  func(i *Interpreter, content []byte, obj map[string]any) (ToolResult, error)
}

// toolShapes are probed in order; the first match decides the decode path
var toolShapes = []toolShape{
	{
		name: "typed",
		matches: func(obj map[string]any) bool {
			return truthy(obj["type"]) && truthy(obj["data"])
		},
		decode: func(_ *Interpreter, content []byte, _ map[string]any) (ToolResult, error) {
			var r ToolResult
			err := json.Unmarshal(content, &r)
			return r, err
		},
	},
	{
		name: "wrapped raw",
		matches: func(obj map[string]any) bool {
			inner, ok := obj["data"].(map[string]any)
			return ok && hasKeys(inner, "name", "output")
		},
		decode: func(i *Interpreter, _ []byte, obj map[string]any) (ToolResult, error) {
			return i.interpretRaw(obj["data"].(map[string]any))
		},
	},
	{
		name: "raw",
		matches: func(obj map[string]any) bool {
			return hasKeys(obj, "name", "output")
		},
		decode: func(i *Interpreter, _ []byte, obj map[string]any) (ToolResult, error) {
			return i.interpretRaw(obj)
		},
	},
}

// DecodeToolMessage recovers the ToolResult stored in a tool message. Typed
// results decode directly; raw {name, output} payloads are interpreted at
// the session call site.
func (i *Interpreter) DecodeToolMessage(content string) (ToolResult, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return ToolResult{}, &ParseError{Source: string(RoleTool), Key: excerpt(content), Err: err}
	}

	for _, shape := range toolShapes {
		if !shape.matches(obj) {
			continue
		}
		result, err := shape.decode(i, []byte(content), obj)
		if err != nil {
			return ToolResult{}, &ParseError{Source: shape.name, Key: excerpt(content), Err: err}
		}
		return result, nil
	}

	return ToolResult{}, &ParseError{
		Source: string(RoleTool),
		Key:    excerpt(content),
		Err:    errors.New("unrecognized tool payload shape"),
	}
}

func (i *Interpreter) interpretRaw(obj map[string]any) (ToolResult, error) {
	raw, err := rawToolOutputFromObject(obj)
	if err != nil {
		return ToolResult{}, fmt.Errorf("raw tool output: %w", err)
	}
	return i.Interpret(CallSiteSession, raw.Name, raw.Output), nil
}

func hasKeys(obj map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}
