package export

import (
	"encoding/json"
	"time"

	"github.com/iksnae/dealerchat/internal"
)

// sessionDocument is the exported form of a session for the structured
// formats. Tool messages keep their stored content and add the decoded result.
type sessionDocument struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Timestamp int64             `json:"timestamp" yaml:"timestamp"`
	Updated   string            `json:"updated,omitempty" yaml:"updated,omitempty"`
	Messages  []messageDocument `json:"messages" yaml:"messages"`
}

type messageDocument struct {
	Role      internal.Role `json:"role" yaml:"role"`
	Content   string        `json:"content" yaml:"content"`
	Timestamp int64         `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Tool      any           `json:"tool,omitempty" yaml:"tool,omitempty"`
}

func newSessionDocument(session *internal.Session, interp *internal.Interpreter) sessionDocument {
	doc := sessionDocument{
		ID:        session.ID,
		Name:      session.Name,
		Timestamp: session.Timestamp,
		Messages:  make([]messageDocument, 0, len(session.Messages)),
	}
	if session.Timestamp != 0 {
		doc.Updated = session.LastModified().UTC().Format(time.RFC3339)
	}

	for _, msg := range session.Messages {
		m := messageDocument{Role: msg.Role, Content: msg.Content, Timestamp: msg.Timestamp}
		if msg.Role == internal.RoleTool {
			m.Tool = decodedTool(interp, msg.Content)
		}
		doc.Messages = append(doc.Messages, m)
	}
	return doc
}

// decodedTool returns the tool result as plain maps so every encoder renders
// the same {"type","data"} shape. Undecodable content yields nil.
func decodedTool(interp *internal.Interpreter, content string) any {
	result, err := interp.DecodeToolMessage(content)
	if err != nil {
		internal.LogDebug("Tool message left undecoded: %v", err)
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		internal.LogDebug("Tool result not encodable: %v", err)
		return nil
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	return generic
}
