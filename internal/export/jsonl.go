package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/dealerchat/internal"
)

// JSONLExporter exports sessions in JSONL format (one message per line).
// Tool messages carry their decoded result under "tool".
type JSONLExporter struct {
	interp *internal.Interpreter
}

// Export exports a session to JSONL format
func (e *JSONLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range session.Messages {
		obj := map[string]interface{}{
			"role":    msg.Role,
			"content": msg.Content,
		}

		if msg.Timestamp != 0 {
			obj["timestamp"] = msg.Timestamp
		}

		if msg.Role == internal.RoleTool {
			if result, err := e.interp.DecodeToolMessage(msg.Content); err == nil {
				obj["tool"] = result
			} else {
				internal.LogDebug("Tool message left undecoded: %v", err)
			}
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
