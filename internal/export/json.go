package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/dealerchat/internal"
)

// JSONExporter writes one pretty-printed document per session with decoded
// tool results alongside the stored messages
type JSONExporter struct {
	interp *internal.Interpreter
}

func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newSessionDocument(session, e.interp))
}

func (e *JSONExporter) Extension() string {
	return "json"
}
