package export

import (
	"fmt"
	"io"

	"github.com/iksnae/dealerchat/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct {
	interp *internal.Interpreter
}

// Export writes the session document. Tool results appear decoded under
// "tool" so slots and confirmations read without unpacking JSON strings.
func (e *YAMLExporter) Export(session *internal.Session, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newSessionDocument(session, e.interp)); err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	return enc.Close()
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
