package export

import (
	"fmt"
	"io"

	"github.com/iksnae/dealerchat/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format. interp decodes tool
// messages for the formats that render them; nil uses the stock defaults.
func NewExporter(format string, interp *internal.Interpreter) (Exporter, error) {
	if interp == nil {
		interp = internal.NewInterpreter(internal.DefaultBusinessDefaults())
	}
	switch format {
	case "jsonl":
		return &JSONLExporter{interp: interp}, nil
	case "md", "markdown":
		return &MarkdownExporter{interp: interp}, nil
	case "yaml":
		return &YAMLExporter{interp: interp}, nil
	case "json":
		return &JSONExporter{interp: interp}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}
