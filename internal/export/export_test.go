package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iksnae/dealerchat/internal"
	"gopkg.in/yaml.v3"
)

const slotsContent = `{"type":"appointment_slots","data":{"timeSlots":[{"time":"9:00 AM","available":true}],"date":"20/03/2025","dealership":"5th Avenue, New York"}}`

func sessionWithTool() *internal.Session {
	return internal.CreateTestSessionWithMessages("s1", 1742461203000, []internal.Message{
		{Role: internal.RoleUser, Content: "Any **slots**?", Timestamp: 1742461200000},
		{Role: internal.RoleSystem, Content: internal.AvailabilityNotice},
		{Role: internal.RoleTool, Content: slotsContent, Timestamp: 1742461202000},
		{Role: internal.RoleTool, Content: "garbled"},
	})
}

func export(t *testing.T, format string, session *internal.Session) string {
	t.Helper()
	exporter, err := NewExporter(format, nil)
	if err != nil {
		t.Fatalf("NewExporter(%q) error = %v", format, err)
	}
	var buf bytes.Buffer
	if err := exporter.Export(session, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	return buf.String()
}

func TestJSONLExporter_Export(t *testing.T) {
	out := export(t, "jsonl", sessionWithTool())
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4:\n%s", len(lines), out)
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not JSON: %v", err)
	}
	if first["role"] != "user" || first["timestamp"] != float64(1742461200000) {
		t.Errorf("line 0 = %v", first)
	}

	if strings.Contains(lines[1], `"timestamp"`) {
		t.Errorf("line without timestamp still has one: %s", lines[1])
	}

	var tool struct {
		Tool struct {
			Type string `json:"type"`
		} `json:"tool"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &tool); err != nil {
		t.Fatalf("line 2 is not JSON: %v", err)
	}
	if tool.Tool.Type != "appointment_slots" {
		t.Errorf("decoded tool type = %q", tool.Tool.Type)
	}
	var garbled map[string]any
	if err := json.Unmarshal([]byte(lines[3]), &garbled); err != nil {
		t.Fatalf("line 3 is not JSON: %v", err)
	}
	if _, ok := garbled["tool"]; ok {
		t.Errorf("undecodable tool message got a tool field: %s", lines[3])
	}
	if garbled["role"] != "tool" || garbled["content"] != "garbled" {
		t.Errorf("line 3 = %v", garbled)
	}
}

func TestJSONLExporter_Empty(t *testing.T) {
	if out := export(t, "jsonl", internal.CreateTestSessionWithMessages("e", 0, nil)); out != "" {
		t.Errorf("Export() = %q, want no output", out)
	}
}

func TestJSONExporter_Export(t *testing.T) {
	session := sessionWithTool()
	out := export(t, "json", session)

	var got internal.Session
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.ID != session.ID || got.Timestamp != session.Timestamp || len(got.Messages) != 4 {
		t.Errorf("round trip = %#v", got)
	}
	if !strings.Contains(out, "\n  \"name\"") {
		t.Error("JSON output is not indented")
	}

	var doc struct {
		Updated  string `json:"updated"`
		Messages []struct {
			Role string         `json:"role"`
			Tool map[string]any `json:"tool"`
		} `json:"messages"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc.Updated != "2025-03-20T09:00:03Z" {
		t.Errorf("updated = %q", doc.Updated)
	}
	if doc.Messages[2].Tool["type"] != "appointment_slots" {
		t.Errorf("decoded tool = %v", doc.Messages[2].Tool)
	}
	if doc.Messages[0].Tool != nil || doc.Messages[3].Tool != nil {
		t.Errorf("unexpected tool fields: %v, %v", doc.Messages[0].Tool, doc.Messages[3].Tool)
	}
}

func TestYAMLExporter_Export(t *testing.T) {
	session := sessionWithTool()
	out := export(t, "yaml", session)

	for _, want := range []string{"id: s1", "name: Chat s1", "role: tool", "timestamp: 1742461203000"} {
		if !strings.Contains(out, want) {
			t.Errorf("YAML output missing %q:\n%s", want, out)
		}
	}

	var got internal.Session
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if len(got.Messages) != 4 || got.Messages[2].Content != slotsContent {
		t.Errorf("round trip = %#v", got.Messages)
	}

	var doc struct {
		Messages []struct {
			Tool struct {
				Type string `yaml:"type"`
				Data struct {
					Dealership string `yaml:"dealership"`
				} `yaml:"data"`
			} `yaml:"tool"`
		} `yaml:"messages"`
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if doc.Messages[2].Tool.Type != "appointment_slots" || doc.Messages[2].Tool.Data.Dealership != "5th Avenue, New York" {
		t.Errorf("decoded tool = %+v", doc.Messages[2].Tool)
	}
	if doc.Messages[3].Tool.Type != "" {
		t.Errorf("undecodable tool message decoded as %q", doc.Messages[3].Tool.Type)
	}
}

func TestMarkdownExporter_Export(t *testing.T) {
	out := export(t, "md", sessionWithTool())

	for _, want := range []string{
		"# Chat s1",
		"**Session:** s1",
		"**Last modified:** 2025-03-20T09:00:03Z",
		"**Messages:** 4",
		"**user:** (2025-03-20T09:00:00Z)",
		`Any \*\*slots\*\*?`,
		"**system:**\n\nChecking available appointment slots...",
		"### Available Appointment Slots",
		"- **Times:** 9:00 AM",
		"_Error displaying tool output_",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"timeSlots"`) {
		t.Error("tool message rendered as raw JSON")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"**bold** and __under__", `\*\*bold\*\* and \_\_under\_\_`},
		{"```\n**kept**\n```\n**escaped**", "```\n**kept**\n```\n\\*\\*escaped\\*\\*"},
	}
	for _, tt := range tests {
		if got := escapeMarkdown(tt.input); got != tt.want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
