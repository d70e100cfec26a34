package llm

import (
	"fmt"
	"strings"
)

// Schema describes the JSON object a structured call must return
type Schema struct {
	// Name is a short label for the call kind (extraction, verification, ...)
	Name   string
	Fields []Field
}

// Field is one key of the expected JSON object
type Field struct {
	Name        string
	Type        string // JSON type as shown to the model: string, boolean, array of strings
	Description string
}

// Instructions renders the schema as a system prompt suffix
func (s Schema) Instructions() string {
	var b strings.Builder
	b.WriteString("Respond with a single JSON object and nothing else. The object must have exactly these fields:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %q (%s): %s\n", f.Name, f.Type, f.Description)
	}
	b.WriteString("Do not wrap the JSON in markdown and do not add commentary.")
	return b.String()
}

// cleanJSON strips markdown fences and any prose around the outermost JSON object
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
