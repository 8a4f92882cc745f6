package storage

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abatilo/clockwork/internal/task"
)

const frontmatterDelimiter = "---"

// ParseMarkdown parses a markdown file with YAML frontmatter into a Task.
// The body after the frontmatter holds the notes.
func ParseMarkdown(content []byte) (*task.Task, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return nil, &parseError{"missing YAML frontmatter"}
	}

	var frontmatterEnd int
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			frontmatterEnd = i
			break
		}
	}
	if frontmatterEnd == 0 {
		return nil, &parseError{"unclosed YAML frontmatter"}
	}

	var t task.Task
	yamlContent := strings.Join(lines[1:frontmatterEnd], "\n")
	if err := yaml.Unmarshal([]byte(yamlContent), &t); err != nil {
		return nil, &parseError{"invalid YAML: " + err.Error()}
	}
	if t.ID == "" {
		return nil, &parseError{"missing id"}
	}
	if !task.IsValidFrequency(t.Frequency) {
		return nil, &parseError{"invalid frequency: " + string(t.Frequency)}
	}

	if frontmatterEnd+1 < len(lines) {
		// SerializeMarkdown wraps notes in one blank line and one trailing
		// newline; everything in between is kept verbatim.
		body := strings.Join(lines[frontmatterEnd+1:], "\n")
		body = strings.TrimPrefix(body, "\n")
		t.Notes = strings.TrimSuffix(body, "\n")
	}
	t.Normalize()
	return &t, nil
}

// SerializeMarkdown converts a Task to markdown with YAML frontmatter.
func SerializeMarkdown(t *task.Task) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	enc.Close()

	buf.WriteString(frontmatterDelimiter + "\n")

	if t.Notes != "" {
		buf.WriteString("\n")
		buf.WriteString(t.Notes)
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

type parseError struct {
	msg string
}

func (e *parseError) Error() string {
	return e.msg
}
