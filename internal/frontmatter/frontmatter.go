// Package frontmatter splits and renders YAML frontmatter on Markdown files.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const delim = "---"

// Split separates YAML frontmatter (between leading --- delimiters) from the
// Markdown body. Without frontmatter, or with invalid YAML, the entire
// content is body and the map is nil.
func Split(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// Render writes meta as a YAML frontmatter block followed by body.
func Render(meta any, body string) ([]byte, error) {
	head, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var b bytes.Buffer
	b.WriteString(delim + "\n")
	b.Write(head)
	b.WriteString(delim + "\n\n")
	b.WriteString(strings.TrimLeft(body, "\n"))
	if !strings.HasSuffix(body, "\n") {
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

// String returns the string value of key, or "".
func String(fm map[string]any, key string) string {
	s, _ := fm[key].(string)
	return s
}

// Title returns the frontmatter "title" if present, otherwise the first H1
// heading of body, otherwise "".
func Title(fm map[string]any, body string) string {
	if s := String(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
