package scopestore

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// splitFrontmatter separates a leading "---\n...yaml...\n---\n" block from
// the remaining Markdown body. If no frontmatter block is present the whole
// input is returned as body with an empty frontmatter slice.
func splitFrontmatter(raw []byte) (fm []byte, body string, err error) {
	s := string(raw)
	if !strings.HasPrefix(s, frontmatterDelim) {
		return nil, s, nil
	}
	rest := s[len(frontmatterDelim):]
	rest = strings.TrimPrefix(rest, "\n")
	idx := strings.Index(rest, "\n"+frontmatterDelim)
	if idx < 0 {
		return nil, s, fmt.Errorf("scopestore: unterminated frontmatter block")
	}
	fmBlock := rest[:idx]
	remainder := rest[idx+len("\n"+frontmatterDelim):]
	remainder = strings.TrimPrefix(remainder, "\n")
	return []byte(fmBlock), remainder, nil
}

// encodeFrontmatter writes meta as a YAML frontmatter block followed by body.
func encodeFrontmatter(meta interface{}, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim)
	buf.WriteByte('\n')
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("scopestore: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("scopestore: close yaml encoder: %w", err)
	}
	buf.WriteString(frontmatterDelim)
	buf.WriteByte('\n')
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// decodeFrontmatter parses raw into meta (via YAML) and returns the body.
func decodeFrontmatter(raw []byte, meta interface{}) (body string, err error) {
	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return "", err
	}
	if len(fm) == 0 {
		return body, nil
	}
	if err := yaml.Unmarshal(fm, meta); err != nil {
		return "", fmt.Errorf("scopestore: decode frontmatter: %w", err)
	}
	return body, nil
}
