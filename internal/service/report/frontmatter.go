package report

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// Frontmatter represents YAML frontmatter for markdown files
type Frontmatter struct {
	fields map[string]interface{}
	order  []string // Track insertion order
}

// NewFrontmatter creates a new frontmatter instance
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{
		fields: make(map[string]interface{}),
		order:  make([]string, 0),
	}
}

// Set adds or updates a field in the frontmatter
func (f *Frontmatter) Set(key string, value interface{}) {
	if _, exists := f.fields[key]; !exists {
		f.order = append(f.order, key)
	}
	f.fields[key] = value
}

// Get retrieves a field value
func (f *Frontmatter) Get(key string) (interface{}, bool) {
	v, ok := f.fields[key]
	return v, ok
}

// Keys returns the field names in insertion order.
func (f *Frontmatter) Keys() []string {
	return append([]string(nil), f.order...)
}

// Render produces the YAML frontmatter with delimiters, keeping insertion
// order. An empty frontmatter renders as "".
func (f *Frontmatter) Render() (string, error) {
	if len(f.fields) == 0 {
		return "", nil
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range f.order {
		var value yaml.Node
		if err := value.Encode(f.fields[key]); err != nil {
			return "", fmt.Errorf("encoding frontmatter field %s: %w", key, err)
		}
		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&value,
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	return frontmatterDelimiter + "\n" + buf.String() + frontmatterDelimiter + "\n\n", nil
}

// ParseFrontmatter splits a markdown document into its frontmatter and body.
// A document without frontmatter yields an empty Frontmatter and the whole
// document as body.
func ParseFrontmatter(doc string) (*Frontmatter, string, error) {
	f := NewFrontmatter()
	if !strings.HasPrefix(doc, frontmatterDelimiter+"\n") {
		return f, doc, nil
	}
	rest := doc[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated frontmatter")
	}
	body := strings.TrimPrefix(rest[end+len(frontmatterDelimiter)+2:], "\n")

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(rest[:end]), &root); err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	if len(root.Content) == 0 {
		return f, body, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, "", fmt.Errorf("frontmatter is not a mapping")
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		var value interface{}
		if err := mapping.Content[i+1].Decode(&value); err != nil {
			return nil, "", fmt.Errorf("decoding frontmatter field %s: %w", mapping.Content[i].Value, err)
		}
		f.Set(mapping.Content[i].Value, value)
	}
	return f, body, nil
}
