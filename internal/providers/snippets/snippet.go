package snippets

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Snippet is one template.
type Snippet struct {
	Trigger     string   `yaml:"trigger"`
	Description string   `yaml:"description,omitempty"`
	Languages   []string `yaml:"languages,omitempty"`
	Body        string   `yaml:"body"`
}

// File is the on-disk format:
//
//	snippets:
//	  - trigger: fori
//	    description: indexed loop
//	    languages: [go]
//	    body: |
//	      for ${1:i} := 0; $1 < ${2:n}; $1++ {
//	      	$0
//	      }
type File struct {
	Snippets []Snippet `yaml:"snippets"`
}

// Parse decodes snippets from r.
func Parse(r io.Reader) ([]Snippet, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("snippets: decode: %w", err)
	}
	for i, s := range f.Snippets {
		if strings.TrimSpace(s.Trigger) == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrNoTrigger, i)
		}
		if s.Body == "" {
			return nil, fmt.Errorf("%w: %s", ErrNoBody, s.Trigger)
		}
	}
	return f.Snippets, nil
}

// LoadFile reads snippets from path.
func LoadFile(path string) ([]Snippet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snips, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snips, nil
}

// Matches reports whether the snippet applies to language.
func (s Snippet) Matches(language string) bool {
	if len(s.Languages) == 0 {
		return true
	}
	for _, l := range s.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

var placeholder = regexp.MustCompile(`\$\{(\d+):([^}]*)\}|\$(\d+)`)

// Expand resolves placeholders in the body and indents continuation lines
// with indent. It returns the text and the rune offset of the final
// cursor: $0 if present, otherwise the end.
//
// ${N:text} expands to text; later $N references repeat the same text.
// A bare $N with no default expands to nothing.
func (s Snippet) Expand(indent string) (string, int) {
	body := strings.TrimSuffix(s.Body, "\n")
	defaults := make(map[string]string)
	for _, m := range placeholder.FindAllStringSubmatch(body, -1) {
		if m[1] != "" {
			if _, ok := defaults[m[1]]; !ok {
				defaults[m[1]] = m[2]
			}
		}
	}

	var out strings.Builder
	cursor := -1
	last := 0
	for _, loc := range placeholder.FindAllStringSubmatchIndex(body, -1) {
		out.WriteString(body[last:loc[0]])
		last = loc[1]

		var n string
		if loc[2] >= 0 {
			n = body[loc[2]:loc[3]]
		} else {
			n = body[loc[6]:loc[7]]
		}
		if n == "0" {
			if cursor < 0 {
				cursor = len([]rune(out.String()))
			}
			continue
		}
		out.WriteString(defaults[n])
	}
	out.WriteString(body[last:])

	text := out.String()
	if indent != "" {
		text = strings.ReplaceAll(text, "\n", "\n"+indent)
		if cursor >= 0 {
			before := []rune(out.String())[:cursor]
			cursor += strings.Count(string(before), "\n") * len([]rune(indent))
		}
	}
	if cursor < 0 {
		cursor = len([]rune(text))
	}
	return text, cursor
}
