package llm

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const systemPrompt = `You complete code in a text editor. You receive a JSON object with the
buffer language, the text before and after the cursor, the partial word at
the cursor and the maximum number of proposals. Reply with JSON only, in the
form {"completions": ["..."]}. Every completion replaces the partial word, so
it must start with it. Prefer short completions that finish the current
token or statement. Never repeat text that already follows the cursor.`

// Request is one completion request to a backend.
type Request struct {
	Language string
	Before   string
	After    string
	Word     string
	Max      int
}

// userPrompt encodes req as the JSON document described in systemPrompt.
func userPrompt(req Request) string {
	doc := "{}"
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"language", req.Language},
		{"before", req.Before},
		{"after", req.After},
		{"word", req.Word},
		{"max", req.Max},
	} {
		doc, _ = sjson.Set(doc, kv.path, kv.value)
	}
	return doc
}

// parseCompletions extracts the completion list from a model reply. Code
// fences around the JSON are tolerated. Entries that do not extend word
// are dropped, as are duplicates.
func parseCompletions(reply, word string, limit int) ([]string, error) {
	reply = stripFence(reply)
	if !gjson.Valid(reply) {
		return nil, ErrBadResponse
	}
	list := gjson.Get(reply, "completions")
	if !list.IsArray() {
		if root := gjson.Parse(reply); root.IsArray() {
			list = root
		} else {
			return nil, ErrBadResponse
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, v := range list.Array() {
		s := strings.TrimRight(v.String(), " \t\n")
		if s == "" || s == word || !strings.HasPrefix(s, word) || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
