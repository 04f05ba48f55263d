// Package snippets proposes YAML-defined templates whose trigger fuzzily
// matches the typed word.
package snippets

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/logging"
)

// Provider completes snippet triggers.
type Provider struct {
	completion.ProviderBase

	priority int
	path     string
	log      *logrus.Entry

	mu       sync.RWMutex
	snippets []Snippet
}

// New creates a provider that loads path, if set, when registered with an
// engine.
func New(path string, priority int, log logrus.FieldLogger) *Provider {
	return &Provider{
		path:     path,
		priority: priority,
		log:      logging.Component(log, "snippets"),
	}
}

// Title returns "Snippets".
func (p *Provider) Title() string { return "Snippets" }

// Priority returns the configured priority.
func (p *Provider) Priority(*completion.Context) int { return p.priority }

// Load reads the snippet file.
func (p *Provider) Load(*completion.Engine) {
	if p.path == "" {
		return
	}
	snips, err := LoadFile(p.path)
	if err != nil {
		p.log.WithError(err).Warn("loading snippets")
		return
	}
	p.SetSnippets(snips)
	p.log.WithField("count", len(snips)).Debug("snippets loaded")
}

// SetSnippets replaces the snippet set.
func (p *Provider) SetSnippets(snips []Snippet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snippets = append([]Snippet(nil), snips...)
}

// Snippets returns the snippet set.
func (p *Provider) Snippets() []Snippet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Snippet(nil), p.snippets...)
}

// proposal carries its snippet through activation.
type proposal struct {
	completion.Item
	snippet Snippet
}

// ranker orders proposals by fuzzy match quality against needle.
type ranker struct {
	needle string
}

func (r *ranker) keep(p completion.Proposal) bool {
	_, ok := completion.FuzzyMatch(p.(*proposal).snippet.Trigger, r.needle)
	return ok
}

func (r *ranker) less(a, b completion.Proposal) bool {
	pa, _ := completion.FuzzyMatch(a.(*proposal).snippet.Trigger, r.needle)
	pb, _ := completion.FuzzyMatch(b.(*proposal).snippet.Trigger, r.needle)
	return pa < pb
}

// results is the ListModel handed to the Context; the ranker is updated in
// place on refilter.
type results struct {
	*completion.FilteredResults
	rank *ranker
}

// PopulateAsync answers synchronously from the loaded set.
func (p *Provider) PopulateAsync(_ context.Context, cc *completion.Context, done func(completion.ListModel, error)) {
	language := cc.Language()
	var items []completion.Proposal
	for _, s := range p.Snippets() {
		if !s.Matches(language) {
			continue
		}
		items = append(items, &proposal{
			Item: completion.Item{
				Label:  s.Trigger,
				Detail: s.Description,
				Kind:   completion.KindSnippet,
			},
			snippet: s,
		})
	}
	if len(items) == 0 {
		done(nil, completion.ErrNotSupported)
		return
	}

	r := &ranker{needle: completion.FoldNeedle(cc.Word())}
	done(&results{FilteredResults: completion.NewFilteredResults(items, r.keep, r.less), rank: r}, nil)
}

// Refilter re-ranks against the longer word.
func (p *Provider) Refilter(cc *completion.Context, model completion.ListModel) bool {
	res, ok := model.(*results)
	if !ok {
		return false
	}
	res.rank.needle = completion.FoldNeedle(cc.Word())
	res.SetFilter(res.rank.keep)
	return true
}

// FormatProposal shows the trigger and its description.
func (p *Provider) FormatProposal(_ *completion.Context, prop completion.Proposal, _ string) completion.Row {
	s := prop.(*proposal).snippet
	return completion.Row{
		Icon:   completion.KindSnippet.String(),
		Center: s.Trigger,
		Right:  s.Description,
	}
}

// ActivateProposal expands the snippet in place of the word, indenting it
// like the current line and leaving the cursor at $0.
func (p *Provider) ActivateProposal(cc *completion.Context, prop completion.Proposal, _ *key.Event) {
	sp, ok := prop.(*proposal)
	if !ok {
		p.ProviderBase.ActivateProposal(cc, prop, nil)
		return
	}
	begin, _, ok := cc.Bounds()
	if !ok {
		return
	}
	text, cursor := sp.snippet.Expand(leadingSpace(cc.LineText()))
	completion.ReplaceWord(cc, text)
	cc.Buffer().SetCursor(begin + cursor)
}

func leadingSpace(line string) string {
	i := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return line
	}
	return line[:i]
}
