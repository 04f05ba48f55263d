// Package llm proposes completions generated by a large language model.
//
// Model calls are slow and cost money, so the provider only answers
// user-requested completion (Ctrl+Space), never interactive typing.
package llm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/logging"
)

// Config configures a Provider.
type Config struct {
	Priority     int
	MaxProposals int
	// ContextRunes is how much text before the cursor is sent. A quarter of
	// it is sent from after the cursor.
	ContextRunes int
	Timeout      time.Duration
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		Priority:     50,
		MaxProposals: 5,
		ContextRunes: 2000,
		Timeout:      10 * time.Second,
	}
}

// Provider completes through a Backend.
type Provider struct {
	completion.ProviderBase

	backend Backend
	cfg     Config
	log     *logrus.Entry
}

// New creates a provider over backend.
func New(backend Backend, cfg Config, log logrus.FieldLogger) *Provider {
	def := DefaultConfig()
	if cfg.MaxProposals <= 0 {
		cfg.MaxProposals = def.MaxProposals
	}
	if cfg.ContextRunes <= 0 {
		cfg.ContextRunes = def.ContextRunes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Provider{
		backend: backend,
		cfg:     cfg,
		log:     logging.Component(log, "llm").WithField("backend", backend.Name()),
	}
}

// Title names the backend.
func (p *Provider) Title() string { return fmt.Sprintf("AI (%s)", p.backend.Name()) }

// Priority returns the configured priority.
func (p *Provider) Priority(*completion.Context) int { return p.cfg.Priority }

// PopulateAsync asks the backend for completions of the word at the
// cursor. Only user-requested completion is served.
func (p *Provider) PopulateAsync(ctx context.Context, cc *completion.Context, done func(completion.ListModel, error)) {
	if cc.Activation() != completion.UserRequested {
		done(nil, completion.ErrNotSupported)
		return
	}
	_, end, ok := cc.Bounds()
	if !ok {
		done(nil, completion.ErrNotSupported)
		return
	}
	buf := cc.Buffer()
	req := Request{
		Language: cc.Language(),
		Before:   buf.Slice(max(0, end-p.cfg.ContextRunes), end),
		After:    buf.Slice(end, min(buf.Len(), end+p.cfg.ContextRunes/4)),
		Word:     cc.Word(),
		Max:      p.cfg.MaxProposals,
	}

	completion.RunAsync(ctx, cc, func(ctx context.Context) (completion.ListModel, error) {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		start := time.Now()
		texts, err := p.backend.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("llm: %s: %w", p.backend.Name(), err)
		}
		p.log.WithFields(logrus.Fields{
			"proposals": len(texts),
			"elapsed":   time.Since(start).Round(time.Millisecond),
		}).Debug("completion")

		items := make([]completion.Proposal, len(texts))
		for i, text := range texts {
			items[i] = &completion.Item{
				Label:  label(text),
				Text:   text,
				Detail: p.backend.Name(),
				Kind:   completion.KindText,
				Score:  i,
			}
		}
		return completion.NewFilteredResults(items, keepPrefix(req.Word), nil), nil
	}, done)
}

// Refilter keeps completions that still extend the word.
func (p *Provider) Refilter(cc *completion.Context, results completion.ListModel) bool {
	f, ok := results.(*completion.FilteredResults)
	if !ok {
		return false
	}
	f.SetFilter(keepPrefix(cc.Word()))
	return true
}

// Close releases the backend's connections.
func (p *Provider) Close() error {
	if c, ok := p.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func keepPrefix(word string) func(completion.Proposal) bool {
	return func(p completion.Proposal) bool {
		return strings.HasPrefix(p.(*completion.Item).Text, word)
	}
}

// label is the first line of text, marked when more follows.
func label(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i] + " …"
	}
	return text
}
