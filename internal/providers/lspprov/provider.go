// Package lspprov proposes completions from a language server.
//
// The server process is started on the first request and reused. Every
// request first syncs the whole buffer (didOpen, then didChange when the
// text differs), then asks for textDocument/completion at the cursor.
// Snippet-format items are expanded on activation and text edits replace
// the range the server asked for.
package lspprov

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/providers/snippets"
)

// DefaultTimeout bounds one completion request, including a server start.
const DefaultTimeout = 5 * time.Second

// Config configures a Provider.
type Config struct {
	Command  string
	Args     []string
	Root     string
	Priority int
	Timeout  time.Duration
}

// Provider completes through a language server.
type Provider struct {
	completion.ProviderBase

	cfg Config
	log *logrus.Entry

	// dial starts a client. Tests replace it.
	dial   func(ctx context.Context) (*Client, error)
	dialMu sync.Mutex

	mu       sync.Mutex
	client   *Client
	triggers map[rune]bool
	closed   bool
}

// New creates a provider that starts cfg.Command on first use.
func New(cfg Config, log logrus.FieldLogger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}
	p := &Provider{
		cfg:      cfg,
		log:      logging.Component(log, "lspprov").WithField("command", cfg.Command),
		triggers: make(map[rune]bool),
	}
	p.dial = func(ctx context.Context) (*Client, error) {
		if p.cfg.Command == "" {
			return nil, ErrNoCommand
		}
		return Start(ctx, p.cfg.Command, p.cfg.Args, p.cfg.Root, log)
	}
	return p
}

// NewWithClient creates a provider over an established client.
func NewWithClient(c *Client, cfg Config, log logrus.FieldLogger) *Provider {
	p := New(cfg, log)
	p.setClient(c)
	return p
}

// Title returns the server command, or "LSP".
func (p *Provider) Title() string {
	if p.cfg.Command != "" {
		return filepath.Base(p.cfg.Command)
	}
	return "LSP"
}

// Priority returns the configured priority.
func (p *Provider) Priority(*completion.Context) int { return p.cfg.Priority }

// IsTrigger reports whether the server listed ch as a trigger character.
// Nothing triggers before the server is running.
func (p *Provider) IsTrigger(_ completion.TriggerBuffer, _ int, ch rune) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.triggers[ch]
}

func (p *Provider) setClient(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = c
	p.triggers = make(map[rune]bool)
	for _, s := range c.TriggerCharacters() {
		for _, r := range s {
			p.triggers[r] = true
		}
	}
}

// connect returns the running client, starting one when there is none or
// the previous server went away.
func (p *Provider) connect(ctx context.Context) (*Client, error) {
	p.dialMu.Lock()
	defer p.dialMu.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if c := p.client; c != nil {
		select {
		case <-c.Done():
			p.log.Warn("language server connection lost; restarting")
			p.client = nil
		default:
			p.mu.Unlock()
			return c, nil
		}
	}
	p.mu.Unlock()

	c, err := p.dial(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		_ = c.Close(ctx)
		return nil, ErrClosed
	}
	p.setClient(c)
	return c, nil
}

// Close shuts the server down.
func (p *Provider) Close() error {
	p.mu.Lock()
	c := p.client
	p.client = nil
	p.closed = true
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.Close(ctx)
}

type request struct {
	doc      protocol.DocumentURI
	language string
	text     string
	cursor   int
	trigger  string
	index    *lineIndex
}

// PopulateAsync snapshots the buffer and queries the server on a
// background goroutine.
func (p *Provider) PopulateAsync(ctx context.Context, cc *completion.Context, done func(completion.ListModel, error)) {
	begin, end, ok := cc.Bounds()
	if !ok {
		done(nil, completion.ErrNotSupported)
		return
	}
	buf := cc.Buffer()
	req := request{
		doc:      p.documentURI(buf, cc.Language()),
		language: cc.Language(),
		text:     buf.Slice(0, buf.Len()),
		cursor:   end,
	}
	if cc.Activation() == completion.Triggered && begin == end && begin > 0 {
		req.trigger = string(buf.RuneAt(begin - 1))
	}
	word := cc.Word()

	completion.RunAsync(ctx, cc, func(ctx context.Context) (completion.ListModel, error) {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		items, incomplete, err := p.complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return &results{
			FilteredResults: completion.NewFilteredResults(items, keep(word), less),
			incomplete:      incomplete,
		}, nil
	}, done)
}

func (p *Provider) complete(ctx context.Context, req request) ([]completion.Proposal, bool, error) {
	c, err := p.connect(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := c.Sync(ctx, req.doc, req.language, req.text); err != nil {
		return nil, false, fmt.Errorf("lspprov: sync: %w", err)
	}
	req.index = newLineIndex(req.text)
	list, err := c.Complete(ctx, req.doc, req.index.position(req.cursor), req.trigger)
	if err != nil {
		return nil, false, fmt.Errorf("lspprov: completion: %w", err)
	}

	lineStart := req.index.lines[req.index.position(req.cursor).Line]
	items := make([]completion.Proposal, 0, len(list.Items))
	for i, it := range list.Items {
		items = append(items, newProposal(it, i, req.index, lineStart, req.cursor))
	}
	p.log.WithFields(logrus.Fields{
		"items":      len(items),
		"incomplete": list.IsIncomplete,
	}).Debug("completion")
	return items, list.IsIncomplete, nil
}

func (p *Provider) documentURI(buf any, language string) protocol.DocumentURI {
	if f, ok := buf.(interface{ Filename() string }); ok && f.Filename() != "" {
		if abs, err := filepath.Abs(f.Filename()); err == nil {
			return uri.File(abs)
		}
	}
	name := "untitled"
	if language != "" {
		name += "." + language
	}
	return uri.File(filepath.Join(p.cfg.Root, name))
}

// Refilter narrows complete lists. Incomplete lists are requeried.
func (p *Provider) Refilter(cc *completion.Context, model completion.ListModel) bool {
	r, ok := model.(*results)
	if !ok || r.incomplete {
		return false
	}
	r.SetFilter(keep(cc.Word()))
	return true
}

// KeyActivates reports whether ev is one of the item's commit characters.
func (p *Provider) KeyActivates(prop completion.Proposal, ev key.Event) bool {
	it, ok := prop.(*proposal)
	if !ok || !ev.IsRune() || ev.Modifiers.HasCtrl() {
		return false
	}
	return strings.ContainsRune(it.commit, ev.Rune)
}

// ActivateProposal applies the item's edit, expanding snippets.
func (p *Provider) ActivateProposal(cc *completion.Context, prop completion.Proposal, _ *key.Event) {
	it, ok := prop.(*proposal)
	if !ok {
		completion.ReplaceWord(cc, completion.InsertTextOf(prop))
		return
	}
	begin, end, ok := cc.Bounds()
	if !ok {
		return
	}
	if it.editStart >= 0 && it.editStart <= begin {
		begin = it.editStart
	}

	text := it.InsertText()
	cursor := len([]rune(text))
	if it.snippet {
		text, cursor = snippets.Snippet{Body: text}.Expand(indentOf(cc.LineText()))
	}

	buf := cc.Buffer()
	buf.Delete(begin, end)
	buf.Insert(begin, text)
	buf.SetCursor(begin + cursor)
}

// FormatProposal shows the LSP kind, the label and the detail.
func (p *Provider) FormatProposal(_ *completion.Context, prop completion.Proposal, _ string) completion.Row {
	it := prop.(*proposal)
	return completion.Row{Icon: it.Kind.String(), Center: it.Label, Right: it.Detail}
}

type results struct {
	*completion.FilteredResults
	incomplete bool
}

type proposal struct {
	completion.Item
	filter    string
	sort      string
	snippet   bool
	commit    string
	editStart int
}

func newProposal(it protocol.CompletionItem, index int, li *lineIndex, lineStart, cursor int) *proposal {
	prop := &proposal{
		Item: completion.Item{
			Label:  it.Label,
			Text:   it.InsertText,
			Detail: it.Detail,
			Kind:   kindOf(it.Kind),
			Score:  index,
		},
		filter:    it.FilterText,
		sort:      it.SortText,
		snippet:   it.InsertTextFormat == protocol.InsertTextFormatSnippet,
		commit:    strings.Join(it.CommitCharacters, ""),
		editStart: -1,
	}
	if prop.filter == "" {
		prop.filter = it.Label
	}
	if prop.sort == "" {
		prop.sort = it.Label
	}
	if it.TextEdit != nil {
		prop.Text = it.TextEdit.NewText
		// Only edits on the cursor's line that end at the cursor are
		// honoured; anything else falls back to replacing the word.
		start := li.offset(it.TextEdit.Range.Start)
		if start >= lineStart && start <= cursor && li.offset(it.TextEdit.Range.End) == cursor {
			prop.editStart = start
		}
	}
	return prop
}

func keep(word string) func(completion.Proposal) bool {
	needle := completion.FoldNeedle(word)
	return func(p completion.Proposal) bool {
		if needle == "" {
			return true
		}
		_, ok := completion.FuzzyMatch(p.(*proposal).filter, needle)
		return ok
	}
}

func less(a, b completion.Proposal) bool {
	pa, pb := a.(*proposal), b.(*proposal)
	if pa.sort != pb.sort {
		return pa.sort < pb.sort
	}
	return pa.Score < pb.Score
}

func indentOf(line string) string {
	if i := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsSpace(r) }); i >= 0 {
		return line[:i]
	}
	return line
}

func kindOf(k protocol.CompletionItemKind) completion.Kind {
	switch k {
	case protocol.CompletionItemKindMethod:
		return completion.KindMethod
	case protocol.CompletionItemKindFunction, protocol.CompletionItemKindConstructor:
		return completion.KindFunction
	case protocol.CompletionItemKindField, protocol.CompletionItemKindProperty:
		return completion.KindField
	case protocol.CompletionItemKindVariable:
		return completion.KindVariable
	case protocol.CompletionItemKindClass, protocol.CompletionItemKindInterface,
		protocol.CompletionItemKindStruct, protocol.CompletionItemKindEnum,
		protocol.CompletionItemKindTypeParameter:
		return completion.KindType
	case protocol.CompletionItemKindModule:
		return completion.KindModule
	case protocol.CompletionItemKindKeyword:
		return completion.KindKeyword
	case protocol.CompletionItemKindSnippet:
		return completion.KindSnippet
	case protocol.CompletionItemKindConstant, protocol.CompletionItemKindEnumMember:
		return completion.KindConstant
	default:
		return completion.KindText
	}
}
