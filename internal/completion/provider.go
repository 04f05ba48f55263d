package completion

import (
	"context"
	"fmt"

	"github.com/dshills/ksense/internal/key"
)

// Provider is a pluggable source of proposals.
//
// All methods are called on the loop goroutine. PopulateAsync must return
// promptly and call done exactly once, on the loop goroutine, even when ctx
// is cancelled (pass ctx.Err()). The ListModel handed to done, or to
// Context.SetProposalsForProvider before done, may keep changing afterwards.
type Provider interface {
	// Priority orders providers within a Context; lower sorts first.
	Priority(cc *Context) int

	PopulateAsync(ctx context.Context, cc *Context, done func(ListModel, error))

	// Refilter narrows results in place for the Context's updated word.
	// It returns false when the results cannot be narrowed.
	Refilter(cc *Context, results ListModel) bool

	// IsTrigger reports whether ch, just typed before offset, should start
	// completion even though no word precedes the cursor.
	IsTrigger(buf TriggerBuffer, offset int, ch rune) bool

	// KeyActivates reports whether ev should commit p.
	KeyActivates(p Proposal, ev key.Event) bool

	// ActivateProposal applies p to the buffer. ev is the key that caused
	// activation, or nil.
	ActivateProposal(cc *Context, p Proposal, ev *key.Event)
}

// TriggerBuffer is the read-only buffer view offered to IsTrigger.
type TriggerBuffer interface {
	RuneAt(offset int) rune
	Language() string
}

// Titled providers have a human-readable name used in logs and output.
type Titled interface {
	Title() string
}

// Loader providers are prepared once when registered with an Engine.
type Loader interface {
	Load(e *Engine)
}

// Row is the rendered form of one proposal.
type Row struct {
	Icon   string
	Left   string
	Center string
	Right  string
}

// Formatter providers render their own rows. typed is the word being
// completed.
type Formatter interface {
	FormatProposal(cc *Context, p Proposal, typed string) Row
}

// FormatRow renders p through its provider, falling back to Item fields
// or fmt.Stringer.
func FormatRow(cc *Context, provider Provider, p Proposal) Row {
	typed := ""
	if cc != nil {
		typed = cc.Word()
	}
	if f, ok := provider.(Formatter); ok {
		return f.FormatProposal(cc, p, typed)
	}
	switch v := p.(type) {
	case *Item:
		return Row{Icon: v.Kind.String(), Center: v.Label, Right: v.Detail}
	case fmt.Stringer:
		return Row{Center: v.String()}
	default:
		return Row{Center: fmt.Sprint(p)}
	}
}

// ProviderTitle returns the provider's title or its Go type.
func ProviderTitle(p Provider) string {
	if t, ok := p.(Titled); ok {
		return t.Title()
	}
	return fmt.Sprintf("%T", p)
}

// ProviderBase supplies neutral defaults for the optional parts of Provider.
// Embed it and implement PopulateAsync.
type ProviderBase struct{}

// Priority returns 0.
func (ProviderBase) Priority(*Context) int { return 0 }

// Refilter returns false.
func (ProviderBase) Refilter(*Context, ListModel) bool { return false }

// IsTrigger returns false.
func (ProviderBase) IsTrigger(TriggerBuffer, int, rune) bool { return false }

// KeyActivates returns false.
func (ProviderBase) KeyActivates(Proposal, key.Event) bool { return false }

// ActivateProposal replaces the completed word with the proposal's text.
func (ProviderBase) ActivateProposal(cc *Context, p Proposal, _ *key.Event) {
	ReplaceWord(cc, InsertTextOf(p))
}

// InsertTextOf returns the text an activation of p inserts.
func InsertTextOf(p Proposal) string {
	switch v := p.(type) {
	case interface{ InsertText() string }:
		return v.InsertText()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(p)
	}
}

// ReplaceWord replaces the Context's word with s and leaves the cursor
// after it.
func ReplaceWord(cc *Context, s string) {
	if cc == nil || cc.Buffer() == nil {
		return
	}
	begin, end, ok := cc.Bounds()
	if !ok {
		return
	}
	buf := cc.Buffer()
	buf.Delete(begin, end)
	buf.Insert(begin, s)
	buf.SetCursor(begin + len([]rune(s)))
}
