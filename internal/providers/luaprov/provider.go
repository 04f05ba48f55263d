// Package luaprov runs completion providers written in Lua.
//
// A script defines a global complete function and may set a few globals
// read once at load time:
//
//	title = "Go keywords"
//	priority = 20
//	triggers = { "." }          -- characters that start completion
//	commit_characters = "("     -- characters that activate the selection
//
//	function complete(word, language, line)
//	  return { "func", { label = "fmt", detail = "package", kind = "module" } }
//	end
//
// complete runs on a background goroutine with a time budget. Scripts run
// in a sandbox without io, os, debug or module loading; a ks table offers
// ks.log(msg) and ks.fuzzy(haystack, needle).
package luaprov

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/key"
	"github.com/dshills/ksense/internal/logging"
)

// DefaultTimeout bounds one complete call.
const DefaultTimeout = 200 * time.Millisecond

// Config configures a Provider.
type Config struct {
	// Priority is used unless the script sets its own.
	Priority int
	Timeout  time.Duration
}

// Provider is a Lua-scripted completion provider.
type Provider struct {
	completion.ProviderBase

	title    string
	priority int
	timeout  time.Duration
	triggers map[rune]bool
	commit   map[rune]bool

	st  *state
	log *logrus.Entry
}

// LoadFile loads a provider script from path.
func LoadFile(path string, cfg Config, log logrus.FieldLogger) (*Provider, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return load(name, cfg, log, func(ctx context.Context, st *state) error {
		return st.doFile(ctx, path)
	})
}

// LoadString loads a provider from source code.
func LoadString(name, code string, cfg Config, log logrus.FieldLogger) (*Provider, error) {
	return load(name, cfg, log, func(ctx context.Context, st *state) error {
		return st.doString(ctx, code)
	})
}

func load(name string, cfg Config, log logrus.FieldLogger, exec func(context.Context, *state) error) (*Provider, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	p := &Provider{
		title:    name,
		priority: cfg.Priority,
		timeout:  cfg.Timeout,
		triggers: make(map[rune]bool),
		commit:   make(map[rune]bool),
		st:       newState(),
		log:      logging.Component(log, "lua").WithField("script", name),
	}
	p.st.module("ks", map[string]lua.LGFunction{
		"log":   p.luaLog,
		"fuzzy": luaFuzzy,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := exec(ctx, p.st); err != nil {
		p.st.close()
		return nil, fmt.Errorf("luaprov: load %s: %w", name, err)
	}
	if p.st.global("complete").Type() != lua.LTFunction {
		p.st.close()
		return nil, fmt.Errorf("%w: %s", ErrNoComplete, name)
	}
	p.readGlobals()
	p.log.WithFields(logrus.Fields{
		"title":    p.title,
		"priority": p.priority,
	}).Debug("script loaded")
	return p, nil
}

func (p *Provider) readGlobals() {
	if s, ok := p.st.global("title").(lua.LString); ok && s != "" {
		p.title = string(s)
	}
	if n, ok := p.st.global("priority").(lua.LNumber); ok {
		p.priority = int(n)
	}
	addRunes(p.triggers, p.st.global("triggers"))
	addRunes(p.commit, p.st.global("commit_characters"))
}

// addRunes accepts a string or a list of strings.
func addRunes(set map[rune]bool, v lua.LValue) {
	switch v := v.(type) {
	case lua.LString:
		for _, r := range string(v) {
			set[r] = true
		}
	case *lua.LTable:
		v.ForEach(func(_, item lua.LValue) {
			if s, ok := item.(lua.LString); ok {
				for _, r := range string(s) {
					set[r] = true
				}
			}
		})
	}
}

// Title returns the script's title.
func (p *Provider) Title() string { return p.title }

// Priority returns the script's priority.
func (p *Provider) Priority(*completion.Context) int { return p.priority }

// IsTrigger reports whether ch is one of the script's triggers.
func (p *Provider) IsTrigger(_ completion.TriggerBuffer, _ int, ch rune) bool {
	return p.triggers[ch]
}

// KeyActivates reports whether ev is one of the script's commit characters.
func (p *Provider) KeyActivates(_ completion.Proposal, ev key.Event) bool {
	return ev.IsRune() && !ev.Modifiers.HasCtrl() && p.commit[ev.Rune]
}

// PopulateAsync calls complete on a background goroutine.
func (p *Provider) PopulateAsync(ctx context.Context, cc *completion.Context, done func(completion.ListModel, error)) {
	word := cc.Word()
	language := cc.Language()
	line := cc.LineText()

	completion.RunAsync(ctx, cc, func(ctx context.Context) (completion.ListModel, error) {
		items, err := p.complete(ctx, word, language, line)
		if err != nil {
			return nil, err
		}
		return completion.NewFilteredResults(items, fuzzyKeep(word), nil), nil
	}, done)
}

func (p *Provider) complete(ctx context.Context, word, language, line string) ([]completion.Proposal, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var items []completion.Proposal
	err := p.st.call(callCtx, "complete", func(ret lua.LValue) error {
		var err error
		items, err = toProposals(ret)
		return err
	}, lua.LString(word), lua.LString(language), lua.LString(line))

	switch {
	case err == nil:
		return items, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, p.title, p.timeout)
	default:
		return nil, fmt.Errorf("luaprov: %s: %w", p.title, err)
	}
}

// Refilter narrows the script's results to the longer word.
func (p *Provider) Refilter(cc *completion.Context, results completion.ListModel) bool {
	f, ok := results.(*completion.FilteredResults)
	if !ok {
		return false
	}
	f.SetFilter(fuzzyKeep(cc.Word()))
	return true
}

// Close releases the interpreter.
func (p *Provider) Close() error {
	p.st.close()
	return nil
}

func fuzzyKeep(word string) func(completion.Proposal) bool {
	needle := completion.FoldNeedle(word)
	return func(prop completion.Proposal) bool {
		_, ok := completion.FuzzyMatch(prop.(*completion.Item).Label, needle)
		return ok || needle == ""
	}
}

var kindsByName = map[string]completion.Kind{
	"text":     completion.KindText,
	"keyword":  completion.KindKeyword,
	"function": completion.KindFunction,
	"func":     completion.KindFunction,
	"method":   completion.KindMethod,
	"variable": completion.KindVariable,
	"var":      completion.KindVariable,
	"field":    completion.KindField,
	"type":     completion.KindType,
	"module":   completion.KindModule,
	"snippet":  completion.KindSnippet,
	"constant": completion.KindConstant,
	"const":    completion.KindConstant,
}

func toProposals(v lua.LValue) ([]completion.Proposal, error) {
	if v == lua.LNil {
		return nil, nil
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrBadResult, v.Type())
	}

	n := tbl.Len()
	out := make([]completion.Proposal, 0, n)
	for i := 1; i <= n; i++ {
		switch e := tbl.RawGetInt(i).(type) {
		case lua.LString:
			out = append(out, &completion.Item{Label: string(e), Score: i})
		case *lua.LTable:
			label := lua.LVAsString(e.RawGetString("label"))
			if label == "" {
				return nil, fmt.Errorf("%w: entry %d has no label", ErrBadResult, i)
			}
			out = append(out, &completion.Item{
				Label:  label,
				Text:   lua.LVAsString(e.RawGetString("text")),
				Detail: lua.LVAsString(e.RawGetString("detail")),
				Kind:   kindsByName[lua.LVAsString(e.RawGetString("kind"))],
				Score:  i,
			})
		default:
			return nil, fmt.Errorf("%w: entry %d is %s", ErrBadResult, i, e.Type())
		}
	}
	return out, nil
}

func (p *Provider) luaLog(L *lua.LState) int {
	p.log.Debug(L.CheckString(1))
	return 0
}

func luaFuzzy(L *lua.LState) int {
	priority, ok := completion.FuzzyMatch(L.CheckString(1), completion.FoldNeedle(L.CheckString(2)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(priority))
	return 1
}
