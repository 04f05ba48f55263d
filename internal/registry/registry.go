// Package registry keeps the set of completion providers that apply to a
// buffer's language and reports changes to that set.
//
// Providers are registered once with the languages they serve. The set of
// active providers follows the language: switching it emits Removed for
// providers that no longer apply and Added for those that now do. An engine
// bound with Bind mirrors the active set.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dshills/ksense/internal/completion"
	"github.com/dshills/ksense/internal/logging"
	"github.com/dshills/ksense/internal/signal"
)

// Registration describes one provider.
type Registration struct {
	// Name identifies the registration.
	Name string

	// Languages lists the language ids the provider serves.
	// Empty means every language.
	Languages []string

	// Provider is the completion provider.
	Provider completion.Provider
}

// Matches reports whether the registration serves language.
func (r Registration) Matches(language string) bool {
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range r.Languages {
		if strings.EqualFold(l, language) || l == "*" {
			return true
		}
	}
	return false
}

// Set is a language-filtered provider set.
//
// Registration is safe from any goroutine. Added and Removed are emitted
// on the goroutine that caused the change, which must be the loop when an
// engine is bound.
type Set struct {
	mu       sync.RWMutex
	regs     []*Registration
	active   []*Registration
	language string
	log      *logrus.Entry

	added   signal.Signal[completion.Provider]
	removed signal.Signal[completion.Provider]
}

// New creates an empty set.
func New(log logrus.FieldLogger) *Set {
	return &Set{log: logging.Component(log, "registry")}
}

// Added is emitted when a provider becomes active.
func (s *Set) Added() *signal.Signal[completion.Provider] { return &s.added }

// Removed is emitted when a provider stops being active.
func (s *Set) Removed() *signal.Signal[completion.Provider] { return &s.removed }

// Register adds a provider. It becomes active at once if it serves the
// current language.
func (s *Set) Register(reg Registration) error {
	if reg.Provider == nil {
		return fmt.Errorf("%w: %s", ErrNilProvider, reg.Name)
	}

	s.mu.Lock()
	for _, r := range s.regs {
		if r.Name == reg.Name {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, reg.Name)
		}
	}
	r := &reg
	s.regs = append(s.regs, r)
	activate := r.Matches(s.language)
	if activate {
		s.active = append(s.active, r)
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"name":      reg.Name,
		"languages": reg.Languages,
		"active":    activate,
	}).Debug("registered")

	if activate {
		s.added.Emit(r.Provider)
	}
	return nil
}

// MustRegister registers reg and panics on error.
func (s *Set) MustRegister(reg Registration) {
	if err := s.Register(reg); err != nil {
		panic(err)
	}
}

// Unregister removes a provider by name.
func (s *Set) Unregister(name string) error {
	s.mu.Lock()
	idx := -1
	for i, r := range s.regs {
		if r.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	r := s.regs[idx]
	s.regs = append(s.regs[:idx], s.regs[idx+1:]...)
	wasActive := s.deactivate(r)
	s.mu.Unlock()

	if wasActive {
		s.removed.Emit(r.Provider)
	}
	return nil
}

// Language returns the language the active set is filtered by.
func (s *Set) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage refilters the active set for language.
func (s *Set) SetLanguage(language string) {
	s.mu.Lock()
	if s.language == language && s.active != nil {
		s.mu.Unlock()
		return
	}
	s.language = language

	var added, removed []completion.Provider
	for _, r := range s.regs {
		wants := r.Matches(language)
		has := s.isActive(r)
		switch {
		case wants && !has:
			s.active = append(s.active, r)
			added = append(added, r.Provider)
		case !wants && has:
			s.deactivate(r)
			removed = append(removed, r.Provider)
		}
	}
	if s.active == nil {
		s.active = []*Registration{}
	}
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"language": language,
		"added":    len(added),
		"removed":  len(removed),
	}).Debug("language changed")

	for _, p := range removed {
		s.removed.Emit(p)
	}
	for _, p := range added {
		s.added.Emit(p)
	}
}

// Active returns the active providers in registration order.
func (s *Set) Active() []completion.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := make(map[*Registration]int, len(s.regs))
	for i, r := range s.regs {
		order[r] = i
	}
	active := append([]*Registration(nil), s.active...)
	sort.SliceStable(active, func(i, j int) bool { return order[active[i]] < order[active[j]] })

	out := make([]completion.Provider, len(active))
	for i, r := range active {
		out[i] = r.Provider
	}
	return out
}

// Names returns all registered names, sorted.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.regs))
	for i, r := range s.regs {
		out[i] = r.Name
	}
	sort.Strings(out)
	return out
}

// Lookup returns the provider registered under name.
func (s *Set) Lookup(name string) (completion.Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.regs {
		if r.Name == name {
			return r.Provider, true
		}
	}
	return nil, false
}

// Bind makes e mirror the active set and follow the language of e's
// buffer. The returned func undoes the binding.
func (s *Set) Bind(e *completion.Engine) (unbind func()) {
	var g signal.Group
	g.Add(signal.Bind(&s.added, e.AddProvider))
	g.Add(signal.Bind(&s.removed, e.RemoveProvider))

	if buf := e.Buffer(); buf != nil {
		g.AddFunc(buf.OnLanguageChanged(s.SetLanguage))
		s.SetLanguage(buf.Language())
	}

	for _, p := range s.Active() {
		e.AddProvider(p)
	}
	return g.DisconnectAll
}

func (s *Set) isActive(r *Registration) bool {
	for _, a := range s.active {
		if a == r {
			return true
		}
	}
	return false
}

func (s *Set) deactivate(r *Registration) bool {
	for i, a := range s.active {
		if a == r {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return true
		}
	}
	return false
}
