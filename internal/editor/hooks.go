package editor

import (
	"sort"

	"github.com/dshills/ksense/internal/key"
)

// HookPriority orders key hooks. Lower values run first.
type HookPriority int

const (
	// HookPriorityHigh runs before normal hooks.
	HookPriorityHigh HookPriority = -100
	// HookPriorityNormal is the default priority.
	HookPriorityNormal HookPriority = 0
	// HookPriorityLow runs after normal hooks.
	HookPriorityLow HookPriority = 100
)

// HookID identifies a registered key hook.
type HookID uint64

// KeyHook handles a key before the view does. Returning true consumes it.
type KeyHook func(ev key.Event) bool

type hookRegistration struct {
	id       HookID
	name     string
	priority HookPriority
	hook     KeyHook
}

// hookChain runs key hooks by priority, then registration order.
type hookChain struct {
	hooks  []hookRegistration
	nextID HookID
	sorted bool
}

func (c *hookChain) add(name string, priority HookPriority, hook KeyHook) HookID {
	c.nextID++
	c.hooks = append(c.hooks, hookRegistration{
		id:       c.nextID,
		name:     name,
		priority: priority,
		hook:     hook,
	})
	c.sorted = false
	return c.nextID
}

func (c *hookChain) remove(id HookID) bool {
	for i := range c.hooks {
		if c.hooks[i].id == id {
			c.hooks = append(c.hooks[:i], c.hooks[i+1:]...)
			return true
		}
	}
	return false
}

func (c *hookChain) names() []string {
	c.sort()
	out := make([]string, 0, len(c.hooks))
	for _, h := range c.hooks {
		out = append(out, h.name)
	}
	return out
}

func (c *hookChain) sort() {
	if c.sorted {
		return
	}
	sort.SliceStable(c.hooks, func(i, j int) bool {
		if c.hooks[i].priority != c.hooks[j].priority {
			return c.hooks[i].priority < c.hooks[j].priority
		}
		return c.hooks[i].id < c.hooks[j].id
	})
	c.sorted = true
}

// dispatch runs hooks until one consumes ev. Hooks may be removed while
// dispatching.
func (c *hookChain) dispatch(ev key.Event) bool {
	c.sort()
	snapshot := append([]hookRegistration(nil), c.hooks...)
	for _, h := range snapshot {
		if !c.has(h.id) {
			continue
		}
		if h.hook(ev) {
			return true
		}
	}
	return false
}

func (c *hookChain) has(id HookID) bool {
	for _, h := range c.hooks {
		if h.id == id {
			return true
		}
	}
	return false
}
