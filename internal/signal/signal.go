// Package signal provides typed observer lists.
//
// A Signal replaces string-keyed event dispatch for a single event type:
// owners expose a *Signal[T], observers Connect a func(T), and the owner
// Emits values synchronously on its own goroutine. Signals are not safe for
// concurrent use; they belong to the goroutine that owns the emitter.
package signal

// HandlerID identifies a connected handler. The zero value is never issued.
type HandlerID uint64

type handler[T any] struct {
	id      HandlerID
	fn      func(T)
	blocked int
	removed bool
}

// Signal is an ordered list of handlers for events of type T.
// The zero value is ready to use.
type Signal[T any] struct {
	next     HandlerID
	handlers []*handler[T]
}

// Connect registers fn and returns its id. Handlers run in connection order.
func (s *Signal[T]) Connect(fn func(T)) HandlerID {
	s.next++
	s.handlers = append(s.handlers, &handler[T]{id: s.next, fn: fn})
	return s.next
}

// Disconnect removes the handler with the given id.
// It is safe to call from inside a handler, including the handler itself.
// Returns false if the id is unknown.
func (s *Signal[T]) Disconnect(id HandlerID) bool {
	for i, h := range s.handlers {
		if h.id == id {
			h.removed = true
			s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
			return true
		}
	}
	return false
}

// Block suppresses delivery to the handler until a matching Unblock.
func (s *Signal[T]) Block(id HandlerID) {
	if h := s.find(id); h != nil {
		h.blocked++
	}
}

// Unblock reverses one Block call.
func (s *Signal[T]) Unblock(id HandlerID) {
	if h := s.find(id); h != nil && h.blocked > 0 {
		h.blocked--
	}
}

// Emit delivers v to every connected, unblocked handler.
// Handlers connected during emission do not see the current value.
func (s *Signal[T]) Emit(v T) {
	if len(s.handlers) == 0 {
		return
	}
	snapshot := make([]*handler[T], len(s.handlers))
	copy(snapshot, s.handlers)
	for _, h := range snapshot {
		if h.removed || h.blocked > 0 {
			continue
		}
		h.fn(v)
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	return len(s.handlers)
}

// Clear disconnects every handler.
func (s *Signal[T]) Clear() {
	for _, h := range s.handlers {
		h.removed = true
	}
	s.handlers = nil
}

func (s *Signal[T]) find(id HandlerID) *handler[T] {
	for _, h := range s.handlers {
		if h.id == id {
			return h
		}
	}
	return nil
}

// Connection pairs a signal with one of its handler ids so the handler can
// be disconnected without knowing the event type.
type Connection interface {
	Disconnect()
}

type connection[T any] struct {
	s  *Signal[T]
	id HandlerID
}

func (c connection[T]) Disconnect() {
	c.s.Disconnect(c.id)
}

// Bind connects fn and returns a Connection for later disconnection.
func Bind[T any](s *Signal[T], fn func(T)) Connection {
	return connection[T]{s: s, id: s.Connect(fn)}
}

// Group collects connections and disconnects them together.
type Group struct {
	conns []Connection
}

// Add records a connection.
func (g *Group) Add(c Connection) {
	g.conns = append(g.conns, c)
}

// AddFunc records a disconnect function.
func (g *Group) AddFunc(fn func()) {
	g.conns = append(g.conns, funcConnection(fn))
}

// DisconnectAll disconnects every recorded connection in reverse order.
func (g *Group) DisconnectAll() {
	for i := len(g.conns) - 1; i >= 0; i-- {
		g.conns[i].Disconnect()
	}
	g.conns = nil
}

type funcConnection func()

func (f funcConnection) Disconnect() { f() }
