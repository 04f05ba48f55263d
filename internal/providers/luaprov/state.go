package luaprov

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// state is a sandboxed Lua interpreter. gopher-lua states are not
// goroutine-safe; every call holds mu.
type state struct {
	L      *lua.LState
	mu     sync.Mutex
	closed bool
}

func newState() *state {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// io, os, debug and package stay closed.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &state{L: L}
}

// doString runs code, bounded by ctx.
func (s *state) doString(ctx context.Context, code string) error {
	return s.run(ctx, func() error { return s.L.DoString(code) })
}

// doFile runs a script file, bounded by ctx.
func (s *state) doFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error { return s.L.DoFile(path) })
}

func (s *state) run(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// call invokes the global function name and passes its first result to
// handle while the state is still locked.
func (s *state) call(ctx context.Context, name string, handle func(lua.LValue) error, args ...lua.LValue) error {
	return s.run(ctx, func() error {
		fn := s.L.GetGlobal(name)
		if fn.Type() != lua.LTFunction {
			return fmt.Errorf("%q is not a function (got %s)", name, fn.Type())
		}
		if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret := s.L.Get(-1)
		s.L.Pop(1)
		return handle(ret)
	})
}

// global reads a global variable.
func (s *state) global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// module installs funcs as the global table name.
func (s *state) module(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

func (s *state) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
