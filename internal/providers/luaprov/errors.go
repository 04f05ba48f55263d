package luaprov

import "errors"

var (
	// ErrStateClosed is returned when calling into a closed state.
	ErrStateClosed = errors.New("luaprov: state is closed")

	// ErrNoComplete is returned for scripts that define no complete function.
	ErrNoComplete = errors.New("luaprov: script defines no complete function")

	// ErrBadResult is returned when complete returns something other than a
	// list of strings or tables.
	ErrBadResult = errors.New("luaprov: complete returned an invalid result")

	// ErrTimeout is returned when a complete call exceeds its budget.
	ErrTimeout = errors.New("luaprov: script timed out")
)
