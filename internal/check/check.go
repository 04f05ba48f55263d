// Package check implements precondition assertions for contract violations.
//
// Builds with the ksdebug tag panic on a failed precondition. Release builds
// log the violation at error level and let the caller return without effect.
package check

import (
	"fmt"

	"github.com/dshills/ksense/internal/logging"
)

// Violation is the panic value raised by failed preconditions in debug builds.
type Violation struct {
	Message string
}

func (v Violation) Error() string {
	return "precondition failed: " + v.Message
}

// Precondition reports whether cond holds. When it does not, debug builds
// panic with a Violation and release builds log it.
func Precondition(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	v := Violation{Message: fmt.Sprintf(format, args...)}
	if Debug {
		panic(v)
	}
	logging.Component(nil, "check").Error(v.Error())
	return false
}
