//go:build ksdebug

package check

// Debug is true in builds tagged ksdebug.
const Debug = true
