// Package vmerr implements the fatal-exit taxonomy of the OS layer.
//
// Most failures in the layer are reported as nil returns or error values and
// recovered by the caller. A small set of conditions must end the process
// instead: committing memory the caller cannot run without, heap header
// corruption, and configuration errors detected during initialization. Those
// paths funnel through this package so tests can intercept them.
package vmerr

import (
	"fmt"
	"os"

	"github.com/battleblow/osal/internal/vmlog"
)

// exit is the process-termination hook. Tests replace it via SetExitHook.
var exit func(code int, msg string) = defaultExit

func defaultExit(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}

// SetExitHook replaces the process-exit behavior and returns the previous
// hook. Intended for tests; the hook must not return if it wants to preserve
// fatal semantics (test hooks typically panic instead).
func SetExitHook(h func(code int, msg string)) func(int, string) {
	old := exit
	exit = h
	return old
}

// Fatal reports an unrecoverable internal error and terminates the process.
func Fatal(format string, args ...any) {
	msg := "fatal error: " + fmt.Sprintf(format, args...)
	vmlog.L.Error(msg)
	exit(2, msg)
}

// ExitDuringInitialization reports a configuration or environment problem
// found before the runtime is up, then terminates.
func ExitDuringInitialization(format string, args ...any) {
	msg := "error occurred during initialization of VM\n" + fmt.Sprintf(format, args...)
	vmlog.L.Error(msg)
	exit(1, msg)
}

// ExitOutOfMemory terminates the process for an allocation failure at a
// site that cannot tolerate one. size is the failed request.
func ExitOutOfMemory(size uint64, site string) {
	msg := fmt.Sprintf("native memory exhausted: failed to allocate %d bytes (%s)", size, site)
	vmlog.L.Error(msg)
	exit(1, msg)
}
