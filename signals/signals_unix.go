//go:build linux || darwin

package signals

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ControlSignal triggers the attach listener or a thread dump.
const ControlSignal = int(unix.SIGQUIT)

// Name returns the mnemonic for a signal number, e.g. "SIGQUIT".
func Name(sig int) string {
	if name := unix.SignalName(syscall.Signal(sig)); name != "" {
		return name
	}
	return fmt.Sprintf("SIG%d", sig)
}

func signalNumber(s os.Signal) int {
	if ss, ok := s.(syscall.Signal); ok {
		return int(ss)
	}
	return -1
}
