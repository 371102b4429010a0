//go:build !linux && !darwin

package signals

import (
	"fmt"
	"os"
	"syscall"
)

// ControlSignal triggers the attach listener or a thread dump. SIGBREAK on
// Windows carries number 21.
const ControlSignal = 21

// Name returns a mnemonic for a signal number.
func Name(sig int) string {
	return fmt.Sprintf("SIG%d", sig)
}

func signalNumber(s os.Signal) int {
	if ss, ok := s.(syscall.Signal); ok {
		return int(ss)
	}
	return -1
}
