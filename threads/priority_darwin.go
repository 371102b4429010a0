//go:build darwin

package threads

import "golang.org/x/sys/unix"

// Niceness per managed priority; entry 0 is unused.
var javaToOSPriority = [CriticalPriority + 1]int{
	19,
	4, 3, 2, 1, 0, -1, -2, -3, -4, -5,
	-5,
}

const invertedPriorities = true

func setNativePriority(t Thread, prio int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, t.OSID(), prio)
}

func getNativePriority(t Thread) (int, error) {
	return unix.Getpriority(unix.PRIO_PROCESS, t.OSID())
}

// OSStackLimit returns the soft stack-size limit the OS imposes on new
// threads, used as the floor for the per-role minima.
func OSStackLimit() (uintptr, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &lim); err != nil {
		return 0, err
	}
	return uintptr(lim.Cur), nil
}
