//go:build !linux && !darwin

package threads

import "errors"

var javaToOSPriority = [CriticalPriority + 1]int{
	19,
	4, 3, 2, 1, 0, -1, -2, -3, -4, -5,
	-5,
}

const invertedPriorities = true

var errUnsupported = errors.New("threads: native priorities not supported")

func setNativePriority(Thread, int) error   { return errUnsupported }
func getNativePriority(Thread) (int, error) { return 0, errUnsupported }

// OSStackLimit is unavailable without rlimit support.
func OSStackLimit() (uintptr, error) { return 0, errUnsupported }
