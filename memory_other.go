//go:build !linux && !darwin

package osal

import "errors"

func physicalMemory() (uint64, error) {
	return 0, errors.New("osal: physical memory size not available")
}
