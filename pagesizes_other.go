//go:build !linux

package osal

import "os"

func supportedPageSizes() []uint64 {
	return []uint64{uint64(os.Getpagesize())}
}
