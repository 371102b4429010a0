//go:build linux

package osal

import (
	"os"
	"strconv"
	"strings"
)

// supportedPageSizes returns the base page size plus every huge-page size
// the kernel exposes under /sys/kernel/mm/hugepages.
func supportedPageSizes() []uint64 {
	sizes := []uint64{uint64(os.Getpagesize())}
	entries, err := os.ReadDir("/sys/kernel/mm/hugepages")
	if err != nil {
		return sizes
	}
	for _, e := range entries {
		name := e.Name()
		name = strings.TrimPrefix(name, "hugepages-")
		name = strings.TrimSuffix(name, "kB")
		kb, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			continue
		}
		sizes = append(sizes, kb*1024)
	}
	return sizes
}
