package bits

import "unsafe"

// HostLittleEndian reports the byte order of the host. The hex dumper's
// output format depends on it, so it is computed once from a live word
// rather than derived from GOARCH.
var HostLittleEndian = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()
