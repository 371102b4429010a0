// Package threads maps managed thread priorities onto the host scheduler
// and validates the stack geometry the runtime hands to new threads.
package threads

import (
	"errors"
	"fmt"

	"github.com/battleblow/osal/internal/bits"
)

// Managed thread priorities. CriticalPriority sits above the public range
// and is reserved for the concurrent GC thread.
type Priority int

const (
	MinPriority      Priority = 1
	NormPriority     Priority = 5
	MaxPriority      Priority = 10
	CriticalPriority Priority = 11
)

// Thread is the scheduling view of a runtime thread.
type Thread interface {
	// OSID is the kernel thread id priority calls operate on.
	OSID() int
	// IsConcurrentGC marks the one thread allowed CriticalPriority.
	IsConcurrentGC() bool
}

// ErrInvalidPriority rejects priorities outside the managed range.
var ErrInvalidPriority = errors.New("threads: priority out of range")

// SetPriority maps p through the platform translation table and applies it
// to the thread. CriticalPriority is only honored for the concurrent GC
// thread.
func SetPriority(t Thread, p Priority) error {
	switch {
	case p >= MinPriority && p <= MaxPriority:
	case p == CriticalPriority && t.IsConcurrentGC():
	default:
		return fmt.Errorf("%w: %d", ErrInvalidPriority, p)
	}
	return setNativePriority(t, javaToOSPriority[p])
}

// GetPriority reads the thread's OS priority and maps it back by scanning
// the translation table from MaxPriority down. The comparison direction
// follows the platform sign convention: on niceness systems a smaller OS
// value is a higher priority.
func GetPriority(t Thread) (Priority, error) {
	osPrio, err := getNativePriority(t)
	if err != nil {
		return 0, err
	}
	p := MaxPriority
	if invertedPriorities {
		for p > MinPriority && javaToOSPriority[p] < osPrio {
			p--
		}
	} else {
		for p > MinPriority && javaToOSPriority[p] > osPrio {
			p--
		}
	}
	return p, nil
}

// StackRole names the three thread kinds with distinct stack minima.
type StackRole int

const (
	RoleManaged StackRole = iota
	RoleCompiler
	RoleVMInternal
)

func (r StackRole) String() string {
	switch r {
	case RoleManaged:
		return "Java thread"
	case RoleCompiler:
		return "compiler thread"
	case RoleVMInternal:
		return "VM internal thread"
	}
	return "unknown thread"
}

// StackConfig carries the configured stack sizes and the zone geometry
// minimum-size validation depends on.
type StackConfig struct {
	PageSize   uintptr
	OSMinimum  uintptr
	GuardZone  uintptr
	ShadowZone uintptr

	// Baseline minima per role, before zones and rounding. Platform ports
	// supply these.
	MinManaged    uintptr
	MinCompiler   uintptr
	MinVMInternal uintptr

	// Configured sizes; zero means the platform default and is not checked.
	ManagedStackSize    uintptr
	CompilerStackSize   uintptr
	VMInternalStackSize uintptr
}

// StackMinima is the validated per-role minimum stack sizes.
type StackMinima struct {
	Managed    uintptr
	Compiler   uintptr
	VMInternal uintptr
}

// SetMinimumStackSizes computes the per-role minimum stack sizes and
// checks the configured sizes against them. The managed minimum absorbs the
// guard and shadow zones since those pages are unusable by frames. A
// configured size below its minimum is a configuration error the user must
// fix, reported with the smallest acceptable value.
func SetMinimumStackSizes(cfg StackConfig) (StackMinima, error) {
	if cfg.PageSize == 0 || !bits.IsPowerOf2(uint64(cfg.PageSize)) {
		return StackMinima{}, errors.New("threads: page size must be a nonzero power of two")
	}

	min := StackMinima{
		Managed:    roleMinimum(cfg.MinManaged+cfg.GuardZone+cfg.ShadowZone, cfg),
		Compiler:   roleMinimum(cfg.MinCompiler, cfg),
		VMInternal: roleMinimum(cfg.MinVMInternal, cfg),
	}

	checks := []struct {
		role       StackRole
		configured uintptr
		minimum    uintptr
	}{
		{RoleManaged, cfg.ManagedStackSize, min.Managed},
		{RoleCompiler, cfg.CompilerStackSize, min.Compiler},
		{RoleVMInternal, cfg.VMInternalStackSize, min.VMInternal},
	}
	for _, c := range checks {
		if c.configured != 0 && c.configured < c.minimum {
			return StackMinima{}, fmt.Errorf(
				"The %s stack size specified is too small. Specify at least %dk",
				c.role, c.minimum/1024)
		}
	}
	return min, nil
}

func roleMinimum(base uintptr, cfg StackConfig) uintptr {
	m := bits.AlignUp(base, cfg.PageSize)
	if m < cfg.OSMinimum {
		m = bits.AlignUp(cfg.OSMinimum, cfg.PageSize)
	}
	return m
}

// StackShadowPagesAvailable reports whether sp leaves room for a frame of
// frameSize bytes above the shadow-zone limit. stackEnd is the lowest
// usable address of the thread stack; zoneSize covers the guard and shadow
// zones together.
func StackShadowPagesAvailable(sp, stackEnd, zoneSize, frameSize uintptr) bool {
	limit := stackEnd + zoneSize
	return sp > limit+frameSize
}
