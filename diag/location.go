// Package diag implements the crash reporter's printing primitives:
// pointer classification, hex dumps of possibly unmapped memory, symbol
// resolution, stack-walk sanity checks, timestamps, and host summaries.
// Everything here is best-effort and must hold up when the process state
// is already corrupt, so indirected reads go through the probe package and
// failures degrade to placeholder output instead of faulting.
package diag

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/probe"
	"github.com/battleblow/osal/tracker"
)

// CodeCache locates compiled-code blobs.
type CodeCache interface {
	// DescribeBlob prints one line for the blob containing addr and reports
	// whether one exists.
	DescribeBlob(w io.Writer, addr uintptr, verbose bool) bool
}

// ManagedHeap answers location queries for the collected heap.
type ManagedHeap interface {
	// PrintLocation prints one line when addr points into the heap.
	PrintLocation(w io.Writer, addr uintptr) bool
}

// JNIHandles classifies handle-table slots.
type JNIHandles interface {
	IsGlobalHandle(addr uintptr) bool
	IsWeakGlobalHandle(addr uintptr) bool
}

// ThreadStack is the live-thread view the locator needs.
type ThreadStack struct {
	Name      string
	ID        uintptr
	StackBase uintptr
	StackEnd  uintptr
}

// ThreadEnumerator yields each live managed thread and its stack range.
type ThreadEnumerator interface {
	Threads() []ThreadStack
}

// Metaspace answers class-metadata queries.
type Metaspace interface {
	Contains(addr uintptr) bool
	IsValidKlass(addr uintptr) bool
	IsValidMethod(addr uintptr) bool
	DescribeAt(w io.Writer, addr uintptr)
}

// NarrowClassDecoder expands 32-bit class pointers on 64-bit hosts.
type NarrowClassDecoder interface {
	Decode(narrow uint32) uintptr
}

// PlatformFinder is the platform-specific last-resort lookup, typically a
// dladdr-style mapping query.
type PlatformFinder interface {
	Find(w io.Writer, addr uintptr) bool
}

// LocatorOptions wires the collaborators of the "what is this pointer"
// pipeline. Every field may be nil; nil collaborators are skipped.
type LocatorOptions struct {
	CodeCache    CodeCache
	Heap         ManagedHeap
	JNI          JNIHandles
	Threads      ThreadEnumerator
	Metaspace    Metaspace
	ClassDecoder NarrowClassDecoder
	Tracker      *tracker.Tracker
	Platform     PlatformFinder
}

// Locator classifies arbitrary addresses for crash reports. Each probe in
// the pipeline either prints one line and stops the walk, or passes the
// address on. Every indirected read goes through the safe probe; the
// pipeline must survive arbitrary garbage input.
type Locator struct {
	opts LocatorOptions
}

// NewLocator returns a locator over the given collaborators.
func NewLocator(opts LocatorOptions) *Locator {
	return &Locator{opts: opts}
}

type locationStep func(w io.Writer, addr uintptr, verbose bool) bool

// PrintLocation prints a single-line description of addr.
func (l *Locator) PrintLocation(w io.Writer, addr uintptr, verbose bool) {
	steps := []locationStep{
		l.describeNull,
		l.describeCodeBlob,
		l.describeHeap,
		l.describeJNIHandle,
		l.describeThread,
		l.describeMetaspace,
		l.describeNarrowClass,
		l.describeTrackedRegion,
		l.describePlatform,
		l.describeReadableMemory,
	}
	for _, step := range steps {
		if step(w, addr, verbose) {
			return
		}
	}
	fmt.Fprintf(w, "0x%016x is an unknown value\n", addr)
}

func (l *Locator) describeNull(w io.Writer, addr uintptr, _ bool) bool {
	if addr != 0 {
		return false
	}
	fmt.Fprintln(w, "0x0 is nullptr")
	return true
}

func (l *Locator) describeCodeBlob(w io.Writer, addr uintptr, verbose bool) bool {
	return l.opts.CodeCache != nil && l.opts.CodeCache.DescribeBlob(w, addr, verbose)
}

func (l *Locator) describeHeap(w io.Writer, addr uintptr, _ bool) bool {
	return l.opts.Heap != nil && l.opts.Heap.PrintLocation(w, addr)
}

func (l *Locator) describeJNIHandle(w io.Writer, addr uintptr, _ bool) bool {
	j := l.opts.JNI
	if j == nil || !bits.IsAligned(addr, uintptr(bits.WordSize)) || !probe.IsReadable(addr) {
		return false
	}
	switch {
	case j.IsGlobalHandle(addr):
		fmt.Fprintf(w, "0x%016x is a global jni handle\n", addr)
	case j.IsWeakGlobalHandle(addr):
		fmt.Fprintf(w, "0x%016x is a weak global jni handle\n", addr)
	default:
		return false
	}
	return true
}

func (l *Locator) describeThread(w io.Writer, addr uintptr, _ bool) bool {
	if l.opts.Threads == nil {
		return false
	}
	for _, th := range l.opts.Threads.Threads() {
		if addr == th.ID {
			fmt.Fprintf(w, "0x%016x is a thread: %s\n", addr, th.Name)
			return true
		}
		if addr >= th.StackEnd && addr < th.StackBase {
			fmt.Fprintf(w, "0x%016x points into the stack for thread: %s\n", addr, th.Name)
			return true
		}
	}
	return false
}

func (l *Locator) describeMetaspace(w io.Writer, addr uintptr, _ bool) bool {
	m := l.opts.Metaspace
	if m == nil || !m.Contains(addr) {
		return false
	}
	switch {
	case m.IsValidKlass(addr):
		fmt.Fprintf(w, "0x%016x is a class: ", addr)
	case m.IsValidMethod(addr):
		fmt.Fprintf(w, "0x%016x is a method: ", addr)
	default:
		fmt.Fprintf(w, "0x%016x points into metadata\n", addr)
		return true
	}
	m.DescribeAt(w, addr)
	fmt.Fprintln(w)
	return true
}

// describeNarrowClass treats the low half of addr as a compressed class
// pointer. Only meaningful on 64-bit hosts with the upper half clear and a
// configured decoder.
func (l *Locator) describeNarrowClass(w io.Writer, addr uintptr, verbose bool) bool {
	if l.opts.ClassDecoder == nil || bits.WordSize != 8 || addr>>32 != 0 || addr == 0 {
		return false
	}
	decoded := l.opts.ClassDecoder.Decode(uint32(addr))
	m := l.opts.Metaspace
	if m == nil || !m.Contains(decoded) || !m.IsValidKlass(decoded) {
		return false
	}
	fmt.Fprintf(w, "0x%08x is a compressed pointer to class: ", addr)
	m.DescribeAt(w, decoded)
	fmt.Fprintln(w)
	return true
}

func (l *Locator) describeTrackedRegion(w io.Writer, addr uintptr, _ bool) bool {
	return l.opts.Tracker != nil && l.opts.Tracker.PrintContainingRegion(w, addr)
}

func (l *Locator) describePlatform(w io.Writer, addr uintptr, _ bool) bool {
	return l.opts.Platform != nil && l.opts.Platform.Find(w, addr)
}

// describeReadableMemory is the final fallback for mapped but unclassified
// memory: a short hex dump plus a best-effort string sniff.
func (l *Locator) describeReadableMemory(w io.Writer, addr uintptr, _ bool) bool {
	if !probe.IsReadable(addr) {
		return false
	}
	fmt.Fprintf(w, "0x%016x points into unknown readable memory:", addr)
	data := readBytes(addr, 32)
	if s, enc, ok := sniffString(data); ok {
		fmt.Fprintf(w, " %s %q\n", enc, s)
	} else {
		fmt.Fprintln(w)
	}
	aligned := bits.AlignDown(addr, uintptr(bits.WordSize))
	PrintHexDump(w, aligned, aligned+32, bits.WordSize, 32, aligned)
	return true
}

// readBytes copies up to n bytes starting at addr using word probes, so a
// partially mapped range yields the readable prefix.
func readBytes(addr uintptr, n int) []byte {
	out := make([]byte, 0, n)
	cur := addr
	for len(out) < n {
		base := bits.AlignDown(cur, uintptr(bits.WordSize))
		v, ok := probe.ReadWord(base)
		if !ok {
			break
		}
		for i := int(cur - base); i < bits.WordSize && len(out) < n; i++ {
			if bits.HostLittleEndian {
				out = append(out, byte(v>>(i*bits.BitsPerByte)))
			} else {
				out = append(out, byte(v>>((bits.WordSize-1-i)*bits.BitsPerByte)))
			}
		}
		cur = base + uintptr(bits.WordSize)
	}
	return out
}

// sniffString looks for a printable C string or UTF-16LE string at the
// start of data. Debug strings and path names dominate the unclassified
// pointers seen in crash dumps, so both encodings are worth a try.
func sniffString(data []byte) (s, encoding string, ok bool) {
	if run := printableRun(data); len(run) >= 4 {
		return run, "C string", true
	}
	dec := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder()
	decoded, err := dec.Bytes(data[:len(data)&^1])
	if err == nil {
		if run := printableRun(decoded); len(run) >= 4 {
			return run, "UTF-16 string", true
		}
	}
	return "", "", false
}

func printableRun(data []byte) string {
	var b strings.Builder
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			break
		}
		b.WriteRune(r)
		data = data[size:]
	}
	return b.String()
}
