package diag

import (
	"fmt"
	"io"

	"github.com/battleblow/osal/internal/bits"
	"github.com/battleblow/osal/internal/vmerr"
	"github.com/battleblow/osal/probe"
)

// printHexUnit prints one unitSize-wide value at p, or "??" per byte when
// the memory is unreadable. The value is extracted from the enclosing
// machine word so a single probe covers every unit in it and the printed
// digits match the host byte order.
func printHexUnit(w io.Writer, p uintptr, unitSize int) {
	wordBase := bits.AlignDown(p, uintptr(bits.WordSize))
	v, ok := probe.ReadWord(wordBase)
	if !ok {
		for i := 0; i < unitSize; i++ {
			io.WriteString(w, "??")
		}
		return
	}
	if unitSize == bits.WordSize {
		fmt.Fprintf(w, "%0*x", unitSize*2, v)
		return
	}
	byteOff := int(p - wordBase)
	var bitStart int
	if bits.HostLittleEndian {
		bitStart = byteOff * bits.BitsPerByte
	} else {
		bitStart = (bits.WordSize - byteOff - unitSize) * bits.BitsPerByte
	}
	fmt.Fprintf(w, "%0*x", unitSize*2, bits.Bitfield(v, bitStart, unitSize*bits.BitsPerByte))
}

// PrintHexDump writes the bytes in [start, end) as unitSize-wide hex values,
// bytesPerLine per line. Addresses are shown relative to logicalStart, which
// lets a caller dump a copied buffer under the addresses it originally
// occupied. Unreadable memory dumps as "??" and never faults.
func PrintHexDump(w io.Writer, start, end uintptr, unitSize, bytesPerLine int, logicalStart uintptr) {
	if unitSize != 1 && unitSize != 2 && unitSize != 4 && unitSize != 8 {
		vmerr.Fatal("unsupported hex dump unit size %d", unitSize)
	}
	bytesPerLine = int(bits.AlignUp(uintptr(bytesPerLine), 8))

	start = bits.AlignDown(start, uintptr(unitSize))
	logicalStart = bits.AlignDown(logicalStart, uintptr(unitSize))

	cols := 0
	for p, q := start, logicalStart; p < end; p, q = p+uintptr(unitSize), q+uintptr(unitSize) {
		if cols == 0 {
			fmt.Fprintf(w, "0x%016x:   ", q)
		} else {
			io.WriteString(w, " ")
		}
		printHexUnit(w, p, unitSize)
		cols += unitSize
		if cols >= bytesPerLine {
			io.WriteString(w, "\n")
			cols = 0
		}
	}
	if cols != 0 {
		io.WriteString(w, "\n")
	}
}

// PrintTOS dumps the 512 bytes above the stack pointer word-wide.
func PrintTOS(w io.Writer, sp uintptr) {
	fmt.Fprintf(w, "Top of Stack: (sp=0x%016x)\n", sp)
	PrintHexDump(w, sp, sp+512, bits.WordSize, 32, sp)
}

// PrintInstructions dumps the code surrounding pc, 256 bytes each side.
func PrintInstructions(w io.Writer, pc uintptr, unitSize int) {
	fmt.Fprintf(w, "Instructions: (pc=0x%016x)\n", pc)
	PrintHexDump(w, pc-256, pc+256, unitSize, 32, pc-256)
}
