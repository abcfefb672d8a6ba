package chip8

import (
	"iter"
)

// Line is one assembled source line: its source location, load address,
// parsed words, and emitted bytes. LinkLabel names a label whose address
// still has to be patched into the final instruction bytes.
type Line struct {
	LineNo    int
	Addr      int
	Words     []string
	Bytes     []byte
	LinkLabel string
}

// Program is an assembled listing, retaining enough source information to
// map a runtime address back to the line that produced it.
type Program struct {
	Lines []Line
}

// Binary returns the ROM image: every emitted byte in load order,
// beginning at ROM_LOAD_ADDR.
func (prog *Program) Binary() (bin []byte) {
	for _, line := range prog.Lines {
		bin = append(bin, line.Bytes...)
	}

	return
}

// LineNo returns the source line number covering addr, or 0 when addr
// falls outside the listing.
func (prog *Program) LineNo(addr uint16) (lineno int) {
	for _, line := range prog.Lines {
		if int(addr) >= line.Addr && int(addr) < line.Addr+len(line.Bytes) {
			return line.LineNo
		}
	}

	return
}

// Listing iterates over address/line pairs in load order.
func (prog *Program) Listing() iter.Seq2[uint16, Line] {
	return func(yield func(addr uint16, line Line) bool) {
		for _, line := range prog.Lines {
			if !yield(uint16(line.Addr), line) {
				return
			}
		}
	}
}
