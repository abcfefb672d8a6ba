package chip8

import (
	"fmt"
)

// Opcode is a single 2-byte CHIP-8 instruction, fetched big-endian from
// memory.
type Opcode uint16

// Nnn returns the low 12 bits, used as an address.
func (op Opcode) Nnn() uint16 {
	return uint16(op) & 0x0fff
}

// N returns the low 4 bits.
func (op Opcode) N() uint8 {
	return uint8(op) & 0xf
}

// X returns bits 8-11, the first register selector.
func (op Opcode) X() uint8 {
	return uint8(op>>8) & 0xf
}

// Y returns bits 4-7, the second register selector.
func (op Opcode) Y() uint8 {
	return uint8(op>>4) & 0xf
}

// Kk returns the low 8 bits, used as an immediate.
func (op Opcode) Kk() uint8 {
	return uint8(op)
}

// String returns the assembly language representation of the instruction,
// or the raw word for opcodes outside the instruction set.
func (op Opcode) String() (out string) {
	nnn := op.Nnn()
	n := op.N()
	x := op.X()
	y := op.Y()
	kk := op.Kk()

	switch uint16(op) & 0xf000 {
	case 0x0000:
		switch uint16(op) {
		case 0x00e0:
			out = "cls"
		case 0x00ee:
			out = "ret"
		}
	case 0x1000:
		out = fmt.Sprintf("jp 0x%03x", nnn)
	case 0x2000:
		out = fmt.Sprintf("call 0x%03x", nnn)
	case 0x3000:
		out = fmt.Sprintf("se v%x 0x%02x", x, kk)
	case 0x4000:
		out = fmt.Sprintf("sne v%x 0x%02x", x, kk)
	case 0x5000:
		if n == 0 {
			out = fmt.Sprintf("se v%x v%x", x, y)
		}
	case 0x6000:
		out = fmt.Sprintf("ld v%x 0x%02x", x, kk)
	case 0x7000:
		out = fmt.Sprintf("add v%x 0x%02x", x, kk)
	case 0x8000:
		ops := map[uint8]string{
			0x0: "ld", 0x1: "or", 0x2: "and", 0x3: "xor",
			0x4: "add", 0x5: "sub", 0x6: "shr", 0x7: "subn", 0xe: "shl",
		}
		if name, ok := ops[n]; ok {
			out = fmt.Sprintf("%v v%x v%x", name, x, y)
		}
	case 0x9000:
		if n == 0 {
			out = fmt.Sprintf("sne v%x v%x", x, y)
		}
	case 0xa000:
		out = fmt.Sprintf("ld i 0x%03x", nnn)
	case 0xb000:
		out = fmt.Sprintf("jp v0 0x%03x", nnn)
	case 0xc000:
		out = fmt.Sprintf("rnd v%x 0x%02x", x, kk)
	case 0xd000:
		out = fmt.Sprintf("drw v%x v%x %d", x, y, n)
	case 0xe000:
		switch kk {
		case 0x9e:
			out = fmt.Sprintf("skp v%x", x)
		case 0xa1:
			out = fmt.Sprintf("sknp v%x", x)
		}
	case 0xf000:
		switch kk {
		case 0x07:
			out = fmt.Sprintf("ld v%x dt", x)
		case 0x0a:
			out = fmt.Sprintf("ld v%x k", x)
		case 0x15:
			out = fmt.Sprintf("ld dt v%x", x)
		case 0x18:
			out = fmt.Sprintf("ld st v%x", x)
		case 0x1e:
			out = fmt.Sprintf("add i v%x", x)
		case 0x29:
			out = fmt.Sprintf("ld f v%x", x)
		case 0x33:
			out = fmt.Sprintf("ld b v%x", x)
		case 0x55:
			out = fmt.Sprintf("ld [i] v%x", x)
		case 0x65:
			out = fmt.Sprintf("ld v%x [i]", x)
		}
	}

	if len(out) == 0 {
		out = fmt.Sprintf("dw 0x%04x", uint16(op))
	}

	return
}
