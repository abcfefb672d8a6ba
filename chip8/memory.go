package chip8

const (
	MEM_SIZE      = 4096  // Size of the address space in bytes.
	ADDR_MASK     = 0xfff // 12-bit address mask applied to every access.
	ROM_LOAD_ADDR = 0x200 // Programs load and start execution here.
	FONT_ADDR     = 0x50  // Base of the built-in glyph table.
	FONT_GLYPHS   = 16    // Hex digits 0-F.
	FONT_HEIGHT   = 5     // Bytes (rows) per glyph.
)

// fontset is the built-in 4x5 pixel glyph table, one row per byte,
// written to FONT_ADDR on every hard reset.
var fontset = [FONT_GLYPHS * FONT_HEIGHT]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat 4096-byte address space. Every access is taken
// modulo MEM_SIZE; no address is ever out of range.
type Memory struct {
	Cells [MEM_SIZE]byte
}

// Read returns the byte at addr & ADDR_MASK.
func (m *Memory) Read(addr uint16) byte {
	return m.Cells[addr&ADDR_MASK]
}

// Write stores value at addr & ADDR_MASK.
func (m *Memory) Write(addr uint16, value byte) {
	m.Cells[addr&ADDR_MASK] = value
}

// LoadFont writes the glyph table at FONT_ADDR.
func (m *Memory) LoadFont() {
	copy(m.Cells[FONT_ADDR:], fontset[:])
}

// ClearProgram zeroes the program area (ROM_LOAD_ADDR..MEM_SIZE), leaving
// the font and the rest of low memory untouched.
func (m *Memory) ClearProgram() {
	clear(m.Cells[ROM_LOAD_ADDR:])
}

// LoadProgram copies data into memory starting at ROM_LOAD_ADDR. A program
// that would extend past the end of memory is rejected with ErrRomTooLarge
// before any cell is written.
func (m *Memory) LoadProgram(data []byte) (err error) {
	if len(data) > MEM_SIZE-ROM_LOAD_ADDR {
		err = ErrRomTooLarge
		return
	}

	copy(m.Cells[ROM_LOAD_ADDR:], data)

	return
}
