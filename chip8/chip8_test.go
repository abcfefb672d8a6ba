package chip8

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// loadWords assembles ops big-endian into a ROM and loads it, leaving PC
// at ROM_LOAD_ADDR.
func loadWords(t *testing.T, c *Chip8, ops ...uint16) {
	t.Helper()

	data := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		data = append(data, uint8(op>>8), uint8(op))
	}

	if err := c.LoadROM(data); err != nil {
		t.Fatalf("load rom: %v", err)
	}
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)

	assert.Equal(uint16(ROM_LOAD_ADDR), c.PC)
	assert.Equal(uint8(0xf0), c.Memory.Read(FONT_ADDR))
	assert.True(c.Stack.Empty())
	assert.NotNil(c.Rand)
	assert.False(c.Wait.Waiting)
}

func TestCycle_LoadImmediate(t *testing.T) {
	assert := assert.New(t)

	for x := uint16(0); x < 16; x++ {
		c := New(false, false)
		loadWords(t, c, 0x6000|x<<8|0x42)

		assert.NoError(c.Cycle())
		assert.Equal(uint8(0x42), c.V[x], "x=%d", x)
	}
}

func TestCycle_AddImmediate_Wraps(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0x700a) // add v0 10
	c.V[0] = 250

	assert.NoError(c.Cycle())
	assert.Equal(uint8(4), c.V[0])
}

func TestCycle_AddRegisters_Carry(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		v0, v1 uint8
		sum    uint8
		carry  uint8
	}){
		{"carry", 200, 100, 44, 1},
		{"no_carry", 1, 1, 2, 0},
		{"exact_255", 255, 0, 255, 0},
		{"wrap_to_zero", 255, 1, 0, 1},
	}

	for _, entry := range table {
		c := New(false, false)
		loadWords(t, c, 0x8014) // add v0 v1
		c.V[0] = entry.v0
		c.V[1] = entry.v1

		assert.NoError(c.Cycle())
		assert.Equal(entry.sum, c.V[0], entry.name)
		assert.Equal(entry.carry, c.V[0xf], entry.name)
	}
}

func TestCycle_SubRegisters_Borrow(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		op     uint16
		v0, v1 uint8
		result uint8
		flag   uint8
	}){
		{"sub_no_borrow", 0x8015, 10, 3, 7, 1},
		{"sub_borrow", 0x8015, 3, 10, 249, 0},
		{"sub_equal", 0x8015, 5, 5, 0, 1},
		{"subn_no_borrow", 0x8017, 3, 10, 7, 1},
		{"subn_borrow", 0x8017, 10, 3, 249, 0},
	}

	for _, entry := range table {
		c := New(false, false)
		loadWords(t, c, entry.op)
		c.V[0] = entry.v0
		c.V[1] = entry.v1

		assert.NoError(c.Cycle())
		assert.Equal(entry.result, c.V[0], entry.name)
		assert.Equal(entry.flag, c.V[0xf], entry.name)
	}
}

func TestCycle_Shift_Quirks(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		quirk  bool
		op     uint16
		v0, v1 uint8
		result uint8
		flag   uint8
	}){
		// Without the quirk the shift source is Vy.
		{"shr_vy", false, 0x8016, 0x00, 0x05, 0x02, 1},
		{"shl_vy", false, 0x801e, 0x00, 0x81, 0x02, 1},
		// With it, Vx.
		{"shr_vx", true, 0x8016, 0x05, 0xff, 0x02, 1},
		{"shl_vx", true, 0x801e, 0x81, 0xff, 0x02, 1},
	}

	for _, entry := range table {
		c := New(entry.quirk, false)
		loadWords(t, c, entry.op)
		c.V[0] = entry.v0
		c.V[1] = entry.v1

		assert.NoError(c.Cycle())
		assert.Equal(entry.result, c.V[0], entry.name)
		assert.Equal(entry.flag, c.V[0xf], entry.name)
	}
}

func TestCycle_Bcd(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0xf033) // ld b v0
	c.V[0] = 125
	c.I = 0x300

	assert.NoError(c.Cycle())
	assert.Equal(uint8(1), c.Memory.Read(0x300))
	assert.Equal(uint8(2), c.Memory.Read(0x301))
	assert.Equal(uint8(5), c.Memory.Read(0x302))
}

func TestCycle_Skips(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		op   uint16
		prep func(c *Chip8)
		skip bool
	}){
		{"se_eq", 0x3042, func(c *Chip8) { c.V[0] = 0x42 }, true},
		{"se_ne", 0x3042, func(c *Chip8) { c.V[0] = 0x41 }, false},
		{"sne_eq", 0x4042, func(c *Chip8) { c.V[0] = 0x42 }, false},
		{"sne_ne", 0x4042, func(c *Chip8) { c.V[0] = 0x41 }, true},
		{"se_reg_eq", 0x5010, func(c *Chip8) { c.V[0], c.V[1] = 7, 7 }, true},
		{"se_reg_ne", 0x5010, func(c *Chip8) { c.V[0], c.V[1] = 7, 8 }, false},
		{"sne_reg_ne", 0x9010, func(c *Chip8) { c.V[0], c.V[1] = 7, 8 }, true},
		{"skp_down", 0xe09e, func(c *Chip8) { c.V[0] = 5; c.Keypad.Set(5, true) }, true},
		{"skp_up", 0xe09e, func(c *Chip8) { c.V[0] = 5 }, false},
		{"sknp_up", 0xe0a1, func(c *Chip8) { c.V[0] = 5 }, true},
		{"sknp_down", 0xe0a1, func(c *Chip8) { c.V[0] = 5; c.Keypad.Set(5, true) }, false},
	}

	for _, entry := range table {
		c := New(false, false)
		loadWords(t, c, entry.op)
		entry.prep(c)

		assert.NoError(c.Cycle())

		want := uint16(ROM_LOAD_ADDR + 2)
		if entry.skip {
			want = ROM_LOAD_ADDR + 4
		}
		assert.Equal(want, c.PC, entry.name)
	}
}

func TestCycle_JumpCallRet(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	// 0x200: call 0x206
	// 0x202: ld v1 0xaa   (runs after the ret)
	// 0x204: (unused)
	// 0x206: ld v0 0x55
	// 0x208: ret
	loadWords(t, c, 0x2206, 0x61aa, 0x0000, 0x6055, 0x00ee)

	assert.NoError(c.Cycle())
	assert.Equal(uint16(0x206), c.PC)
	assert.Equal(1, c.Stack.Depth())

	assert.NoError(c.Cycle())
	assert.Equal(uint8(0x55), c.V[0])

	assert.NoError(c.Cycle())
	assert.Equal(uint16(0x202), c.PC)
	assert.True(c.Stack.Empty())

	assert.NoError(c.Cycle())
	assert.Equal(uint8(0xaa), c.V[1])
}

func TestCycle_JumpOffset(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0xb300) // jp v0 0x300
	c.V[0] = 5

	assert.NoError(c.Cycle())
	assert.Equal(uint16(0x305), c.PC)
}

func TestCycle_StackOverflow(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0x2200) // call self, forever

	for n := range STACK_LIMIT {
		assert.NoError(c.Cycle(), "call %d", n)
	}
	assert.True(c.Stack.Full())

	err := c.Cycle()
	assert.ErrorIs(err, ErrStackOverflow)

	// The machine stays usable; the overflowing call was skipped.
	assert.Equal(uint16(0x202), c.PC)
	assert.NoError(c.Cycle())
}

func TestCycle_RetEmptyStack_NoOp(t *testing.T) {
	assert := assert.New(t)

	var unknown int
	c := New(false, false)
	c.OnUnknown = func(pc uint16, op Opcode) { unknown++ }
	loadWords(t, c, 0x00ee)

	assert.NoError(c.Cycle())
	assert.Equal(uint16(ROM_LOAD_ADDR+2), c.PC)
	assert.Equal(0, unknown)
}

func TestCycle_Random(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0xc0f0) // rnd v0 0xf0
	c.Rand = func() byte { return 0xab }

	assert.NoError(c.Cycle())
	assert.Equal(uint8(0xa0), c.V[0])
}

func TestCycle_Draw(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	// Draw one row of glyph "0" (0xF0) at (0,0), twice.
	loadWords(t, c, 0xa050, 0xd011, 0xd011)

	assert.NoError(c.Cycle())
	assert.Equal(uint16(FONT_ADDR), c.I)

	assert.NoError(c.Cycle())
	assert.Equal(uint8(0), c.V[0xf])
	assert.Equal(uint8(1), c.Display.Pixel(0, 0))
	assert.True(c.Display.Dirty)

	assert.NoError(c.Cycle())
	assert.Equal(uint8(1), c.V[0xf])
	assert.Equal(uint8(0), c.Display.Pixel(0, 0))
}

func TestCycle_WaitKey(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0xf50a, 0x6101) // ld v5 k; ld v1 0x01

	assert.NoError(c.Cycle())
	assert.True(c.Wait.Waiting)
	pc := c.PC

	// Spinning with no key held never advances PC or touches registers.
	for range 5 {
		assert.NoError(c.Cycle())
		assert.Equal(pc, c.PC)
		assert.Equal(uint8(0), c.V[5])
	}

	// Two keys held at once: the lowest index wins.
	c.Keypad.Set(7, true)
	c.Keypad.Set(3, true)

	// The resolving cycle latches the key but executes no instruction.
	assert.NoError(c.Cycle())
	assert.Equal(uint8(3), c.V[5])
	assert.Equal(pc, c.PC)
	assert.Equal(uint8(0), c.V[1])
	assert.False(c.Wait.Waiting)

	// The following cycle resumes normal execution.
	assert.NoError(c.Cycle())
	assert.Equal(uint8(1), c.V[1])
}

func TestCycle_FontAddress(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0xf029) // ld f v0
	c.V[0] = 0xb

	assert.NoError(c.Cycle())
	assert.Equal(uint16(FONT_ADDR+0xb*FONT_HEIGHT), c.I)
}

func TestCycle_AddIndex_Wraps(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0xf01e) // add i v0
	c.I = 0xfff
	c.V[0] = 2

	assert.NoError(c.Cycle())
	assert.Equal(uint16(1), c.I)
}

func TestCycle_StoreLoadRegisters(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		quirk bool
		wantI uint16
	}){
		{"no_quirk", false, 0x300},
		{"mem_quirk", true, 0x304},
	}

	for _, entry := range table {
		c := New(false, entry.quirk)
		loadWords(t, c, 0xf355, 0xa300, 0xf365) // ld [i] v3; ld i 0x300; ld v3 [i]
		c.I = 0x300
		c.V[0], c.V[1], c.V[2], c.V[3] = 1, 2, 3, 4

		assert.NoError(c.Cycle())
		assert.Equal(entry.wantI, c.I, entry.name)
		for n := range uint16(4) {
			assert.Equal(uint8(n+1), c.Memory.Read(0x300+n), entry.name)
		}

		// Reload into cleared registers.
		clear(c.V[:4])
		assert.NoError(c.Cycle())
		assert.NoError(c.Cycle())
		assert.Equal(uint8(1), c.V[0], entry.name)
		assert.Equal(uint8(4), c.V[3], entry.name)
		assert.Equal(entry.wantI, c.I, entry.name)
	}
}

func TestCycle_Timers(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	loadWords(t, c, 0x6005, 0xf015, 0xf207) // ld v0 5; ld dt v0; ld v2 dt

	assert.NoError(c.Cycle())
	assert.NoError(c.Cycle())
	assert.Equal(uint8(5), c.DelayTimer)

	assert.NoError(c.Cycle())
	assert.Equal(uint8(5), c.V[2])
}

func TestTickTimers(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	c.DelayTimer = 5
	c.SoundTimer = 2

	for range 3 {
		c.TickTimers()
	}
	assert.Equal(uint8(2), c.DelayTimer)
	assert.Equal(uint8(0), c.SoundTimer)

	// Floors at zero, never wraps.
	for range 10 {
		c.TickTimers()
	}
	assert.Equal(uint8(0), c.DelayTimer)
	assert.Equal(uint8(0), c.SoundTimer)
}

func TestUnknownOpcode_Surfaced(t *testing.T) {
	assert := assert.New(t)

	var gotPc uint16
	var gotOp Opcode
	var count int

	c := New(false, false)
	c.OnUnknown = func(pc uint16, op Opcode) {
		gotPc = pc
		gotOp = op
		count++
	}
	loadWords(t, c, 0x0123, 0x8008, 0x5011, 0xe0ff, 0xf0ff)

	for range 5 {
		assert.NoError(c.Cycle())
	}

	assert.Equal(5, count)
	assert.Equal(uint16(0x208), gotPc)
	assert.Equal(Opcode(0xf0ff), gotOp)
	// PC kept advancing past every unknown opcode.
	assert.Equal(uint16(0x20a), c.PC)
}

func TestLoadROM_TooLarge(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	assert.NoError(c.LoadROM([]byte{0x60, 0x42}))
	before := c.Memory.Cells

	big := make([]byte, MEM_SIZE-ROM_LOAD_ADDR+1)
	err := c.LoadROM(big)
	assert.ErrorIs(err, ErrRomTooLarge)

	// Failed load leaves memory and the retained ROM untouched.
	assert.Equal(before, c.Memory.Cells)
	assert.Equal([]byte{0x60, 0x42}, c.ROM())
}

func TestReset_Soft_ReloadsROM(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	assert.NoError(c.LoadROM([]byte{0x60, 0x42, 0x71, 0x01}))

	assert.NoError(c.Cycle())
	c.Memory.Write(0x300, 0xff)
	c.I = 0x123
	c.DelayTimer = 9

	c.Reset(false)

	assert.Equal(uint16(ROM_LOAD_ADDR), c.PC)
	assert.Equal(uint8(0), c.V[0])
	assert.Equal(uint16(0), c.I)
	assert.Equal(uint8(0), c.DelayTimer)
	assert.Equal(uint8(0x60), c.Memory.Read(ROM_LOAD_ADDR))
	assert.Equal(uint8(0), c.Memory.Read(0x300))
	// Font untouched by a soft reset.
	assert.Equal(uint8(0xf0), c.Memory.Read(FONT_ADDR))
}

func TestReset_Hard(t *testing.T) {
	assert := assert.New(t)

	c := New(false, false)
	assert.NoError(c.LoadROM([]byte{0x60, 0x42}))

	c.Reset(true)

	assert.Equal(uint8(0), c.Memory.Read(ROM_LOAD_ADDR))
	assert.Equal(uint8(0xf0), c.Memory.Read(FONT_ADDR))
	assert.Equal(uint16(ROM_LOAD_ADDR), c.PC)
}
