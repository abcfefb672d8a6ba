package chip8

import (
	"fmt"
	"iter"
	"maps"
	"math/rand/v2"
	"slices"
)

var _chip8_defines = map[string]string{
	"MEM_SIZE":      fmt.Sprintf("%v", MEM_SIZE),
	"ROM_LOAD_ADDR": fmt.Sprintf("0x%x", ROM_LOAD_ADDR),
	"FONT_ADDR":     fmt.Sprintf("0x%x", FONT_ADDR),
	"WIDTH":         fmt.Sprintf("%v", WIDTH),
	"HEIGHT":        fmt.Sprintf("%v", HEIGHT),
	"STACK_LIMIT":   fmt.Sprintf("%v", STACK_LIMIT),
}

// Defines returns the machine constants exposed to the assembler as
// predefined equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(_chip8_defines)
}

// Chip8 is the virtual machine state: memory, registers, call stack,
// timers, framebuffer, keypad, and the wait-for-key state.
//
// The machine is logically single threaded. Cycle() and TickTimers() never
// block; the caller's scheduler decides how often each runs (typically
// 500-1000 cycles per second and a fixed 60Hz timer tick).
type Chip8 struct {
	Memory  Memory
	Display Display
	Keypad  Keypad
	Stack   Stack
	Wait    KeyWait

	V  [16]uint8 // General purpose registers; VF doubles as the flag register.
	I  uint16    // Index register, 0..0xFFF.
	PC uint16    // Program counter, 0..0xFFF.

	DelayTimer uint8
	SoundTimer uint8

	// Quirk flags, selecting between historical instruction variants.
	// Changing them mid-run leaves in-flight program state inconsistent;
	// callers are expected to follow a toggle with a reset.
	ShiftQuirk bool // 8xy6/8xyE shift Vx instead of Vy.
	MemQuirk   bool // Fx55/Fx65 advance I by x+1.

	// Rand supplies the random byte consumed by Cxkk. Tests substitute a
	// deterministic source.
	Rand func() byte

	// Trace, when set, observes every fetched instruction.
	Trace func(pc uint16, op Opcode)

	// OnUnknown, when set, observes opcodes outside the instruction set.
	// Unknown opcodes are always executed as no-ops for compatibility
	// with quirky ROMs; this hook surfaces them instead of swallowing
	// the event silently.
	OnUnknown func(pc uint16, op Opcode)

	rom []byte // Last loaded program, reloaded by soft reset.
}

// New creates a machine with the given quirk configuration and performs a
// hard reset.
func New(shiftQuirk, memQuirk bool) (c *Chip8) {
	c = &Chip8{
		ShiftQuirk: shiftQuirk,
		MemQuirk:   memQuirk,
		Rand: func() byte {
			return byte(rand.IntN(256))
		},
	}
	c.Reset(true)

	return
}

// Reset reinitializes the machine. A hard reset zeroes all of memory and
// rewrites the font table. A soft reset zeroes only the program area and
// copies the retained ROM back in, leaving the font untouched. Both clear
// the registers, stack, timers, keypad, framebuffer, and wait state, and
// set PC to ROM_LOAD_ADDR.
func (c *Chip8) Reset(hard bool) {
	clear(c.V[:])
	c.I = 0
	c.PC = ROM_LOAD_ADDR
	c.Stack.Reset()
	c.DelayTimer = 0
	c.SoundTimer = 0
	c.Keypad = Keypad{}
	c.Wait.Reset()
	c.Display.Clear()

	if hard {
		c.Memory = Memory{}
		c.Memory.LoadFont()
		return
	}

	c.Memory.ClearProgram()
	if c.rom != nil {
		// Length was validated when the ROM was retained.
		_ = c.Memory.LoadProgram(c.rom)
	}
}

// LoadROM retains data as the current program and performs a soft reset,
// which copies it into memory at ROM_LOAD_ADDR. A program longer than the
// available space is rejected with ErrRomTooLarge and the machine is left
// unchanged.
func (c *Chip8) LoadROM(data []byte) (err error) {
	if len(data) > MEM_SIZE-ROM_LOAD_ADDR {
		err = ErrRomTooLarge
		return
	}

	c.rom = slices.Clone(data)
	c.Reset(false)

	return
}

// ROM returns the retained program bytes, or nil if none was loaded.
func (c *Chip8) ROM() []byte {
	return slices.Clone(c.rom)
}

// SetQuirks replaces the quirk configuration. This is a pure state
// mutation; callers wanting predictable behavior follow it with a reset
// (the emulator layer does exactly that).
func (c *Chip8) SetQuirks(shift, mem bool) {
	c.ShiftQuirk = shift
	c.MemQuirk = mem
}

// TickTimers decrements the delay and sound timers, each saturating at
// zero. The caller invokes it at a steady 60Hz, independent of Cycle().
func (c *Chip8) TickTimers() {
	if c.DelayTimer > 0 {
		c.DelayTimer--
	}
	if c.SoundTimer > 0 {
		c.SoundTimer--
	}
}

// skip advances PC past the next instruction.
func (c *Chip8) skip() {
	c.PC = (c.PC + 2) & ADDR_MASK
}

// Cycle executes a single fetch/decode/execute step.
//
// While the wait-for-key state is armed no instruction executes: the cycle
// either latches the first held key into the target register and disarms,
// or does nothing. Either way the cycle is consumed; the instruction after
// Fx0A runs no earlier than the following cycle.
//
// The only error is ErrStackOverflow, on the seventeenth nested CALL. The
// machine remains usable afterwards; the offending CALL is skipped.
func (c *Chip8) Cycle() (err error) {
	if c.Wait.Waiting {
		reg := c.Wait.Reg
		if key, ok := c.Wait.Poll(&c.Keypad); ok {
			c.V[reg] = key
		}
		return
	}

	if int(c.PC)+1 >= MEM_SIZE {
		// Unreachable while PC stays masked; guards external mutation.
		return
	}

	op := Opcode(uint16(c.Memory.Read(c.PC))<<8 | uint16(c.Memory.Read(c.PC+1)))
	pc := c.PC
	c.PC = (c.PC + 2) & ADDR_MASK

	if c.Trace != nil {
		c.Trace(pc, op)
	}

	nnn := op.Nnn()
	n := op.N()
	x := op.X()
	y := op.Y()
	kk := op.Kk()

	switch uint16(op) & 0xf000 {
	case 0x0000:
		switch uint16(op) {
		case 0x00e0:
			c.Display.Clear()
		case 0x00ee:
			// Returning with an empty stack is ignored, as on the
			// interpreters this machine is compatible with.
			if addr, ok := c.Stack.Pop(); ok {
				c.PC = addr
			}
		default:
			c.unknown(pc, op)
		}
	case 0x1000:
		c.PC = nnn
	case 0x2000:
		if c.Stack.Full() {
			err = ErrStackOverflow
			return
		}
		c.Stack.Push(c.PC)
		c.PC = nnn
	case 0x3000:
		if c.V[x] == kk {
			c.skip()
		}
	case 0x4000:
		if c.V[x] != kk {
			c.skip()
		}
	case 0x5000:
		if n != 0 {
			c.unknown(pc, op)
			return
		}
		if c.V[x] == c.V[y] {
			c.skip()
		}
	case 0x6000:
		c.V[x] = kk
	case 0x7000:
		c.V[x] += kk
	case 0x8000:
		err = c.executeAlu(pc, op)
	case 0x9000:
		if n != 0 {
			c.unknown(pc, op)
			return
		}
		if c.V[x] != c.V[y] {
			c.skip()
		}
	case 0xa000:
		c.I = nnn
	case 0xb000:
		c.PC = (nnn + uint16(c.V[0])) & ADDR_MASK
	case 0xc000:
		c.V[x] = c.Rand() & kk
	case 0xd000:
		rows := make([]byte, n)
		for row := range rows {
			rows[row] = c.Memory.Read(c.I + uint16(row))
		}
		c.V[0xf] = 0
		if c.Display.DrawSprite(c.V[x], c.V[y], rows) {
			c.V[0xf] = 1
		}
	case 0xe000:
		switch kk {
		case 0x9e:
			if c.Keypad.Pressed(c.V[x]) {
				c.skip()
			}
		case 0xa1:
			if !c.Keypad.Pressed(c.V[x]) {
				c.skip()
			}
		default:
			c.unknown(pc, op)
		}
	case 0xf000:
		err = c.executeMisc(pc, op)
	}

	return
}

// executeAlu handles the 8xyN register-to-register family.
func (c *Chip8) executeAlu(pc uint16, op Opcode) (err error) {
	x := op.X()
	y := op.Y()

	switch op.N() {
	case 0x0:
		c.V[x] = c.V[y]
	case 0x1:
		c.V[x] |= c.V[y]
	case 0x2:
		c.V[x] &= c.V[y]
	case 0x3:
		c.V[x] ^= c.V[y]
	case 0x4:
		total := uint16(c.V[x]) + uint16(c.V[y])
		c.V[0xf] = 0
		if total > 0xff {
			c.V[0xf] = 1
		}
		c.V[x] = uint8(total)
	case 0x5:
		borrow := c.V[y] > c.V[x]
		result := c.V[x] - c.V[y]
		c.V[0xf] = 1
		if borrow {
			c.V[0xf] = 0
		}
		c.V[x] = result
	case 0x6:
		source := c.V[y]
		if c.ShiftQuirk {
			source = c.V[x]
		}
		c.V[0xf] = source & 0x1
		c.V[x] = source >> 1
	case 0x7:
		borrow := c.V[x] > c.V[y]
		result := c.V[y] - c.V[x]
		c.V[0xf] = 1
		if borrow {
			c.V[0xf] = 0
		}
		c.V[x] = result
	case 0xe:
		source := c.V[y]
		if c.ShiftQuirk {
			source = c.V[x]
		}
		c.V[0xf] = (source >> 7) & 0x1
		c.V[x] = source << 1
	default:
		c.unknown(pc, op)
	}

	return
}

// executeMisc handles the FxKK family.
func (c *Chip8) executeMisc(pc uint16, op Opcode) (err error) {
	x := op.X()

	switch op.Kk() {
	case 0x07:
		c.V[x] = c.DelayTimer
	case 0x0a:
		c.Wait.Arm(x)
	case 0x15:
		c.DelayTimer = c.V[x]
	case 0x18:
		c.SoundTimer = c.V[x]
	case 0x1e:
		c.I = (c.I + uint16(c.V[x])) & ADDR_MASK
	case 0x29:
		c.I = FONT_ADDR + uint16(c.V[x]&0xf)*FONT_HEIGHT
	case 0x33:
		val := c.V[x]
		c.Memory.Write(c.I+2, val%10)
		val /= 10
		c.Memory.Write(c.I+1, val%10)
		val /= 10
		c.Memory.Write(c.I, val%10)
	case 0x55:
		for i := uint16(0); i <= uint16(x); i++ {
			c.Memory.Write(c.I+i, c.V[i])
		}
		if c.MemQuirk {
			c.I = (c.I + uint16(x) + 1) & ADDR_MASK
		}
	case 0x65:
		for i := uint16(0); i <= uint16(x); i++ {
			c.V[i] = c.Memory.Read(c.I + i)
		}
		if c.MemQuirk {
			c.I = (c.I + uint16(x) + 1) & ADDR_MASK
		}
	default:
		c.unknown(pc, op)
	}

	return
}

// unknown reports an unmatched opcode. PC has already advanced, so the
// effect is a no-op either way.
func (c *Chip8) unknown(pc uint16, op Opcode) {
	if c.OnUnknown != nil {
		c.OnUnknown(pc, op)
	}
}
