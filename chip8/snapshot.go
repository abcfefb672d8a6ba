package chip8

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
)

const (
	SNAPSHOT_VERSION = 1 // Current snapshot format revision.
)

// snapshotMagic prefixes every snapshot, ahead of the version byte and the
// compressed payload.
var snapshotMagic = [3]byte{'C', '8', 'S'}

// snapshotState is the fixed-layout snapshot payload, encoded big-endian
// and followed by RomLen bytes of retained ROM. Every field of the machine
// appears here; restoring replaces state wholesale rather than merging.
type snapshotState struct {
	Memory     [MEM_SIZE]byte
	V          [16]uint8
	I          uint16
	PC         uint16
	StackDepth uint8
	StackData  [STACK_LIMIT]uint16
	DelayTimer uint8
	SoundTimer uint8
	Pixels     [WIDTH * HEIGHT]byte
	Dirty      bool
	Keypad     [NUM_KEYS]bool
	Waiting    bool
	WaitReg    uint8
	ShiftQuirk bool
	MemQuirk   bool
	RomLen     uint16
}

// Snapshot serializes the complete machine state into a compressed,
// self-describing blob. The blob is opaque to consumers; its only contract
// is that Restore() on the same or a compatible build reproduces the
// machine byte for byte.
func (c *Chip8) Snapshot() (data []byte, err error) {
	state := snapshotState{
		Memory:     c.Memory.Cells,
		V:          c.V,
		I:          c.I,
		PC:         c.PC,
		StackDepth: uint8(c.Stack.Depth()),
		DelayTimer: c.DelayTimer,
		SoundTimer: c.SoundTimer,
		Pixels:     c.Display.Pixels,
		Dirty:      c.Display.Dirty,
		Keypad:     c.Keypad,
		Waiting:    c.Wait.Waiting,
		WaitReg:    c.Wait.Reg,
		ShiftQuirk: c.ShiftQuirk,
		MemQuirk:   c.MemQuirk,
		RomLen:     uint16(len(c.rom)),
	}
	copy(state.StackData[:], c.Stack.Data)

	buf := &bytes.Buffer{}
	buf.Write(snapshotMagic[:])
	buf.WriteByte(SNAPSHOT_VERSION)

	zw := zlib.NewWriter(buf)
	err = binary.Write(zw, binary.BigEndian, &state)
	if err != nil {
		return
	}
	_, err = zw.Write(c.rom)
	if err != nil {
		return
	}
	err = zw.Close()
	if err != nil {
		return
	}

	data = buf.Bytes()

	return
}

// Restore overwrites the machine with the state decoded from data. The
// restore is atomic: on any decode or validation failure the machine is
// left exactly as it was and ErrInvalidSnapshot (or ErrSnapshotVersion for
// a recognizable-but-newer blob) is returned.
func (c *Chip8) Restore(data []byte) (err error) {
	if len(data) < len(snapshotMagic)+1 || !bytes.Equal(data[:3], snapshotMagic[:]) {
		err = ErrInvalidSnapshot
		return
	}
	if data[3] != SNAPSHOT_VERSION {
		err = ErrSnapshotVersion(data[3])
		return
	}

	zr, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		err = errors.Join(ErrInvalidSnapshot, err)
		return
	}
	defer zr.Close()

	var state snapshotState
	err = binary.Read(zr, binary.BigEndian, &state)
	if err != nil {
		err = errors.Join(ErrInvalidSnapshot, err)
		return
	}

	if state.StackDepth > STACK_LIMIT ||
		state.I > ADDR_MASK || state.PC > ADDR_MASK ||
		state.WaitReg > 0xf ||
		int(state.RomLen) > MEM_SIZE-ROM_LOAD_ADDR {
		err = ErrInvalidSnapshot
		return
	}

	rom := make([]byte, state.RomLen)
	_, err = io.ReadFull(zr, rom)
	if err != nil {
		err = errors.Join(ErrInvalidSnapshot, err)
		return
	}

	// The payload must decode fully and exactly; trailing bytes mean a
	// format this build does not understand.
	var trail [1]byte
	_, err = zr.Read(trail[:])
	if err != io.EOF {
		err = ErrInvalidSnapshot
		return
	}
	err = nil

	c.Memory.Cells = state.Memory
	c.V = state.V
	c.I = state.I
	c.PC = state.PC
	c.Stack.Reset()
	c.Stack.Data = append(c.Stack.Data, state.StackData[:state.StackDepth]...)
	c.DelayTimer = state.DelayTimer
	c.SoundTimer = state.SoundTimer
	c.Display.Pixels = state.Pixels
	c.Display.Dirty = state.Dirty
	c.Keypad = state.Keypad
	c.Wait.Waiting = state.Waiting
	c.Wait.Reg = state.WaitReg
	c.ShiftQuirk = state.ShiftQuirk
	c.MemQuirk = state.MemQuirk
	c.rom = nil
	if state.RomLen > 0 {
		c.rom = rom
	}

	return
}
