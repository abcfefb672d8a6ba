// Package emulator drives a chip8 machine: ROM and state files, the
// cycles-per-frame scheduler, pause and single-step, and structured
// logging of machine events.
package emulator

import (
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/log"

	"github.com/samsoft/chip8/chip8"
	"github.com/samsoft/chip8/internal"
)

const (
	FRAME_HZ       = 60  // Frames (and timer ticks) per second.
	DEFAULT_CPU_HZ = 500 // Default machine speed in cycles per second.
	MIN_CPU_HZ     = 60
	MAX_CPU_HZ     = 5000

	STATE_EXT = ".c8s" // Save state file suffix.
)

var _emulator_defines = map[string]string{
	"FRAME_HZ":       fmt.Sprintf("%v", FRAME_HZ),
	"DEFAULT_CPU_HZ": fmt.Sprintf("%v", DEFAULT_CPU_HZ),
}

// Options configures a new emulator.
type Options struct {
	CPUHz      float64 // Cycles per second; 0 selects DEFAULT_CPU_HZ.
	ShiftQuirk bool
	MemQuirk   bool
	Trace      bool // Log every executed instruction at debug level.
}

// Emulator state. Machine + program listing + frame scheduler.
type Emulator struct {
	*chip8.Chip8                // Reference to the machine simulation.
	Program      *chip8.Program // Listing of the running program, when assembled locally.

	RomName string // Base name of the loaded ROM, for status reporting.

	logger *log.Logger
	hz     float64
	accum  float64 // Fractional cycle carry between frames.
	paused bool
}

// NewEmulator creates a new emulator around a freshly reset machine.
func NewEmulator(logger *log.Logger, opts Options) (emu *Emulator) {
	if opts.CPUHz == 0 {
		opts.CPUHz = DEFAULT_CPU_HZ
	}

	emu = &Emulator{
		Chip8:  chip8.New(opts.ShiftQuirk, opts.MemQuirk),
		logger: logger,
		hz:     clampHz(opts.CPUHz),
	}

	emu.Chip8.OnUnknown = func(pc uint16, op chip8.Opcode) {
		logger.Warn("unknown opcode",
			log.Hex("pc", pc),
			log.Hex("opcode", uint16(op)))
	}
	if opts.Trace {
		emu.Chip8.Trace = func(pc uint16, op chip8.Opcode) {
			logger.Debug("cycle",
				log.Hex("pc", pc),
				log.String("instruction", op.String()))
		}
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		chip8.Defines(),
	)
}

func clampHz(hz float64) float64 {
	return min(max(hz, MIN_CPU_HZ), MAX_CPU_HZ)
}

// Speed returns the machine speed in cycles per second.
func (emu *Emulator) Speed() float64 {
	return emu.hz
}

// SetSpeed changes the machine speed, clamped to MIN_CPU_HZ..MAX_CPU_HZ.
func (emu *Emulator) SetSpeed(hz float64) {
	emu.hz = clampHz(hz)
	emu.logger.Info("speed changed", log.Int("hz", int(emu.hz)))
}

// Paused reports whether execution is suspended.
func (emu *Emulator) Paused() bool {
	return emu.paused
}

// TogglePause suspends or resumes execution.
func (emu *Emulator) TogglePause() {
	emu.paused = !emu.paused
	if emu.paused {
		emu.logger.Info("paused")
	} else {
		emu.logger.Info("resumed")
	}
}

// LoadROMFile loads a ROM image from a file.
func (emu *Emulator) LoadROMFile(path string) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = &ErrRomFile{Path: path, Err: err}
		return
	}

	err = emu.Chip8.LoadROM(data)
	if err != nil {
		err = &ErrRomFile{Path: path, Err: err}
		return
	}

	emu.RomName = filepath.Base(path)
	emu.Program = nil
	emu.accum = 0
	emu.logger.Info("rom loaded",
		log.String("name", emu.RomName),
		log.Int("bytes", len(data)))

	return
}

// LoadProgram loads an assembled listing as the ROM, keeping the listing
// for address-to-source diagnostics.
func (emu *Emulator) LoadProgram(name string, prog *chip8.Program) (err error) {
	err = emu.Chip8.LoadROM(prog.Binary())
	if err != nil {
		return
	}

	emu.RomName = name
	emu.Program = prog
	emu.accum = 0
	emu.logger.Info("program loaded",
		log.String("name", name),
		log.Int("bytes", len(prog.Binary())))

	return
}

// LineNo returns the source line of the next instruction, or 0 when no
// listing is attached.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	return emu.Program.LineNo(emu.Chip8.PC)
}

// SoftReset restarts the retained ROM.
func (emu *Emulator) SoftReset() {
	emu.Chip8.Reset(false)
	emu.accum = 0
	emu.logger.Info("reset", log.String("rom", emu.RomName))
}

// SetQuirks changes the quirk configuration and soft resets, since a
// program started under one quirk set cannot continue under another.
func (emu *Emulator) SetQuirks(shift, mem bool) {
	emu.Chip8.SetQuirks(shift, mem)
	emu.SoftReset()
	emu.logger.Info("quirks changed",
		log.String("shift", fmt.Sprintf("%v", shift)),
		log.String("mem", fmt.Sprintf("%v", mem)))
}

// Frame advances the machine by one display frame: hz/60 cycles with the
// fractional remainder carried over, then a single timer tick. Paused
// machines do not advance.
//
// A cycle error pauses the machine so the caller can inspect it.
func (emu *Emulator) Frame() (err error) {
	if emu.paused {
		return
	}

	emu.accum += emu.hz / FRAME_HZ
	for emu.accum >= 1 {
		emu.accum -= 1

		err = emu.cycle()
		if err != nil {
			emu.paused = true
			return
		}
	}

	emu.Chip8.TickTimers()

	return
}

// Step executes exactly one cycle. Only meaningful while paused; a running
// machine is already being advanced by Frame.
func (emu *Emulator) Step() (err error) {
	if !emu.paused {
		return
	}

	return emu.cycle()
}

func (emu *Emulator) cycle() (err error) {
	err = emu.Chip8.Cycle()
	if err != nil {
		if lineno := emu.LineNo(); lineno > 0 {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
		emu.logger.Error("machine fault", log.Err(err))
	}

	return
}

// SaveState writes the machine snapshot to path.
func (emu *Emulator) SaveState(path string) (err error) {
	data, err := emu.Chip8.Snapshot()
	if err != nil {
		err = &ErrStateFile{Path: path, Err: err}
		return
	}

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		err = &ErrStateFile{Path: path, Err: err}
		return
	}

	emu.logger.Info("state saved",
		log.String("path", path),
		log.Int("bytes", len(data)))

	return
}

// LoadState restores the machine from a snapshot file. The machine is
// unchanged when the file cannot be read or decoded.
func (emu *Emulator) LoadState(path string) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = &ErrStateFile{Path: path, Err: err}
		return
	}

	err = emu.Chip8.Restore(data)
	if err != nil {
		err = &ErrStateFile{Path: path, Err: err}
		return
	}

	emu.accum = 0
	emu.logger.Info("state loaded", log.String("path", path))

	return
}
