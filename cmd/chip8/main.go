// Package main implements the chip8 command: assemble, run headless, or
// run a ROM inside the ebiten front end.
package main

import (
	"flag"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"

	"github.com/samsoft/chip8/chip8"
	"github.com/samsoft/chip8/emulator"
	"github.com/samsoft/chip8/ui"
)

func createLogger(debug bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}

func main() {
	var compile string
	var output string
	var state string
	var hz float64
	var scale int
	var shiftQuirk bool
	var memQuirk bool
	var resume bool
	var frames int
	var trace bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".c8asm file to assemble")
	flag.StringVar(&output, "o", "", "ROM output file for -c; assemble only, do not run")
	flag.Float64Var(&hz, "hz", emulator.DEFAULT_CPU_HZ, "machine speed in cycles per second")
	flag.IntVar(&scale, "scale", ui.DEFAULT_SCALE, "window pixels per framebuffer pixel")
	flag.BoolVar(&shiftQuirk, "shift-quirk", false, "8xy6/8xyE shift vx instead of vy")
	flag.BoolVar(&memQuirk, "mem-quirk", false, "Fx55/Fx65 advance i past the copied registers")
	flag.StringVar(&state, "state", "", "save state file for F5/F7 (default <rom>.c8s)")
	flag.BoolVar(&resume, "resume", false, "restore the save state file before running")
	flag.IntVar(&frames, "frames", 0, "run N frames without a window, then exit")
	flag.BoolVar(&trace, "trace", false, "log every executed instruction")
	flag.BoolVar(&verbose, "v", false, "verbose logging")

	flag.Parse()

	logger := createLogger(verbose || trace)

	emu := emulator.NewEmulator(logger, emulator.Options{
		CPUHz:      hz,
		ShiftQuirk: shiftQuirk,
		MemQuirk:   memQuirk,
		Trace:      trace,
	})

	var romPath string

	switch {
	case len(compile) != 0:
		if flag.NArg() != 0 {
			logger.Fatal("unexpected arguments", log.String("args", strings.Join(flag.Args(), " ")))
		}

		prog := assemble(logger, emu, compile)

		if len(output) != 0 {
			if err := os.WriteFile(output, prog.Binary(), 0o644); err != nil {
				logger.Fatal(err.Error())
			}
			logger.Info("rom written",
				log.String("path", output),
				log.Int("bytes", len(prog.Binary())))
			return
		}

		if err := emu.LoadProgram(filepath.Base(compile), prog); err != nil {
			logger.Fatal(err.Error())
		}
		romPath = compile
	case flag.NArg() == 1:
		romPath = flag.Arg(0)
		if err := emu.LoadROMFile(romPath); err != nil {
			logger.Fatal(err.Error())
		}
	default:
		logger.Fatal("usage: chip8 [options] rom.ch8 | chip8 -c source.c8asm [-o rom.ch8]")
	}

	if len(state) == 0 {
		state = strings.TrimSuffix(romPath, filepath.Ext(romPath)) + emulator.STATE_EXT
	}
	if resume {
		if err := emu.LoadState(state); err != nil {
			logger.Fatal(err.Error())
		}
	}

	if frames > 0 {
		runHeadless(logger, emu, frames)
		return
	}

	front := ui.New(emu, logger, ui.Options{
		Scale:     scale,
		OnColor:   color.RGBA{0xff, 0xff, 0xff, 0xff},
		OffColor:  color.RGBA{0x00, 0x00, 0x00, 0xff},
		StatePath: state,
	})
	if err := front.Run(); err != nil {
		logger.Fatal(err.Error())
	}
}

// assemble parses a source file, feeding the machine constants in as
// predefined equates.
func assemble(logger *log.Logger, emu *emulator.Emulator, path string) *chip8.Program {
	inf, err := os.Open(path)
	if err != nil {
		logger.Fatal(err.Error())
	}
	defer inf.Close()

	asm := &chip8.Assembler{}
	for attr, value := range emu.Defines() {
		asm.Predefine(attr, value)
	}

	prog, err := asm.Parse(inf)
	if err != nil {
		logger.Fatal(err.Error())
	}

	return prog
}

// runHeadless advances the machine a fixed number of frames without a
// window. Useful for smoke testing ROMs; interruptible with Ctrl+C.
func runHeadless(logger *log.Logger, emu *emulator.Emulator, frames int) {
	ctx := app.Context()

	for n := range frames {
		select {
		case <-ctx.Done():
			logger.Info("interrupted", log.Int("frames", n))
			return
		default:
		}

		if err := emu.Frame(); err != nil {
			logger.Fatal(err.Error())
		}
	}

	logger.Info("finished",
		log.Int("frames", frames),
		log.Hex("pc", emu.Chip8.PC))
}
