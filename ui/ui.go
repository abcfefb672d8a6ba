// Package ui is the ebiten front end: scaled monochrome rendering of the
// machine framebuffer, the hex keypad mapping, and the emulator hotkeys.
package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/retroenv/retrogolib/log"

	"github.com/samsoft/chip8/chip8"
	"github.com/samsoft/chip8/emulator"
)

const (
	DEFAULT_SCALE = 10 // Window pixels per framebuffer pixel.
	MIN_SCALE     = 1
	MAX_SCALE     = 30

	SPEED_STEP_HZ = 100 // Speed change per F8/F9 press.
)

// keymap maps the left hand side of the keyboard onto the 4x4 hex keypad:
//
//	1 2 3 4        1 2 3 c
//	q w e r   ->   4 5 6 d
//	a s d f        7 8 9 e
//	z x c v        a 0 b f
var keymap = map[ebiten.Key]uint8{
	ebiten.KeyDigit1: 0x1, ebiten.KeyDigit2: 0x2, ebiten.KeyDigit3: 0x3, ebiten.KeyDigit4: 0xc,
	ebiten.KeyQ: 0x4, ebiten.KeyW: 0x5, ebiten.KeyE: 0x6, ebiten.KeyR: 0xd,
	ebiten.KeyA: 0x7, ebiten.KeyS: 0x8, ebiten.KeyD: 0x9, ebiten.KeyF: 0xe,
	ebiten.KeyZ: 0xa, ebiten.KeyX: 0x0, ebiten.KeyC: 0xb, ebiten.KeyV: 0xf,
}

// Options configures the front end window.
type Options struct {
	Scale     int        // Integer scale factor; 0 selects DEFAULT_SCALE.
	OnColor   color.RGBA // Lit pixel color; zero value selects white.
	OffColor  color.RGBA // Unlit pixel color.
	StatePath string     // Save state file used by the F5/F7 hotkeys.
}

// UI runs an emulator inside an ebiten window.
type UI struct {
	emu    *emulator.Emulator
	logger *log.Logger
	opts   Options

	frame  *ebiten.Image
	pixels []byte // RGBA scratch buffer, WIDTH*HEIGHT*4.
	title  string
}

// New creates a front end around emu.
func New(emu *emulator.Emulator, logger *log.Logger, opts Options) (ui *UI) {
	if opts.Scale == 0 {
		opts.Scale = DEFAULT_SCALE
	}
	opts.Scale = min(max(opts.Scale, MIN_SCALE), MAX_SCALE)
	if opts.OnColor == (color.RGBA{}) {
		opts.OnColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
	}
	opts.OffColor.A = 0xff
	if opts.StatePath == "" {
		opts.StatePath = "chip8" + emulator.STATE_EXT
	}

	ui = &UI{
		emu:    emu,
		logger: logger,
		opts:   opts,
		pixels: make([]byte, chip8.WIDTH*chip8.HEIGHT*4),
	}

	return
}

// Run opens the window and drives the emulator at the display rate until
// the window closes.
func (ui *UI) Run() (err error) {
	ebiten.SetWindowSize(chip8.WIDTH*ui.opts.Scale, chip8.HEIGHT*ui.opts.Scale)
	ebiten.SetWindowTitle(ui.windowTitle())
	ebiten.SetScreenClearedEveryFrame(false)

	return ebiten.RunGame(ui)
}

func (ui *UI) windowTitle() string {
	name := ui.emu.RomName
	if name == "" {
		name = "no rom"
	}
	title := fmt.Sprintf("chip8 - %v (%v Hz)", name, int(ui.emu.Speed()))
	if ui.emu.Paused() {
		title += " [paused]"
	}

	return title
}

// Update advances the emulator by one display frame and services input.
// It is called by ebiten at the display refresh rate.
func (ui *UI) Update() (err error) {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	ui.handleHotkeys()

	for key, pad := range keymap {
		ui.emu.Chip8.Keypad.Set(pad, ebiten.IsKeyPressed(key))
	}

	// A machine fault pauses the emulator and has already been logged;
	// the window stays open so the state can be inspected.
	_ = ui.emu.Frame()

	if title := ui.windowTitle(); title != ui.title {
		ui.title = title
		ebiten.SetWindowTitle(title)
	}

	return
}

func (ui *UI) handleHotkeys() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyF1):
		ui.emu.TogglePause()
	case inpututil.IsKeyJustPressed(ebiten.KeyF2):
		if err := ui.emu.Step(); err != nil {
			ui.logger.Error("step failed", log.Err(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF3):
		ui.emu.SoftReset()
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		if err := ui.emu.SaveState(ui.opts.StatePath); err != nil {
			ui.logger.Error("save state failed", log.Err(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF7):
		if err := ui.emu.LoadState(ui.opts.StatePath); err != nil {
			ui.logger.Error("load state failed", log.Err(err))
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF8):
		ui.emu.SetSpeed(ui.emu.Speed() - SPEED_STEP_HZ)
	case inpututil.IsKeyJustPressed(ebiten.KeyF9):
		ui.emu.SetSpeed(ui.emu.Speed() + SPEED_STEP_HZ)
	}
}

// Draw renders the framebuffer. The offscreen image is only rewritten
// when the machine drew since the last frame.
func (ui *UI) Draw(screen *ebiten.Image) {
	if ui.frame == nil {
		ui.frame = ebiten.NewImage(chip8.WIDTH, chip8.HEIGHT)
		ui.emu.Chip8.Display.Dirty = true
	}

	if ui.emu.Chip8.Display.Dirty {
		blit(&ui.emu.Chip8.Display, ui.opts.OnColor, ui.opts.OffColor, ui.pixels)
		ui.frame.WritePixels(ui.pixels)
		ui.emu.Chip8.Display.Dirty = false
	}

	screen.DrawImage(ui.frame, nil)
}

// Layout reports the logical screen size; ebiten scales it to the window.
func (ui *UI) Layout(_, _ int) (int, int) {
	return chip8.WIDTH, chip8.HEIGHT
}

// blit expands the 1-byte-per-pixel framebuffer into RGBA.
func blit(display *chip8.Display, on, off color.RGBA, dst []byte) {
	for i, pixel := range display.Pixels {
		c := off
		if pixel != 0 {
			c = on
		}
		dst[i*4+0] = c.R
		dst[i*4+1] = c.G
		dst[i*4+2] = c.B
		dst[i*4+3] = c.A
	}
}
