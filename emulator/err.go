package emulator

import (
	"github.com/samsoft/chip8/translate"
)

var f = translate.From

// ErrRomFile wraps a failure to read or load a ROM image file.
type ErrRomFile struct {
	Path string
	Err  error
}

func (err *ErrRomFile) Error() string {
	return f("rom %v: %v", err.Path, err.Err)
}

func (err *ErrRomFile) Unwrap() error {
	return err.Err
}

// ErrStateFile wraps a failure to save or restore a machine state file.
type ErrStateFile struct {
	Path string
	Err  error
}

func (err *ErrStateFile) Error() string {
	return f("state %v: %v", err.Path, err.Err)
}

func (err *ErrStateFile) Unwrap() error {
	return err.Err
}

// ErrRuntime indicates the source location of a machine fault.
type ErrRuntime struct {
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d %v", err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
