package chip8

import (
	"errors"

	"github.com/samsoft/chip8/translate"
)

var f = translate.From

var (
	// Machine errors
	ErrRomTooLarge     = errors.New(f("rom too large"))
	ErrStackOverflow   = errors.New(f("call stack overflow"))
	ErrInvalidSnapshot = errors.New(f("invalid snapshot"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrByteSyntax         = errors.New(f(".byte syntax"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrValueRange         = errors.New(f("value out of range"))
	ErrProgramTooLarge    = errors.New(f("program too large"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrSnapshotVersion reports a snapshot whose header names a format
// revision this build cannot decode.
type ErrSnapshotVersion byte

func (err ErrSnapshotVersion) Error() string {
	return f("snapshot version %d unsupported", byte(err))
}

func (err ErrSnapshotVersion) Unwrap() error {
	return ErrInvalidSnapshot
}
