package chip8

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = func() map[string]string {
	equ := maps.Clone(_chip8_defines)
	equ["LINENO"] = "0"
	return equ
}()

// Assembler is a single pass assembler for the CHIP-8 instruction set.
// It supports one instruction per line, `label:` definitions, `.equ`
// constants, `.byte` data, comments introduced by `;`, and compile-time
// `$(...)` expression evaluation.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Lines   []Line // List of assembled lines.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of jump labels to load addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regOf maps a register name (v0..vf) to its index.
func regOf(word string) (reg uint16, ok bool) {
	if len(word) != 2 || word[0] != 'v' {
		return
	}
	value, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}

	return uint16(value), true
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	v64, err := strconv.ParseUint(word, 0, 16)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = uint16(v64)

	return
}

// fieldOf returns the value of a word, bounded by a field mask.
func (asm *Assembler) fieldOf(word string, mask uint16) (value uint16, err error) {
	value, err = asm.valueOf(word)
	if err != nil {
		return
	}
	if value > mask {
		err = ErrValueRange
		return
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint16, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value16 uint16
		value16, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value16))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 < 0 || st_int64 > 0xffff {
		err = ErrParseExpression(expr)
		return
	}
	value = uint16(st_int64)
	return
}

// parseLine expands a single source line into assembly words, consuming
// equates and label definitions along the way.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	return
}

// currentAddr gets the load address of the next emitted byte.
func (asm *Assembler) currentAddr() int {
	if len(asm.Lines) == 0 {
		return ROM_LOAD_ADDR
	}

	last := asm.Lines[len(asm.Lines)-1]

	return last.Addr + len(last.Bytes)
}

// Parse parses an input stream into a Program containing the ROM listing.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Lines = asm.Lines[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if asm.currentAddr() > MEM_SIZE {
		err = ErrProgramTooLarge
		return
	}

	// Final linking of jump labels.
	for n := range asm.Lines {
		emitted := &asm.Lines[n]

		if len(emitted.LinkLabel) == 0 {
			continue
		}
		label := emitted.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		// Label-bearing instructions are always 2 bytes with the
		// address in the low 12 bits.
		emitted.Bytes[0] |= uint8(addr>>8) & 0x0f
		emitted.Bytes[1] = uint8(addr)
	}

	prog = &Program{
		Lines: slices.Clone(asm.Lines),
	}

	return
}

// emit appends an assembled line for a single 2-byte instruction.
func (asm *Assembler) emit(words []string, lineno int, word uint16, label string) {
	asm.Lines = append(asm.Lines, Line{
		LineNo:    lineno,
		Addr:      asm.currentAddr(),
		Words:     words,
		Bytes:     []byte{uint8(word >> 8), uint8(word)},
		LinkLabel: label,
	})
}

// addrOperand resolves a word as either a numeric 12-bit address or a
// label reference to be linked later.
func (asm *Assembler) addrOperand(word string) (addr uint16, label string, err error) {
	addr, err = asm.valueOf(word)
	if err != nil {
		// Not a number; treat as a label reference.
		addr = 0
		err = nil
		label = word
		return
	}

	if addr > ADDR_MASK {
		err = ErrValueRange
	}

	return
}

// parseWords assembles the words of a single line of source text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	// .byte B B B ...
	if words[0] == ".byte" {
		if len(words) < 2 {
			err = ErrByteSyntax
			return
		}
		data := make([]byte, 0, len(words)-1)
		for _, word := range words[1:] {
			var value uint16
			value, err = asm.fieldOf(word, 0xff)
			if err != nil {
				return
			}
			data = append(data, uint8(value))
		}
		asm.Lines = append(asm.Lines, Line{
			LineNo: lineno,
			Addr:   asm.currentAddr(),
			Words:  initial_words,
			Bytes:  data,
		})
		return
	}

	args := words[1:]

	// Argument shapes shared by several mnemonics.
	xreg, x_is_reg := uint16(0), false
	yreg, y_is_reg := uint16(0), false
	if len(args) >= 1 {
		xreg, x_is_reg = regOf(args[0])
	}
	if len(args) >= 2 {
		yreg, y_is_reg = regOf(args[1])
	}

	switch words[0] {
	case "cls":
		if len(args) != 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		asm.emit(initial_words, lineno, 0x00e0, "")
	case "ret":
		if len(args) != 0 {
			err = ErrOpcodeExtraArgs
			return
		}
		asm.emit(initial_words, lineno, 0x00ee, "")
	case "jp":
		switch {
		case len(args) == 1:
			var addr uint16
			var label string
			addr, label, err = asm.addrOperand(args[0])
			if err != nil {
				return
			}
			asm.emit(initial_words, lineno, 0x1000|addr, label)
		case len(args) == 2 && args[0] == "v0":
			var addr uint16
			var label string
			addr, label, err = asm.addrOperand(args[1])
			if err != nil {
				return
			}
			asm.emit(initial_words, lineno, 0xb000|addr, label)
		case len(args) < 1:
			err = ErrOpcodeValueMissing
		default:
			err = ErrOpcodeInvalid
		}
	case "call":
		if len(args) != 1 {
			err = ErrOpcodeValueMissing
			return
		}
		var addr uint16
		var label string
		addr, label, err = asm.addrOperand(args[0])
		if err != nil {
			return
		}
		asm.emit(initial_words, lineno, 0x2000|addr, label)
	case "se", "sne":
		base := uint16(0x3000) // se vx kk
		alt := uint16(0x5000)  // se vx vy
		if words[0] == "sne" {
			base = 0x4000
			alt = 0x9000
		}
		if len(args) != 2 || !x_is_reg {
			err = ErrOpcodeInvalid
			return
		}
		if y_is_reg {
			asm.emit(initial_words, lineno, alt|xreg<<8|yreg<<4, "")
			return
		}
		var kk uint16
		kk, err = asm.fieldOf(args[1], 0xff)
		if err != nil {
			return
		}
		asm.emit(initial_words, lineno, base|xreg<<8|kk, "")
	case "ld":
		err = asm.parseLoad(initial_words, args, lineno)
	case "add":
		if len(args) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		switch {
		case args[0] == "i" && y_is_reg:
			asm.emit(initial_words, lineno, 0xf01e|yreg<<8, "")
		case x_is_reg && y_is_reg:
			asm.emit(initial_words, lineno, 0x8004|xreg<<8|yreg<<4, "")
		case x_is_reg:
			var kk uint16
			kk, err = asm.fieldOf(args[1], 0xff)
			if err != nil {
				return
			}
			asm.emit(initial_words, lineno, 0x7000|xreg<<8|kk, "")
		default:
			err = ErrRegisterInvalid
		}
	case "or", "and", "xor", "sub", "subn":
		ops := map[string]uint16{
			"or": 0x8001, "and": 0x8002, "xor": 0x8003,
			"sub": 0x8005, "subn": 0x8007,
		}
		if len(args) != 2 || !x_is_reg || !y_is_reg {
			err = ErrRegisterInvalid
			return
		}
		asm.emit(initial_words, lineno, ops[words[0]]|xreg<<8|yreg<<4, "")
	case "shr", "shl":
		base := uint16(0x8006)
		if words[0] == "shl" {
			base = 0x800e
		}
		if len(args) < 1 || len(args) > 2 || !x_is_reg {
			err = ErrRegisterInvalid
			return
		}
		// Single register form shifts vx in place.
		if len(args) == 1 {
			yreg, y_is_reg = xreg, true
		}
		if !y_is_reg {
			err = ErrRegisterInvalid
			return
		}
		asm.emit(initial_words, lineno, base|xreg<<8|yreg<<4, "")
	case "rnd":
		if len(args) != 2 || !x_is_reg {
			err = ErrRegisterInvalid
			return
		}
		var kk uint16
		kk, err = asm.fieldOf(args[1], 0xff)
		if err != nil {
			return
		}
		asm.emit(initial_words, lineno, 0xc000|xreg<<8|kk, "")
	case "drw":
		if len(args) != 3 || !x_is_reg || !y_is_reg {
			err = ErrRegisterInvalid
			return
		}
		var n uint16
		n, err = asm.fieldOf(args[2], 0xf)
		if err != nil {
			return
		}
		asm.emit(initial_words, lineno, 0xd000|xreg<<8|yreg<<4|n, "")
	case "skp", "sknp":
		base := uint16(0xe09e)
		if words[0] == "sknp" {
			base = 0xe0a1
		}
		if len(args) != 1 || !x_is_reg {
			err = ErrRegisterInvalid
			return
		}
		asm.emit(initial_words, lineno, base|xreg<<8, "")
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// parseLoad assembles the many shapes of the ld mnemonic.
func (asm *Assembler) parseLoad(initial_words, args []string, lineno int) (err error) {
	if len(args) != 2 {
		err = ErrOpcodeValueMissing
		return
	}

	xreg, x_is_reg := regOf(args[0])
	yreg, y_is_reg := regOf(args[1])

	switch {
	case args[0] == "i":
		var addr uint16
		var label string
		addr, label, err = asm.addrOperand(args[1])
		if err != nil {
			return
		}
		asm.emit(initial_words, lineno, 0xa000|addr, label)
	case args[0] == "dt" && y_is_reg:
		asm.emit(initial_words, lineno, 0xf015|yreg<<8, "")
	case args[0] == "st" && y_is_reg:
		asm.emit(initial_words, lineno, 0xf018|yreg<<8, "")
	case args[0] == "f" && y_is_reg:
		asm.emit(initial_words, lineno, 0xf029|yreg<<8, "")
	case args[0] == "b" && y_is_reg:
		asm.emit(initial_words, lineno, 0xf033|yreg<<8, "")
	case args[0] == "[i]" && y_is_reg:
		asm.emit(initial_words, lineno, 0xf055|yreg<<8, "")
	case x_is_reg && args[1] == "dt":
		asm.emit(initial_words, lineno, 0xf007|xreg<<8, "")
	case x_is_reg && args[1] == "k":
		asm.emit(initial_words, lineno, 0xf00a|xreg<<8, "")
	case x_is_reg && args[1] == "[i]":
		asm.emit(initial_words, lineno, 0xf065|xreg<<8, "")
	case x_is_reg && y_is_reg:
		asm.emit(initial_words, lineno, 0x8000|xreg<<8|yreg<<4, "")
	case x_is_reg:
		var kk uint16
		kk, err = asm.fieldOf(args[1], 0xff)
		if err != nil {
			return
		}
		asm.emit(initial_words, lineno, 0x6000|xreg<<8|kk, "")
	default:
		err = ErrOpcodeInvalid
	}

	return
}
