// Package chip8 implements the CHIP-8 virtual machine.
//
// The machine consists of 4096 bytes of memory, sixteen 8-bit registers
// (V0-VF), a 16-bit index register, a 12-bit program counter, a sixteen
// entry call stack, two 60Hz countdown timers, a 64x32 monochrome
// framebuffer, and a 16-key keypad. Cycle() fetches, decodes and executes
// one big-endian 2-byte opcode; TickTimers() decrements the timers and is
// driven by the caller at 60Hz, independent of the Cycle() rate.
//
// The package also provides a single pass assembler for the CHIP-8
// instruction set, supporting labels, equates, data directives, and
// compile-time expression evaluation.
package chip8
