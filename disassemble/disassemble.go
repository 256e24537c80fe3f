// Package disassemble renders the documented NMOS 6502 instruction stream
// as human readable text, sharing the opcode table the cpu package
// executes from so the two can never drift apart.
package disassemble

import (
	"fmt"

	"github.com/jmchacon/sixfiveohtwo/addressing"
	"github.com/jmchacon/sixfiveohtwo/cpu"
	"github.com/jmchacon/sixfiveohtwo/memory"
)

// branchMnemonics is every opcode whose operand is a signed relative offset
// rather than a real address. The shared opcode table reports these as
// Implied mode, since addressing.Resolve never computes an address for
// them (the offset math lives in the cpu package's branch handler), so
// Step special-cases them here to print the resolved target.
var branchMnemonics = map[string]bool{
	"BCC": true, "BCS": true, "BEQ": true, "BNE": true,
	"BMI": true, "BPL": true, "BVC": true, "BVS": true,
}

// Step disassembles the instruction at pc and returns its text along with
// the number of bytes (including the opcode byte) it occupies, so the
// caller can advance pc for the next call. It does not interpret the
// instruction: a JMP target is printed, not followed.
//
// This always reads up to two bytes past pc, whether or not the opcode at
// pc actually consumes them, so the caller must ensure that range stays
// within the memory map.
func Step(pc uint16, r memory.Ram) (string, int) {
	op := r.Read(pc)
	b1 := r.Read(pc + 1)
	b2 := r.Read(pc + 2)

	name, mode, ok := cpu.Lookup(op)
	if !ok {
		return fmt.Sprintf("%.4X %.2X      UNIMPLEMENTED       ", pc, op), 1
	}

	if branchMnemonics[name] {
		target := pc + 2 + uint16(int16(int8(b1)))
		return fmt.Sprintf("%.4X %.2X %.2X      %s %.2X (%.4X) ", pc, op, b1, name, b1, target), 2
	}

	count := 1 + mode.OperandBytes()
	var out string
	switch mode {
	case addressing.Implied, addressing.Accumulator:
		out = fmt.Sprintf("%.4X %.2X         %s           ", pc, op, name)
	case addressing.Immediate:
		out = fmt.Sprintf("%.4X %.2X %.2X      %s #%.2X       ", pc, op, b1, name, b1)
	case addressing.ZeroPage:
		out = fmt.Sprintf("%.4X %.2X %.2X      %s %.2X        ", pc, op, b1, name, b1)
	case addressing.ZeroPageX:
		out = fmt.Sprintf("%.4X %.2X %.2X      %s %.2X,X      ", pc, op, b1, name, b1)
	case addressing.ZeroPageY:
		out = fmt.Sprintf("%.4X %.2X %.2X      %s %.2X,Y      ", pc, op, b1, name, b1)
	case addressing.IndirectX:
		out = fmt.Sprintf("%.4X %.2X %.2X      %s (%.2X,X)    ", pc, op, b1, name, b1)
	case addressing.IndirectY:
		out = fmt.Sprintf("%.4X %.2X %.2X      %s (%.2X),Y    ", pc, op, b1, name, b1)
	case addressing.Absolute:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %s %.2X%.2X      ", pc, op, b1, b2, name, b2, b1)
	case addressing.AbsoluteX:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %s %.2X%.2X,X    ", pc, op, b1, b2, name, b2, b1)
	case addressing.AbsoluteY:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %s %.2X%.2X,Y    ", pc, op, b1, b2, name, b2, b1)
	case addressing.Indirect:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %s (%.2X%.2X)    ", pc, op, b1, b2, name, b2, b1)
	default:
		panic(fmt.Sprintf("unhandled addressing mode: %v", mode))
	}
	return out, count
}
