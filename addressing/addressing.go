// Package addressing computes effective addresses for the 6502 addressing
// modes, including the zero-page wrap quirk, the indexed page-cross penalty,
// and the indirect-JMP page-wrap bug. It knows nothing about opcodes,
// registers beyond X/Y, or cycle bookkeeping past "did this cross a page" -
// the cpu package owns cycle accounting and flag updates.
package addressing

import "github.com/jmchacon/sixfiveohtwo/memory"

// Mode enumerates the 6502 addressing modes this unit understands.
type Mode int

const (
	// Accumulator and Implied modes carry no operand bytes and are never
	// passed to Resolve; instructions using them operate directly on
	// registers.
	Accumulator Mode = iota
	Implied
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect // JMP only.
	IndirectX
	IndirectY
)

// String names a mode for disassembly and error messages.
func (m Mode) String() string {
	switch m {
	case Accumulator:
		return "Accumulator"
	case Implied:
		return "Implied"
	case Immediate:
		return "Immediate"
	case ZeroPage:
		return "ZeroPage"
	case ZeroPageX:
		return "ZeroPage,X"
	case ZeroPageY:
		return "ZeroPage,Y"
	case Absolute:
		return "Absolute"
	case AbsoluteX:
		return "Absolute,X"
	case AbsoluteY:
		return "Absolute,Y"
	case Indirect:
		return "Indirect"
	case IndirectX:
		return "(Indirect,X)"
	case IndirectY:
		return "(Indirect),Y"
	}
	return "Unknown"
}

// OperandBytes is the number of bytes after the opcode byte that this mode
// consumes from the instruction stream.
func (m Mode) OperandBytes() int {
	switch m {
	case Accumulator, Implied:
		return 0
	case Immediate, ZeroPage, ZeroPageX, ZeroPageY, IndirectX, IndirectY:
		return 1
	case Absolute, AbsoluteX, AbsoluteY, Indirect:
		return 2
	}
	return 0
}

// pageCrossed reports whether base and eff lie in different 256 byte pages.
func pageCrossed(base, eff uint16) bool {
	return base&0xFF00 != eff&0xFF00
}

// Resolve computes the effective address for mode, reading and consuming
// whatever operand bytes the mode requires from mem starting at *pc and
// advancing *pc past them. It returns the effective address and whether
// computing it crossed a page boundary (only ever true for AbsoluteX,
// AbsoluteY and IndirectY - the three modes where that matters for the
// read-vs-write cycle penalty rule in the caller).
//
// Immediate mode returns the address holding the operand byte itself so
// callers can read it uniformly with every other mode. Accumulator and
// Implied have no address and must not be passed here.
func Resolve(mode Mode, mem memory.Ram, pc *uint16, x, y uint8) (addr uint16, crossed bool) {
	switch mode {
	case Immediate:
		addr = *pc
		*pc++
		return addr, false

	case ZeroPage:
		b := mem.Read(*pc)
		*pc++
		return uint16(b), false

	case ZeroPageX:
		b := mem.Read(*pc)
		*pc++
		return uint16(uint8(b + x)), false

	case ZeroPageY:
		b := mem.Read(*pc)
		*pc++
		return uint16(uint8(b + y)), false

	case Absolute:
		lo := mem.Read(*pc)
		*pc++
		hi := mem.Read(*pc)
		*pc++
		return uint16(hi)<<8 | uint16(lo), false

	case AbsoluteX:
		return absoluteIndexed(mem, pc, x)

	case AbsoluteY:
		return absoluteIndexed(mem, pc, y)

	case IndirectX:
		b := mem.Read(*pc)
		*pc++
		ptr := uint8(b + x)
		lo := mem.Read(uint16(ptr))
		hi := mem.Read(uint16(uint8(ptr + 1)))
		return uint16(hi)<<8 | uint16(lo), false

	case IndirectY:
		b := mem.Read(*pc)
		*pc++
		lo := mem.Read(uint16(b))
		hi := mem.Read(uint16(uint8(b + 1)))
		base := uint16(hi)<<8 | uint16(lo)
		eff := base + uint16(y)
		return eff, pageCrossed(base, eff)
	}
	return 0, false
}

// absoluteIndexed implements AbsoluteX/AbsoluteY, sharing the base+reg
// page-cross computation.
func absoluteIndexed(mem memory.Ram, pc *uint16, reg uint8) (uint16, bool) {
	lo := mem.Read(*pc)
	*pc++
	hi := mem.Read(*pc)
	*pc++
	base := uint16(hi)<<8 | uint16(lo)
	eff := base + uint16(reg)
	return eff, pageCrossed(base, eff)
}

// ResolveIndirect implements JMP (ind): it reads a two byte pointer as an
// Absolute operand, then reads the little-endian target word from that
// pointer - reproducing the NMOS bug where a pointer whose low byte is
// $FF reads its high byte from $xx00 of the same page instead of crossing
// into the next page.
func ResolveIndirect(mem memory.Ram, pc *uint16) uint16 {
	ptr, _ := Resolve(Absolute, mem, pc, 0, 0)
	lo := mem.Read(ptr)
	hiAddr := (ptr & 0xFF00) | uint16(uint8(ptr&0x00FF)+1)
	hi := mem.Read(hiAddr)
	return uint16(hi)<<8 | uint16(lo)
}
