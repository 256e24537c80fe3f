// Package cpu implements the instruction decoder and executor for the
// documented NMOS 6502: 151 legal opcodes across 11 addressing modes,
// cycle-accounted against a caller-supplied budget.
package cpu

import (
	"fmt"

	"github.com/jmchacon/sixfiveohtwo/memory"
)

// Status register bit masks, in the canonical N V _ B D I Z C layout.
const (
	P_CARRY     = uint8(0x01)
	P_ZERO      = uint8(0x02)
	P_INTERRUPT = uint8(0x04)
	P_DECIMAL   = uint8(0x08)
	P_B         = uint8(0x10) // Only meaningful while pushed to the stack.
	P_S1        = uint8(0x20) // Unused; always 1 when pushed.
	P_OVERFLOW  = uint8(0x40)
	P_NEGATIVE  = uint8(0x80)

	// pMask covers the six flags that actually exist as internal state.
	// B and the unused bit are synthesized on push and discarded on pull.
	pMask = P_NEGATIVE | P_OVERFLOW | P_DECIMAL | P_INTERRUPT | P_ZERO | P_CARRY
)

const (
	NMI_VECTOR   = uint16(0xFFFA)
	RESET_VECTOR = uint16(0xFFFC)
	IRQ_VECTOR   = uint16(0xFFFE)
)

// InvalidOpcode is returned when the fetched byte is not one of the 151
// documented NMOS opcodes this core implements.
type InvalidOpcode struct {
	Opcode uint8
	PC     uint16
}

func (e InvalidOpcode) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X at PC 0x%04X", e.Opcode, e.PC)
}

// CycleBudgetExhausted is returned when an instruction's documented minimum
// cycle cost exceeds the budget remaining to execute, checked before the
// instruction runs so a too-small budget never partially applies an
// instruction's effects. Only that table minimum is checked: page-cross and
// taken-branch cycles are billed afterwards, so a budget short by just those
// cycles ends Execute without this error, and budget left over after the
// intended program is spent executing whatever bytes follow it.
type CycleBudgetExhausted struct {
	Remaining int
	Needed    int
	PC        uint16
}

func (e CycleBudgetExhausted) Error() string {
	return fmt.Sprintf("cycle budget exhausted at PC 0x%04X: needed %d, had %d", e.PC, e.Needed, e.Remaining)
}

// Chip is the 6502 register file plus the memory it executes against.
type Chip struct {
	A  uint8
	X  uint8
	Y  uint8
	S  uint8
	P  uint8
	PC uint16

	ram memory.Ram
}

// New returns a Chip wired to ram with all registers zeroed and P cleared,
// per the default construction contract. Callers typically follow this
// with Reset to seed PC from the reset vector.
func New(ram memory.Ram) *Chip {
	return &Chip{ram: ram}
}

// Reset seeds PC from the reset vector and sets SP to its canonical power-on
// value. Flags are left untouched: real hardware also sets I=1 on reset, but
// this core follows the contract in spec section 6 and does not.
func (p *Chip) Reset() {
	lo := p.ram.Read(RESET_VECTOR)
	hi := p.ram.Read(RESET_VECTOR + 1)
	p.PC = uint16(hi)<<8 | uint16(lo)
	p.S = 0xFF
}

// Execute runs instructions until the cycle budget is exhausted, returning
// a fatal error if it hits an undocumented opcode or a budget underflow.
// A budget of zero (or less) halts immediately with no error.
func (p *Chip) Execute(budget int) error {
	for budget > 0 {
		startPC := p.PC
		op := p.ram.Read(p.PC)
		info, ok := opcodeTable[op]
		if !ok {
			return InvalidOpcode{Opcode: op, PC: startPC}
		}
		if info.cycles > budget {
			return CycleBudgetExhausted{Remaining: budget, Needed: info.cycles, PC: startPC}
		}
		p.PC++

		cycles, err := info.exec(p)
		if err != nil {
			return err
		}
		budget -= cycles
	}
	return nil
}

// zeroCheck sets Z from whether reg is zero. Unconditional assignment, not
// a one-way "set on true": stale flags from a prior instruction must not
// survive.
func (p *Chip) zeroCheck(reg uint8) {
	p.P &^= P_ZERO
	if reg == 0 {
		p.P |= P_ZERO
	}
}

// negativeCheck sets N from bit 7 of reg.
func (p *Chip) negativeCheck(reg uint8) {
	p.P &^= P_NEGATIVE
	if reg&0x80 != 0 {
		p.P |= P_NEGATIVE
	}
}

// setZN is the common case of updating both Z and N from an 8 bit result.
func (p *Chip) setZN(reg uint8) {
	p.zeroCheck(reg)
	p.negativeCheck(reg)
}

// carryCheck sets C from whether a 9 (or wider) bit ALU result carried out
// of bit 7, i.e. res >= 0x100.
func (p *Chip) carryCheck(res uint16) {
	p.P &^= P_CARRY
	if res >= 0x100 {
		p.P |= P_CARRY
	}
}

// overflowCheck implements the canonical signed-overflow rule for ADC/SBC:
// V is set iff the accumulator and operand share a sign bit that disagrees
// with the result's sign bit.
func (p *Chip) overflowCheck(reg, arg, res uint8) {
	p.P &^= P_OVERFLOW
	if (reg^res)&(arg^res)&0x80 != 0 {
		p.P |= P_OVERFLOW
	}
}

// pushStack writes val to the stack and decrements S, wrapping mod 256.
func (p *Chip) pushStack(val uint8) {
	p.ram.Write(0x0100+uint16(p.S), val)
	p.S--
}

// popStack increments S (wrapping mod 256) and reads the new top of stack.
func (p *Chip) popStack() uint8 {
	p.S++
	return p.ram.Read(0x0100 + uint16(p.S))
}

// pushPC pushes pc high-byte-first, then low-byte, as JSR/BRK require.
func (p *Chip) pushPC(pc uint16) {
	p.pushStack(uint8(pc >> 8))
	p.pushStack(uint8(pc))
}

// popPC pulls low-byte-first, then high-byte, as RTS/RTI require.
func (p *Chip) popPC() uint16 {
	lo := p.popStack()
	hi := p.popStack()
	return uint16(hi)<<8 | uint16(lo)
}

// pushP packs P for PHP/BRK: bits 4 and 5 (B and the unused bit) are always
// forced high on the stack copy, reflecting the NMOS convention that a
// pushed status byte always advertises a software break.
func (p *Chip) pushP() {
	p.pushStack((p.P & pMask) | P_B | P_S1)
}

// popP unpacks P for PLP/RTI: bits 4 and 5 never exist as real flip-flops,
// so they are masked away when adopting a pulled value.
func (p *Chip) popP() {
	p.P = p.popStack() & pMask
}
