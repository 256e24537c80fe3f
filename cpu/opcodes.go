package cpu

import "github.com/jmchacon/sixfiveohtwo/addressing"

// regSelector names a register for the handful of generic handlers
// (load/store/compare/transfer/inc-dec) shared across several opcodes.
type regSelector int

const (
	regA regSelector = iota
	regX
	regY
)

func regPtr(p *Chip, r regSelector) *uint8 {
	switch r {
	case regX:
		return &p.X
	case regY:
		return &p.Y
	}
	return &p.A
}

// opcodeInfo is the per-opcode table entry the redesign in spec section 9
// calls for: mnemonic and addressing mode for disassembly, the documented
// minimum cycle cost (used to pre-check the budget before anything runs),
// and the handler that does the actual work and reports cycles spent.
type opcodeInfo struct {
	name   string
	mode   addressing.Mode
	cycles int
	exec   func(p *Chip) (int, error)
}

// Lookup exposes the table's mnemonic/mode for an opcode byte without
// exposing the internal exec closures, so the disassemble package can
// share this table instead of keeping its own copy.
func Lookup(op uint8) (name string, mode addressing.Mode, ok bool) {
	info, ok := opcodeTable[op]
	if !ok {
		return "", 0, false
	}
	return info.name, info.mode, true
}

// --- generic family handlers ---

func (p *Chip) execLoad(mode addressing.Mode, cycles int, r regSelector) (int, error) {
	addr, crossed := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	val := p.ram.Read(addr)
	*regPtr(p, r) = val
	p.setZN(val)
	if crossed {
		cycles++
	}
	return cycles, nil
}

func (p *Chip) execStore(mode addressing.Mode, cycles int, r regSelector) (int, error) {
	addr, _ := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	p.ram.Write(addr, *regPtr(p, r))
	return cycles, nil
}

func (p *Chip) execALU(mode addressing.Mode, cycles int, op func(a, v uint8) uint8) (int, error) {
	addr, crossed := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	val := p.ram.Read(addr)
	p.A = op(p.A, val)
	p.setZN(p.A)
	if crossed {
		cycles++
	}
	return cycles, nil
}

func (p *Chip) execADC(mode addressing.Mode, cycles int) (int, error) {
	addr, crossed := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	val := p.ram.Read(addr)
	carry := uint16(p.P & P_CARRY)
	sum := uint16(p.A) + uint16(val) + carry
	res := uint8(sum)
	p.overflowCheck(p.A, val, res)
	p.carryCheck(sum)
	p.A = res
	p.setZN(p.A)
	if crossed {
		cycles++
	}
	return cycles, nil
}

func (p *Chip) execSBC(mode addressing.Mode, cycles int) (int, error) {
	addr, crossed := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	// SBC is ADC of the one's complement of the operand.
	inv := ^p.ram.Read(addr)
	carry := uint16(p.P & P_CARRY)
	sum := uint16(p.A) + uint16(inv) + carry
	res := uint8(sum)
	p.overflowCheck(p.A, inv, res)
	p.carryCheck(sum)
	p.A = res
	p.setZN(p.A)
	if crossed {
		cycles++
	}
	return cycles, nil
}

func (p *Chip) execCompare(mode addressing.Mode, cycles int, r regSelector) (int, error) {
	addr, crossed := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	val := p.ram.Read(addr)
	reg := *regPtr(p, r)
	diff := reg - val
	p.zeroCheck(diff)
	p.negativeCheck(diff)
	p.P &^= P_CARRY
	if reg >= val {
		p.P |= P_CARRY
	}
	if crossed {
		cycles++
	}
	return cycles, nil
}

func (p *Chip) execBIT(mode addressing.Mode, cycles int) (int, error) {
	addr, _ := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	val := p.ram.Read(addr)
	p.zeroCheck(p.A & val)
	// N and V are replaced outright from bits 7/6 of the operand, not
	// merged in: other flags must be left untouched.
	p.P = (p.P &^ (P_NEGATIVE | P_OVERFLOW)) | (val & (P_NEGATIVE | P_OVERFLOW))
	return cycles, nil
}

func (p *Chip) execRMW(mode addressing.Mode, cycles int, op func(p *Chip, v uint8) uint8) (int, error) {
	addr, _ := addressing.Resolve(mode, p.ram, &p.PC, p.X, p.Y)
	val := p.ram.Read(addr)
	res := op(p, val)
	p.ram.Write(addr, res)
	p.setZN(res)
	return cycles, nil
}

func (p *Chip) execAcc(op func(p *Chip, v uint8) uint8) (int, error) {
	p.A = op(p, p.A)
	p.setZN(p.A)
	return 2, nil
}

func (p *Chip) execRegStep(r regSelector, delta uint8) (int, error) {
	reg := regPtr(p, r)
	*reg += delta
	p.setZN(*reg)
	return 2, nil
}

func (p *Chip) execTransfer(src, dst regSelector) (int, error) {
	val := *regPtr(p, src)
	*regPtr(p, dst) = val
	p.setZN(val)
	return 2, nil
}

func (p *Chip) execTXS() (int, error) {
	p.S = p.X
	return 2, nil
}

func (p *Chip) execTSX() (int, error) {
	p.X = p.S
	p.setZN(p.X)
	return 2, nil
}

func (p *Chip) execPHA() (int, error) {
	p.pushStack(p.A)
	return 3, nil
}

func (p *Chip) execPHP() (int, error) {
	p.pushP()
	return 3, nil
}

func (p *Chip) execPLA() (int, error) {
	p.A = p.popStack()
	p.setZN(p.A)
	return 4, nil
}

func (p *Chip) execPLP() (int, error) {
	p.popP()
	return 4, nil
}

func (p *Chip) execJMP() (int, error) {
	addr, _ := addressing.Resolve(addressing.Absolute, p.ram, &p.PC, 0, 0)
	p.PC = addr
	return 3, nil
}

func (p *Chip) execJMPIndirect() (int, error) {
	p.PC = addressing.ResolveIndirect(p.ram, &p.PC)
	return 5, nil
}

// execJSR pushes the address of the last byte of its own operand (the
// return address RTS will add one to), then jumps.
func (p *Chip) execJSR() (int, error) {
	lo := p.ram.Read(p.PC)
	p.PC++
	hi := p.ram.Read(p.PC)
	p.pushPC(p.PC)
	p.PC = uint16(hi)<<8 | uint16(lo)
	return 6, nil
}

func (p *Chip) execRTS() (int, error) {
	p.PC = p.popPC() + 1
	return 6, nil
}

// execBRK pushes PC+2 (skipping the signature byte every BRK reads and
// discards), then P with B and the unused bit forced high, then jumps
// through the IRQ/BRK vector with interrupts disabled.
func (p *Chip) execBRK() (int, error) {
	_ = p.ram.Read(p.PC)
	p.PC++
	p.pushPC(p.PC)
	p.pushP()
	p.P |= P_INTERRUPT
	lo := p.ram.Read(IRQ_VECTOR)
	hi := p.ram.Read(IRQ_VECTOR + 1)
	p.PC = uint16(hi)<<8 | uint16(lo)
	return 7, nil
}

// execRTI pulls P then PC, with no +1 on PC unlike RTS.
func (p *Chip) execRTI() (int, error) {
	p.popP()
	p.PC = p.popPC()
	return 6, nil
}

func (p *Chip) execFlag(set bool, mask uint8) (int, error) {
	if set {
		p.P |= mask
	} else {
		p.P &^= mask
	}
	return 2, nil
}

func (p *Chip) execNOP() (int, error) {
	return 2, nil
}

// execBranch fetches the signed offset, and if cond holds, adds it to PC
// and bills the page-cross penalty relative to the PC immediately after
// the offset fetch.
func (p *Chip) execBranch(cond bool) (int, error) {
	offset := p.ram.Read(p.PC)
	p.PC++
	if !cond {
		return 2, nil
	}
	base := p.PC
	target := base + uint16(int16(int8(offset)))
	p.PC = target
	if base&0xFF00 != target&0xFF00 {
		return 4, nil
	}
	return 3, nil
}

// --- ALU operand functions (AND/ORA/EOR) ---

func andOp(a, v uint8) uint8 { return a & v }
func oraOp(a, v uint8) uint8 { return a | v }
func eorOp(a, v uint8) uint8 { return a ^ v }

// --- RMW operand functions (INC/DEC/ASL/LSR/ROL/ROR) ---

func incOp(p *Chip, v uint8) uint8 { return v + 1 }
func decOp(p *Chip, v uint8) uint8 { return v - 1 }

func aslOp(p *Chip, v uint8) uint8 {
	p.P &^= P_CARRY
	if v&0x80 != 0 {
		p.P |= P_CARRY
	}
	return v << 1
}

func lsrOp(p *Chip, v uint8) uint8 {
	p.P &^= P_CARRY
	if v&0x01 != 0 {
		p.P |= P_CARRY
	}
	return v >> 1
}

func rolOp(p *Chip, v uint8) uint8 {
	carryIn := p.P & P_CARRY
	p.P &^= P_CARRY
	if v&0x80 != 0 {
		p.P |= P_CARRY
	}
	return (v << 1) | carryIn
}

func rorOp(p *Chip, v uint8) uint8 {
	carryIn := p.P & P_CARRY
	p.P &^= P_CARRY
	if v&0x01 != 0 {
		p.P |= P_CARRY
	}
	return (v >> 1) | (carryIn << 7)
}

// --- table construction helpers ---

func ld(name string, r regSelector, mode addressing.Mode, cycles int) opcodeInfo {
	return opcodeInfo{name, mode, cycles, func(p *Chip) (int, error) { return p.execLoad(mode, cycles, r) }}
}

func st(name string, r regSelector, mode addressing.Mode, cycles int) opcodeInfo {
	return opcodeInfo{name, mode, cycles, func(p *Chip) (int, error) { return p.execStore(mode, cycles, r) }}
}

func alu(name string, mode addressing.Mode, cycles int, op func(a, v uint8) uint8) opcodeInfo {
	return opcodeInfo{name, mode, cycles, func(p *Chip) (int, error) { return p.execALU(mode, cycles, op) }}
}

func adc(mode addressing.Mode, cycles int) opcodeInfo {
	return opcodeInfo{"ADC", mode, cycles, func(p *Chip) (int, error) { return p.execADC(mode, cycles) }}
}

func sbc(mode addressing.Mode, cycles int) opcodeInfo {
	return opcodeInfo{"SBC", mode, cycles, func(p *Chip) (int, error) { return p.execSBC(mode, cycles) }}
}

func cmp(name string, r regSelector, mode addressing.Mode, cycles int) opcodeInfo {
	return opcodeInfo{name, mode, cycles, func(p *Chip) (int, error) { return p.execCompare(mode, cycles, r) }}
}

func bit(mode addressing.Mode, cycles int) opcodeInfo {
	return opcodeInfo{"BIT", mode, cycles, func(p *Chip) (int, error) { return p.execBIT(mode, cycles) }}
}

func rmw(name string, mode addressing.Mode, cycles int, op func(p *Chip, v uint8) uint8) opcodeInfo {
	return opcodeInfo{name, mode, cycles, func(p *Chip) (int, error) { return p.execRMW(mode, cycles, op) }}
}

func acc(name string, op func(p *Chip, v uint8) uint8) opcodeInfo {
	return opcodeInfo{name, addressing.Accumulator, 2, func(p *Chip) (int, error) { return p.execAcc(op) }}
}

func regStep(name string, r regSelector, delta uint8) opcodeInfo {
	return opcodeInfo{name, addressing.Implied, 2, func(p *Chip) (int, error) { return p.execRegStep(r, delta) }}
}

func transfer(name string, src, dst regSelector) opcodeInfo {
	return opcodeInfo{name, addressing.Implied, 2, func(p *Chip) (int, error) { return p.execTransfer(src, dst) }}
}

func implied(name string, cycles int, fn func(p *Chip) (int, error)) opcodeInfo {
	return opcodeInfo{name, addressing.Implied, cycles, fn}
}

func flag(name string, set bool, mask uint8) opcodeInfo {
	return opcodeInfo{name, addressing.Implied, 2, func(p *Chip) (int, error) { return p.execFlag(set, mask) }}
}

// branch's table cost is the not-taken minimum; execBranch reports the
// actual 3 or 4 cycle cost of a taken branch once it knows the outcome.
func branch(name string, cond func(p *Chip) bool) opcodeInfo {
	return opcodeInfo{name, addressing.Implied, 2, func(p *Chip) (int, error) { return p.execBranch(cond(p)) }}
}

// opcodeTable holds exactly the 151 documented NMOS 6502 opcodes. Any byte
// value not present here is undocumented/illegal and out of scope; looking
// it up in Execute produces InvalidOpcode.
var opcodeTable = map[uint8]opcodeInfo{
	// Loads.
	0xA9: ld("LDA", regA, addressing.Immediate, 2),
	0xA5: ld("LDA", regA, addressing.ZeroPage, 3),
	0xB5: ld("LDA", regA, addressing.ZeroPageX, 4),
	0xAD: ld("LDA", regA, addressing.Absolute, 4),
	0xBD: ld("LDA", regA, addressing.AbsoluteX, 4),
	0xB9: ld("LDA", regA, addressing.AbsoluteY, 4),
	0xA1: ld("LDA", regA, addressing.IndirectX, 6),
	0xB1: ld("LDA", regA, addressing.IndirectY, 5),

	0xA2: ld("LDX", regX, addressing.Immediate, 2),
	0xA6: ld("LDX", regX, addressing.ZeroPage, 3),
	0xB6: ld("LDX", regX, addressing.ZeroPageY, 4),
	0xAE: ld("LDX", regX, addressing.Absolute, 4),
	0xBE: ld("LDX", regX, addressing.AbsoluteY, 4),

	0xA0: ld("LDY", regY, addressing.Immediate, 2),
	0xA4: ld("LDY", regY, addressing.ZeroPage, 3),
	0xB4: ld("LDY", regY, addressing.ZeroPageX, 4),
	0xAC: ld("LDY", regY, addressing.Absolute, 4),
	0xBC: ld("LDY", regY, addressing.AbsoluteX, 4),

	// Stores. Indexed/indirect stores always bill the spurious read cycle.
	0x85: st("STA", regA, addressing.ZeroPage, 3),
	0x95: st("STA", regA, addressing.ZeroPageX, 4),
	0x8D: st("STA", regA, addressing.Absolute, 4),
	0x9D: st("STA", regA, addressing.AbsoluteX, 5),
	0x99: st("STA", regA, addressing.AbsoluteY, 5),
	0x81: st("STA", regA, addressing.IndirectX, 6),
	0x91: st("STA", regA, addressing.IndirectY, 6),

	0x86: st("STX", regX, addressing.ZeroPage, 3),
	0x96: st("STX", regX, addressing.ZeroPageY, 4),
	0x8E: st("STX", regX, addressing.Absolute, 4),

	0x84: st("STY", regY, addressing.ZeroPage, 3),
	0x94: st("STY", regY, addressing.ZeroPageX, 4),
	0x8C: st("STY", regY, addressing.Absolute, 4),

	// Transfers.
	0xAA: transfer("TAX", regA, regX),
	0xA8: transfer("TAY", regA, regY),
	0x8A: transfer("TXA", regX, regA),
	0x98: transfer("TYA", regY, regA),
	0xBA: implied("TSX", 2, (*Chip).execTSX),
	0x9A: implied("TXS", 2, (*Chip).execTXS),

	// Stack.
	0x48: implied("PHA", 3, (*Chip).execPHA),
	0x08: implied("PHP", 3, (*Chip).execPHP),
	0x68: implied("PLA", 4, (*Chip).execPLA),
	0x28: implied("PLP", 4, (*Chip).execPLP),

	// Logic.
	0x29: alu("AND", addressing.Immediate, 2, andOp),
	0x25: alu("AND", addressing.ZeroPage, 3, andOp),
	0x35: alu("AND", addressing.ZeroPageX, 4, andOp),
	0x2D: alu("AND", addressing.Absolute, 4, andOp),
	0x3D: alu("AND", addressing.AbsoluteX, 4, andOp),
	0x39: alu("AND", addressing.AbsoluteY, 4, andOp),
	0x21: alu("AND", addressing.IndirectX, 6, andOp),
	0x31: alu("AND", addressing.IndirectY, 5, andOp),

	0x49: alu("EOR", addressing.Immediate, 2, eorOp),
	0x45: alu("EOR", addressing.ZeroPage, 3, eorOp),
	0x55: alu("EOR", addressing.ZeroPageX, 4, eorOp),
	0x4D: alu("EOR", addressing.Absolute, 4, eorOp),
	0x5D: alu("EOR", addressing.AbsoluteX, 4, eorOp),
	0x59: alu("EOR", addressing.AbsoluteY, 4, eorOp),
	0x41: alu("EOR", addressing.IndirectX, 6, eorOp),
	0x51: alu("EOR", addressing.IndirectY, 5, eorOp),

	0x09: alu("ORA", addressing.Immediate, 2, oraOp),
	0x05: alu("ORA", addressing.ZeroPage, 3, oraOp),
	0x15: alu("ORA", addressing.ZeroPageX, 4, oraOp),
	0x0D: alu("ORA", addressing.Absolute, 4, oraOp),
	0x1D: alu("ORA", addressing.AbsoluteX, 4, oraOp),
	0x19: alu("ORA", addressing.AbsoluteY, 4, oraOp),
	0x01: alu("ORA", addressing.IndirectX, 6, oraOp),
	0x11: alu("ORA", addressing.IndirectY, 5, oraOp),

	0x24: bit(addressing.ZeroPage, 3),
	0x2C: bit(addressing.Absolute, 4),

	// Arithmetic.
	0x69: adc(addressing.Immediate, 2),
	0x65: adc(addressing.ZeroPage, 3),
	0x75: adc(addressing.ZeroPageX, 4),
	0x6D: adc(addressing.Absolute, 4),
	0x7D: adc(addressing.AbsoluteX, 4),
	0x79: adc(addressing.AbsoluteY, 4),
	0x61: adc(addressing.IndirectX, 6),
	0x71: adc(addressing.IndirectY, 5),

	0xE9: sbc(addressing.Immediate, 2),
	0xE5: sbc(addressing.ZeroPage, 3),
	0xF5: sbc(addressing.ZeroPageX, 4),
	0xED: sbc(addressing.Absolute, 4),
	0xFD: sbc(addressing.AbsoluteX, 4),
	0xF9: sbc(addressing.AbsoluteY, 4),
	0xE1: sbc(addressing.IndirectX, 6),
	0xF1: sbc(addressing.IndirectY, 5),

	// Compare.
	0xC9: cmp("CMP", regA, addressing.Immediate, 2),
	0xC5: cmp("CMP", regA, addressing.ZeroPage, 3),
	0xD5: cmp("CMP", regA, addressing.ZeroPageX, 4),
	0xCD: cmp("CMP", regA, addressing.Absolute, 4),
	0xDD: cmp("CMP", regA, addressing.AbsoluteX, 4),
	0xD9: cmp("CMP", regA, addressing.AbsoluteY, 4),
	0xC1: cmp("CMP", regA, addressing.IndirectX, 6),
	0xD1: cmp("CMP", regA, addressing.IndirectY, 5),

	0xE0: cmp("CPX", regX, addressing.Immediate, 2),
	0xE4: cmp("CPX", regX, addressing.ZeroPage, 3),
	0xEC: cmp("CPX", regX, addressing.Absolute, 4),

	0xC0: cmp("CPY", regY, addressing.Immediate, 2),
	0xC4: cmp("CPY", regY, addressing.ZeroPage, 3),
	0xCC: cmp("CPY", regY, addressing.Absolute, 4),

	// Inc/Dec on memory.
	0xE6: rmw("INC", addressing.ZeroPage, 5, incOp),
	0xF6: rmw("INC", addressing.ZeroPageX, 6, incOp),
	0xEE: rmw("INC", addressing.Absolute, 6, incOp),
	0xFE: rmw("INC", addressing.AbsoluteX, 7, incOp),

	0xC6: rmw("DEC", addressing.ZeroPage, 5, decOp),
	0xD6: rmw("DEC", addressing.ZeroPageX, 6, decOp),
	0xCE: rmw("DEC", addressing.Absolute, 6, decOp),
	0xDE: rmw("DEC", addressing.AbsoluteX, 7, decOp),

	// Inc/Dec on registers.
	0xE8: regStep("INX", regX, 1),
	0xC8: regStep("INY", regY, 1),
	0xCA: regStep("DEX", regX, 0xFF),
	0x88: regStep("DEY", regY, 0xFF),

	// Shifts/rotates, memory form.
	0x06: rmw("ASL", addressing.ZeroPage, 5, aslOp),
	0x16: rmw("ASL", addressing.ZeroPageX, 6, aslOp),
	0x0E: rmw("ASL", addressing.Absolute, 6, aslOp),
	0x1E: rmw("ASL", addressing.AbsoluteX, 7, aslOp),

	0x46: rmw("LSR", addressing.ZeroPage, 5, lsrOp),
	0x56: rmw("LSR", addressing.ZeroPageX, 6, lsrOp),
	0x4E: rmw("LSR", addressing.Absolute, 6, lsrOp),
	0x5E: rmw("LSR", addressing.AbsoluteX, 7, lsrOp),

	0x26: rmw("ROL", addressing.ZeroPage, 5, rolOp),
	0x36: rmw("ROL", addressing.ZeroPageX, 6, rolOp),
	0x2E: rmw("ROL", addressing.Absolute, 6, rolOp),
	0x3E: rmw("ROL", addressing.AbsoluteX, 7, rolOp),

	0x66: rmw("ROR", addressing.ZeroPage, 5, rorOp),
	0x76: rmw("ROR", addressing.ZeroPageX, 6, rorOp),
	0x6E: rmw("ROR", addressing.Absolute, 6, rorOp),
	0x7E: rmw("ROR", addressing.AbsoluteX, 7, rorOp),

	// Shifts/rotates, accumulator form.
	0x0A: acc("ASL", aslOp),
	0x4A: acc("LSR", lsrOp),
	0x2A: acc("ROL", rolOp),
	0x6A: acc("ROR", rorOp),

	// Jumps and subroutines. JMP/JSR carry an Absolute/Indirect operand mode
	// for disassembly; execJSR reads its operand by walking p.PC directly
	// rather than going through addressing.Resolve.
	0x4C: {"JMP", addressing.Absolute, 3, (*Chip).execJMP},
	0x6C: {"JMP", addressing.Indirect, 5, (*Chip).execJMPIndirect},
	0x20: {"JSR", addressing.Absolute, 6, (*Chip).execJSR},
	0x60: implied("RTS", 6, (*Chip).execRTS),

	// Branches.
	0x90: branch("BCC", func(p *Chip) bool { return p.P&P_CARRY == 0 }),
	0xB0: branch("BCS", func(p *Chip) bool { return p.P&P_CARRY != 0 }),
	0xF0: branch("BEQ", func(p *Chip) bool { return p.P&P_ZERO != 0 }),
	0xD0: branch("BNE", func(p *Chip) bool { return p.P&P_ZERO == 0 }),
	0x30: branch("BMI", func(p *Chip) bool { return p.P&P_NEGATIVE != 0 }),
	0x10: branch("BPL", func(p *Chip) bool { return p.P&P_NEGATIVE == 0 }),
	0x50: branch("BVC", func(p *Chip) bool { return p.P&P_OVERFLOW == 0 }),
	0x70: branch("BVS", func(p *Chip) bool { return p.P&P_OVERFLOW != 0 }),

	// Flag ops.
	0x18: flag("CLC", false, P_CARRY),
	0x38: flag("SEC", true, P_CARRY),
	0x58: flag("CLI", false, P_INTERRUPT),
	0x78: flag("SEI", true, P_INTERRUPT),
	0xD8: flag("CLD", false, P_DECIMAL),
	0xF8: flag("SED", true, P_DECIMAL),
	0xB8: flag("CLV", false, P_OVERFLOW),

	// Break/return-from-interrupt.
	0x00: implied("BRK", 7, (*Chip).execBRK),
	0x40: implied("RTI", 6, (*Chip).execRTI),

	// No-op.
	0xEA: implied("NOP", 2, (*Chip).execNOP),
}
