package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
	"github.com/jmchacon/sixfiveohtwo/memory"
)

func newChip() (*Chip, *memory.Flat) {
	m := memory.NewFlat()
	c := New(m)
	return c, m
}

// load installs prog starting at 0x0200, points the reset vector at it, and
// resets the chip so PC lands on the first byte.
func load(c *Chip, m *memory.Flat, prog ...uint8) {
	const start = uint16(0x0200)
	for i, b := range prog {
		m.Write(start+uint16(i), b)
	}
	m.Write(RESET_VECTOR, uint8(start&0xFF))
	m.Write(RESET_VECTOR+1, uint8(start>>8))
	c.Reset()
}

func TestResetSeedsPCAndStack(t *testing.T) {
	c, m := newChip()
	m.Write(RESET_VECTOR, 0x34)
	m.Write(RESET_VECTOR+1, 0x12)
	c.Reset()
	if c.PC != 0x1234 {
		t.Errorf("PC after Reset = %#04x, want 0x1234", c.PC)
	}
	if c.S != 0xFF {
		t.Errorf("S after Reset = %#02x, want 0xFF", c.S)
	}
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	tests := []struct {
		name    string
		val     uint8
		wantZ   bool
		wantN   bool
	}{
		{"positive", 0x42, false, false},
		{"zero", 0x00, true, false},
		{"negative", 0x80, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, m := newChip()
			load(c, m, 0xA9, tc.val)
			if err := c.Execute(2); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if c.A != tc.val {
				t.Errorf("A = %#02x, want %#02x", c.A, tc.val)
			}
			if got := c.P&P_ZERO != 0; got != tc.wantZ {
				t.Errorf("Z = %v, want %v (P=%s)", got, tc.wantZ, spew.Sdump(c.P))
			}
			if got := c.P&P_NEGATIVE != 0; got != tc.wantN {
				t.Errorf("N = %v, want %v (P=%s)", got, tc.wantN, spew.Sdump(c.P))
			}
		})
	}
}

func TestLDAIndirectYPageCrossAddsCycle(t *testing.T) {
	c, m := newChip()
	load(c, m, 0xB1, 0x10)
	m.Write(0x0010, 0xFF)
	m.Write(0x0011, 0x02)
	m.Write(0x0300, 0x77) // $02FF + Y(1) = $0300, crosses the page
	c.Y = 0x01
	if err := c.Execute(6); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.A != 0x77 {
		t.Errorf("A = %#02x, want 0x77", c.A)
	}
	if err := c.Execute(4); err == nil {
		t.Fatal("expected CycleBudgetExhausted with only 4 cycles available")
	}
}

func TestSTAZeroPageX(t *testing.T) {
	c, m := newChip()
	load(c, m, 0x95, 0x80)
	c.A = 0x55
	c.X = 0x01
	if err := c.Execute(4); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := m.Read(0x0081); got != 0x55 {
		t.Errorf("mem[0x81] = %#02x, want 0x55", got)
	}
}

func TestADCSignedOverflow(t *testing.T) {
	tests := []struct {
		name      string
		a, m      uint8
		carryIn   bool
		wantA     uint8
		wantV     bool
		wantC     bool
	}{
		{"80+80 signed overflow", 0x50, 0x50, false, 0xA0, true, false},
		{"7F+01 signed overflow", 0x7F, 0x01, false, 0x80, true, false},
		{"positive no overflow", 0x01, 0x01, false, 0x02, false, false},
		{"unsigned carry no signed overflow", 0xFF, 0x01, false, 0x00, false, true},
		{"carry in counted", 0x01, 0x01, true, 0x03, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, m := newChip()
			load(c, m, 0x69, tc.m) // ADC #imm
			c.A = tc.a
			if tc.carryIn {
				c.P |= P_CARRY
			}
			if err := c.Execute(2); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if c.A != tc.wantA {
				t.Errorf("A = %#02x, want %#02x", c.A, tc.wantA)
			}
			if got := c.P&P_OVERFLOW != 0; got != tc.wantV {
				t.Errorf("V = %v, want %v", got, tc.wantV)
			}
			if got := c.P&P_CARRY != 0; got != tc.wantC {
				t.Errorf("C = %v, want %v", got, tc.wantC)
			}
		})
	}
}

func TestSBCIsOnesComplementADC(t *testing.T) {
	c, m := newChip()
	load(c, m, 0xE9, 0x01) // SBC #1
	c.A = 0x05
	c.P |= P_CARRY // carry set means "no borrow"
	if err := c.Execute(2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.A != 0x04 {
		t.Errorf("A = %#02x, want 0x04", c.A)
	}
	if c.P&P_CARRY == 0 {
		t.Error("C should remain set: no borrow occurred")
	}
}

func TestCMPFlagsDoNotTouchAccumulator(t *testing.T) {
	c, m := newChip()
	load(c, m, 0xC9, 0x40) // CMP #$40
	c.A = 0x40
	if err := c.Execute(2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.A != 0x40 {
		t.Errorf("CMP must not modify A, got %#02x", c.A)
	}
	if c.P&P_ZERO == 0 {
		t.Error("Z should be set: operands equal")
	}
	if c.P&P_CARRY == 0 {
		t.Error("C should be set: A >= M")
	}
	if c.P&P_NEGATIVE != 0 {
		t.Error("N should be clear: result is 0")
	}
}

func TestCMPClearsStaleFlagsFromPriorInstruction(t *testing.T) {
	c, m := newChip()
	// First CMP sets N (A < M), second CMP must clear it, not OR it in.
	load(c, m,
		0xC9, 0x01, // CMP #$01 with A=0 -> N set, C clear
		0xC9, 0x00, // CMP #$00 with A=0 -> should clear N, set Z and C
	)
	if err := c.Execute(4); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.P&P_NEGATIVE != 0 {
		t.Error("N should have been cleared by the second CMP")
	}
	if c.P&P_ZERO == 0 {
		t.Error("Z should be set after the second CMP")
	}
}

func TestBITReplacesNVRatherThanAnding(t *testing.T) {
	c, m := newChip()
	load(c, m, 0x24, 0x10) // BIT $10
	m.Write(0x0010, 0x40)  // bit 6 set, bit 7 clear; ANDing bits 7/6 into P would leave 0
	c.A = 0xFF
	c.P |= P_NEGATIVE // stale N from a previous instruction
	if err := c.Execute(3); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.P&P_NEGATIVE != 0 {
		t.Error("N must be replaced from operand bit 7 (clear), not ANDed")
	}
	if c.P&P_OVERFLOW == 0 {
		t.Error("V must be set from operand bit 6")
	}
	if c.P&P_ZERO != 0 {
		t.Error("Z reflects A & M, not the operand alone: 0xFF & 0x40 != 0")
	}
}

func TestASLMemoryAndAccumulator(t *testing.T) {
	c, m := newChip()
	load(c, m, 0x06, 0x20) // ASL $20
	m.Write(0x0020, 0x81)
	if err := c.Execute(5); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := m.Read(0x0020); got != 0x02 {
		t.Errorf("mem[0x20] = %#02x, want 0x02", got)
	}
	if c.P&P_CARRY == 0 {
		t.Error("C should carry out bit 7 of the original value")
	}

	c2, m2 := newChip()
	load(c2, m2, 0x0A) // ASL A
	c2.A = 0x40
	if err := c2.Execute(2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c2.A != 0x80 {
		t.Errorf("A = %#02x, want 0x80", c2.A)
	}
	if c2.P&P_NEGATIVE == 0 {
		t.Error("N should be set: result bit 7 is 1")
	}
}

func TestRORCarriesInFromCarryFlag(t *testing.T) {
	c, m := newChip()
	load(c, m, 0x6A) // ROR A
	c.A = 0x01
	c.P |= P_CARRY
	if err := c.Execute(2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.A != 0x80 {
		t.Errorf("A = %#02x, want 0x80 (old carry rotated into bit 7)", c.A)
	}
	if c.P&P_CARRY == 0 {
		t.Error("C should now hold the old bit 0, which was 1")
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	c, m := newChip()
	load(c, m,
		0x20, 0x06, 0x02, // JSR $0206
		0xA9, 0x11, // LDA #$11 (skipped by the call, executed after return)
		0xEA,       // NOP padding so $0206 lands on the routine below
		0xA9, 0x22, // $0206: LDA #$22
		0x60, // RTS
	)
	if err := c.Execute(6 + 2 + 6 + 2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.A != 0x11 {
		t.Errorf("A = %#02x, want 0x11 (control returned after the JSR operand)", c.A)
	}
	if c.PC != 0x0205 {
		t.Errorf("PC = %#04x, want 0x0205 (just past the LDA #$11 that ran after return)", c.PC)
	}
}

func TestBRKPushesPCPlusTwoAndSetsI(t *testing.T) {
	c, m := newChip()
	m.Write(IRQ_VECTOR, 0x00)
	m.Write(IRQ_VECTOR+1, 0x03)
	load(c, m, 0x00, 0xFF) // BRK, signature byte
	if err := c.Execute(7); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.PC != 0x0300 {
		t.Errorf("PC = %#04x, want 0x0300 (jumped through IRQ vector)", c.PC)
	}
	if c.P&P_INTERRUPT == 0 {
		t.Error("I should be set after BRK")
	}
	pushedP := m.Read(0x0100 + uint16(c.S) + 1)
	pushedLo := m.Read(0x0100 + uint16(c.S) + 2)
	pushedHi := m.Read(0x0100 + uint16(c.S) + 3)
	ret := uint16(pushedHi)<<8 | uint16(pushedLo)
	if ret != 0x0202 {
		t.Errorf("pushed return addr = %#04x, want 0x0202", ret)
	}
	if pushedP&P_B == 0 || pushedP&P_S1 == 0 {
		t.Errorf("pushed P = %#02x, want B and unused bit both set", pushedP)
	}
}

func TestRTIDoesNotIncrementPC(t *testing.T) {
	c, m := newChip()
	m.Write(0x01FD, 0x00) // pulled P
	m.Write(0x01FE, 0x34) // pulled PC lo
	m.Write(0x01FF, 0x12) // pulled PC hi
	load(c, m, 0x40) // RTI
	c.S = 0xFC       // after load: Reset sets S to 0xFF
	if err := c.Execute(6); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.PC != 0x1234 {
		t.Errorf("PC = %#04x, want 0x1234 unincremented", c.PC)
	}
}

func TestBranchTakenPageCross(t *testing.T) {
	c, m := newChip()
	const start = uint16(0x02F0)
	m.Write(start, 0xD0)   // BNE
	m.Write(start+1, 0x20) // forward 0x20 crosses into the next page
	m.Write(RESET_VECTOR, uint8(start&0xFF))
	m.Write(RESET_VECTOR+1, uint8(start>>8))
	c.Reset()
	c.P &^= P_ZERO
	if err := c.Execute(4); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	wantPC := start + 2 + 0x20
	if c.PC != wantPC {
		t.Errorf("PC = %#04x, want %#04x", c.PC, wantPC)
	}
}

func TestBranchNotTakenCostsTwoCycles(t *testing.T) {
	c, m := newChip()
	load(c, m, 0xD0, 0x7F) // BNE, not taken since Z is set
	c.P |= P_ZERO
	if err := c.Execute(2); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.PC != 0x0202 {
		t.Errorf("PC = %#04x, want 0x0202", c.PC)
	}
}

func TestInvalidOpcode(t *testing.T) {
	c, m := newChip()
	load(c, m, 0x02) // not a documented opcode
	err := c.Execute(10)
	if err == nil {
		t.Fatal("expected InvalidOpcode error")
	}
	if _, ok := err.(InvalidOpcode); !ok {
		t.Errorf("err = %T (%s), want InvalidOpcode", err, spew.Sdump(err))
	}
}

func TestCycleBudgetExhaustedHaltsWithoutPartialExecution(t *testing.T) {
	c, m := newChip()
	load(c, m, 0xA9, 0x99) // LDA #$99 costs 2 cycles
	err := c.Execute(1)
	if err == nil {
		t.Fatal("expected CycleBudgetExhausted")
	}
	if _, ok := err.(CycleBudgetExhausted); !ok {
		t.Errorf("err = %T, want CycleBudgetExhausted", err)
	}
	if c.A != 0x00 {
		t.Errorf("A = %#02x, want unmodified 0x00: the LDA must not partially apply", c.A)
	}
}

func TestPHPForcesBAndUnusedBitsThenPLPMasksThemAway(t *testing.T) {
	c, m := newChip()
	load(c, m,
		0x08, // PHP
		0x28, // PLP
	)
	c.P = 0x00
	if err := c.Execute(3 + 4); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if diff := deep.Equal(c.P, uint8(0x00)); diff != nil {
		t.Errorf("P after PHP/PLP round trip: %v", diff)
	}
}

func TestStackWrapsModulo256(t *testing.T) {
	c, m := newChip()
	c.S = 0x00
	c.pushStack(0xAB)
	if c.S != 0xFF {
		t.Errorf("S after push at 0x00 = %#02x, want 0xFF", c.S)
	}
	if got := m.Read(0x0100); got != 0xAB {
		t.Errorf("mem[0x0100] = %#02x, want 0xAB", got)
	}
}

func TestTransferRegisters(t *testing.T) {
	tests := []struct {
		name string
		prog uint8
		set  func(c *Chip)
		get  func(c *Chip) uint8
	}{
		{"TAX", 0xAA, func(c *Chip) { c.A = 0x42 }, func(c *Chip) uint8 { return c.X }},
		{"TAY", 0xA8, func(c *Chip) { c.A = 0x42 }, func(c *Chip) uint8 { return c.Y }},
		{"TXA", 0x8A, func(c *Chip) { c.X = 0x42 }, func(c *Chip) uint8 { return c.A }},
		{"TYA", 0x98, func(c *Chip) { c.Y = 0x42 }, func(c *Chip) uint8 { return c.A }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, m := newChip()
			load(c, m, tc.prog)
			tc.set(c)
			if err := c.Execute(2); err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got := tc.get(c); got != 0x42 {
				t.Errorf("%s: got %#02x, want 0x42", tc.name, got)
			}
		})
	}
}
