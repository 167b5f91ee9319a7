package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
	"github.com/pkieltyka/go6502/bus"
)

func newTestCPU(t *testing.T) (*CPU, *bus.RAM) {
	t.Helper()
	r := bus.NewRAM(0xEA) // fill with NOP so runaway programs don't JAM by accident
	r.SetVector(ResetVector, 0x0200)
	c := New(r)
	return c, r
}

func runOne(t *testing.T, c *CPU) int {
	t.Helper()
	n, err := c.StepInstruction()
	if err != nil {
		t.Fatalf("StepInstruction: %v\nstate: %s", err, spew.Sdump(c))
	}
	return n
}

func TestColdResetInvariants(t *testing.T) {
	r := bus.NewRAM(0x00)
	r.SetVector(ResetVector, 0xC000)
	c := New(r)

	if c.A != 0 || c.X != 0 || c.Y != 0 {
		t.Fatalf("cold reset registers: A=%#x X=%#x Y=%#x, want all zero", c.A, c.X, c.Y)
	}
	if c.SP != 0xFD {
		t.Fatalf("cold reset SP = %#x, want 0xFD", c.SP)
	}
	if c.PC != 0xC000 {
		t.Fatalf("cold reset PC = %#x, want 0xC000", c.PC)
	}
	want := uint8(FlagReserved | FlagBreak | FlagIntDis | FlagZero)
	if c.P != want {
		t.Fatalf("cold reset P = %#x, want %#x", c.P, want)
	}
	if c.Cycles != 0 || c.Halted {
		t.Fatalf("cold reset Cycles=%d Halted=%v, want 0/false", c.Cycles, c.Halted)
	}
}

func TestLoadAndTransfer(t *testing.T) {
	c, r := newTestCPU(t)
	prog := []uint8{
		0xA9, 0x80, // LDA #$80
		0xAA,       // TAX
		0xA0, 0x00, // LDY #$00
	}
	r.LoadAt(0x0200, prog)

	runOne(t, c) // LDA #$80
	if c.A != 0x80 || !c.GetFlag(FlagNegative) || c.GetFlag(FlagZero) {
		t.Fatalf("after LDA #$80: A=%#x N=%v Z=%v", c.A, c.GetFlag(FlagNegative), c.GetFlag(FlagZero))
	}
	runOne(t, c) // TAX
	if c.X != 0x80 {
		t.Fatalf("after TAX: X=%#x, want 0x80", c.X)
	}
	runOne(t, c) // LDY #$00
	if c.Y != 0 || !c.GetFlag(FlagZero) || c.GetFlag(FlagNegative) {
		t.Fatalf("after LDY #$00: Y=%#x Z=%v N=%v", c.Y, c.GetFlag(FlagZero), c.GetFlag(FlagNegative))
	}
}

func TestJSRRTSStackFrame(t *testing.T) {
	c, r := newTestCPU(t)
	// JSR $0300; (return here) NOP
	prog := []uint8{0x20, 0x00, 0x03}
	r.LoadAt(0x0200, prog)
	r.LoadAt(0x0300, []uint8{0x60}) // RTS

	runOne(t, c) // JSR
	if c.PC != 0x0300 {
		t.Fatalf("after JSR: PC=%#x, want 0x0300\nstate: %s", c.PC, spew.Sdump(c))
	}
	if c.SP != 0xFB {
		t.Fatalf("after JSR: SP=%#x, want 0xFB (two bytes pushed)\nstate: %s", c.SP, spew.Sdump(c))
	}
	// Return address on the stack is the address of JSR's last operand
	// byte (0x0202), not the instruction after it.
	lo := r.Peek(0x01FC)
	hi := r.Peek(0x01FD)
	if got := uint16(hi)<<8 | uint16(lo); got != 0x0202 {
		t.Fatalf("pushed return address = %#x, want 0x0202", got)
	}

	runOne(t, c) // RTS
	if c.PC != 0x0203 {
		t.Fatalf("after RTS: PC=%#x, want 0x0203", c.PC)
	}
	if c.SP != 0xFD {
		t.Fatalf("after RTS: SP=%#x, want restored to 0xFD", c.SP)
	}
}

func TestPageCrossCyclePenalty(t *testing.T) {
	c, r := newTestCPU(t)
	r.LoadAt(0x0200, []uint8{0xBD, 0xFF, 0x10}) // LDA $10FF,X
	c.X = 1
	r.Write(0x1100, 0x55)

	n := runOne(t, c)
	if c.A != 0x55 {
		t.Fatalf("LDA $10FF,X with X=1: A=%#x, want 0x55", c.A)
	}
	if n != 5 {
		t.Fatalf("LDA AbsoluteX page-crossing cycles = %d, want 5 (4 base + 1 penalty)", n)
	}
}

func TestADCSBCComplement(t *testing.T) {
	c, _ := newTestCPU(t)
	c.A = 0x50
	c.SetFlag(FlagCarry, true)
	c.adc(0x10)
	if c.A != 0x61 || c.GetFlag(FlagCarry) || c.GetFlag(FlagOverflow) {
		t.Fatalf("0x50+0x10+1: A=%#x C=%v V=%v", c.A, c.GetFlag(FlagCarry), c.GetFlag(FlagOverflow))
	}

	c.A = 0x50
	c.SetFlag(FlagCarry, true)
	c.adc(0x50)
	if c.A != 0xA1 || c.GetFlag(FlagCarry) || !c.GetFlag(FlagOverflow) {
		t.Fatalf("0x50+0x50+1: A=%#x C=%v V=%v, want overflow into negative", c.A, c.GetFlag(FlagCarry), c.GetFlag(FlagOverflow))
	}

	c.A = 0x50
	c.SetFlag(FlagCarry, true) // SBC with carry set means no borrow
	c.sbc(0x10)
	if c.A != 0x40 || !c.GetFlag(FlagCarry) {
		t.Fatalf("0x50-0x10: A=%#x C=%v, want 0x40/true", c.A, c.GetFlag(FlagCarry))
	}
}

func TestBranchRelativeArithmetic(t *testing.T) {
	c, r := newTestCPU(t)
	// At $0200: BNE -2 (branches back to itself), preceded by CLZ setup.
	r.LoadAt(0x0200, []uint8{0xD0, 0xFE}) // BNE $0200
	c.SetFlag(FlagZero, false)
	n := runOne(t, c)
	if c.PC != 0x0200 {
		t.Fatalf("BNE -2 target = %#x, want 0x0200 (branch to self)", c.PC)
	}
	if n != 3 {
		t.Fatalf("taken same-page branch cycles = %d, want 3", n)
	}
}

func TestBitFlagSemantics(t *testing.T) {
	c, r := newTestCPU(t)
	r.LoadAt(0x0200, []uint8{0x24, 0x10}) // BIT $10
	r.Write(0x0010, 0xC0)                 // bits 7 and 6 set, rest clear
	c.A = 0x3F                            // A AND operand == 0 even though operand != 0
	runOne(t, c)
	if !c.GetFlag(FlagZero) {
		t.Fatalf("BIT with A&operand==0 must set Zero")
	}
	if !c.GetFlag(FlagNegative) || !c.GetFlag(FlagOverflow) {
		t.Fatalf("BIT must copy operand bits 7/6 into N/V regardless of the Zero result")
	}
}

func TestStackPushPopRoundTrip(t *testing.T) {
	c, _ := newTestCPU(t)
	startSP := c.SP
	c.push(0x42)
	c.push(0x99)
	if got := c.pop(); got != 0x99 {
		t.Fatalf("pop() = %#x, want 0x99", got)
	}
	if got := c.pop(); got != 0x42 {
		t.Fatalf("pop() = %#x, want 0x42", got)
	}
	if c.SP != startSP {
		t.Fatalf("SP after balanced push/pop = %#x, want %#x", c.SP, startSP)
	}
}

func TestJAMHalts(t *testing.T) {
	c, r := newTestCPU(t)
	r.LoadAt(0x0200, []uint8{0x02}) // JAM
	_, err := c.StepInstruction()
	if _, ok := err.(HaltFault); !ok {
		t.Fatalf("StepInstruction on JAM: err=%v, want HaltFault", err)
	}
	if !c.Halted {
		t.Fatalf("CPU not marked Halted after JAM\nstate: %s", spew.Sdump(c))
	}
	_, err = c.StepInstruction()
	if _, ok := err.(HaltFault); !ok {
		t.Fatalf("StepInstruction after halt: err=%v, want HaltFault again", err)
	}
}

func TestIRQRespectsIntDisNMIDoesNot(t *testing.T) {
	c, r := newTestCPU(t)
	r.SetVector(IRQVector, 0x0300)
	r.SetVector(NMIVector, 0x0400)
	r.LoadAt(0x0200, []uint8{0xEA, 0xEA, 0xEA}) // NOP NOP NOP

	c.SetFlag(FlagIntDis, true)
	c.RequestIRQ()
	runOne(t, c) // masked IRQ must not fire; this executes the NOP instead
	if c.PC != 0x0201 {
		t.Fatalf("masked IRQ still serviced: PC=%#x, want 0x0201 (NOP executed)", c.PC)
	}

	c.RequestNMI()
	runOne(t, c) // NMI ignores IntDis
	if c.PC != 0x0400 {
		t.Fatalf("NMI not serviced: PC=%#x, want 0x0400", c.PC)
	}
	if diff := deep.Equal(c.GetFlag(FlagIntDis), true); diff != nil {
		t.Fatalf("IntDis after NMI entry: %v", diff)
	}
}

func TestUnstableMagicConfigurable(t *testing.T) {
	c, r := newTestCPU(t)
	c.UnstableMagic = 0xFF
	r.LoadAt(0x0200, []uint8{0xAB, 0x0F}) // LXA #$0F
	c.A = 0xF0
	runOne(t, c)
	want := (uint8(0xF0) | 0xFF) & 0x0F
	if c.A != want || c.X != want {
		t.Fatalf("LXA with UnstableMagic=0xFF: A=%#x X=%#x, want %#x", c.A, c.X, want)
	}
}
