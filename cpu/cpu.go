// Package cpu implements the MOS 6502 register file, opcode/addressing-mode
// tables, and two execution engines sharing that common state: a fast-path
// interpreter (StepInstruction) that runs one whole instruction per call,
// and a cycle-accurate interpreter (StepCycle) that advances exactly one
// bus cycle per call, reproducing each instruction's cycle count and its
// dummy-read/dummy-write pattern. StepCycle does not reproduce the order
// of operand and address-byte reads within an instruction: operand
// addresses are resolved at plan-build time (see cycle.go).
package cpu

import (
	"fmt"

	"github.com/pkieltyka/go6502/bus"
	"github.com/pkieltyka/go6502/irq"
)

// Interrupt vectors, read little-endian from the bus.
const (
	NMIVector   = uint16(0xFFFA)
	ResetVector = uint16(0xFFFC)
	IRQVector   = uint16(0xFFFE)
)

const stackBase = uint16(0x0100)

// DefaultUnstableMagic is the documented default for the "magic constant"
// approximation used by the ANE and LXA unstable illegal opcodes (§4.3 of
// the spec). Real hardware's behavior here depends on analogue bus
// capacitance and varies by chip batch; 0xEE is one of the two commonly
// cited constants (the other being 0xFF) and is pinned here so tests
// exercising ANE/LXA are reproducible rather than chip-specific.
const DefaultUnstableMagic = uint8(0xEE)

// InvalidCPUState reports an internal precondition violation — a decode
// fault in the opcode/addressing-mode tables, or an impossible cycle count.
// This indicates a programming error in the core, not a property of the
// program being executed, and is fatal: the CPU halts alongside returning
// this error.
type InvalidCPUState struct {
	Reason string
}

func (e InvalidCPUState) Error() string {
	return fmt.Sprintf("invalid CPU state: %s", e.Reason)
}

// HaltFault reports that a JAM/KIL opcode was decoded. The CPU's halted
// flag is set; every subsequent StepInstruction/StepCycle call is a no-op
// returning this same error until an explicit ColdReset.
type HaltFault struct {
	Opcode uint8
}

func (e HaltFault) Error() string {
	return fmt.Sprintf("JAM opcode 0x%02X halted the CPU", e.Opcode)
}

// EngineKind reports which stepping discipline produced a Snapshot.
type EngineKind uint8

const (
	EngineUnknown EngineKind = iota
	EngineFast
	EngineCycleAccurate
)

func (k EngineKind) String() string {
	switch k {
	case EngineFast:
		return "fast"
	case EngineCycleAccurate:
		return "cycle-accurate"
	default:
		return "unknown"
	}
}

// CPU is the shared register file and bus handle both execution engines
// operate on. A single instance must only ever be driven by one of
// StepInstruction or StepCycle for the duration of an instruction: mixing
// the two mid-instruction is undefined, since the cycle-accurate engine's
// internal plan/planIdx bookkeeping has no meaning to the fast path and
// vice versa. Between calls (i.e. at instruction boundaries) switching
// engines is safe.
type CPU struct {
	PC uint16
	SP uint8
	A  uint8
	X  uint8
	Y  uint8
	P  uint8

	// Cycles is the monotonically increasing count of bus cycles elapsed
	// since the last cold reset.
	Cycles uint64

	Halted     bool
	haltOpcode uint8

	Bus bus.Bus

	// UnstableMagic configures the ANE/LXA "magic constant" approximation.
	// Tests pinning unstable-opcode behavior must set this explicitly
	// rather than relying on DefaultUnstableMagic remaining unchanged.
	UnstableMagic uint8

	IRQLine *irq.Line
	NMIEdge *irq.Edge

	// curMode is the addressing mode of the instruction currently being
	// decoded/executed. Exposed read-only via Snapshot for the
	// cycle-accurate engine; the fast path also keeps it current but
	// callers normally don't need it there since a whole instruction has
	// already completed by the time they observe it.
	curMode AddressingMode
	curOp   uint8

	// Cycle-accurate engine state. See cycle.go. These are private to one
	// CPU instance and are not part of the public contract except via the
	// derived reporting in Snapshot.
	engine            EngineKind
	opVal             uint8
	opAddr            uint16
	writeDummyPending bool
	runningInterrupt  bool

	// plan is the current instruction's cycle-by-cycle micro-op sequence,
	// built once when StepCycle starts a new instruction and consumed one
	// entry per subsequent StepCycle call. planIdx indexes the next entry
	// to run; the instruction (or interrupt sequence) is complete once
	// planIdx reaches len(plan).
	plan    []microOp
	planIdx int
}

// New constructs a CPU wired to b and immediately performs a cold reset,
// matching the lifecycle described in the spec: a CPU always starts from a
// documented, reset state rather than an arbitrary one.
func New(b bus.Bus) *CPU {
	c := &CPU{
		Bus:           b,
		UnstableMagic: DefaultUnstableMagic,
		IRQLine:       &irq.Line{},
		NMIEdge:       &irq.Edge{},
	}
	c.ColdReset()
	return c
}

// ColdReset forces the documented power-on register state and reads the
// reset vector. pc = peek_u16(0xFFFC); p = Reserved|Break|IntDis|Zero;
// sp = 0xFD (as if three bytes had already been pushed); cycles = 0;
// halted = false; the cycle-accurate state machine returns to Fetch.
func (c *CPU) ColdReset() {
	c.A, c.X, c.Y = 0, 0, 0
	c.P = uint8(FlagReserved | FlagBreak | FlagIntDis | FlagZero)
	c.SP = 0xFD
	c.Cycles = 0
	c.Halted = false
	c.haltOpcode = 0
	c.PC = c.Bus.PeekU16(ResetVector)

	c.opVal = 0
	c.opAddr = 0
	c.writeDummyPending = false
	c.runningInterrupt = false
	c.plan = nil
	c.planIdx = 0
	c.engine = EngineUnknown
	c.curMode = Implied
	c.curOp = 0
}

// WarmReset sets IntDis, decrements sp by 3 (stack-page wrapped, as if
// pc/p had been pushed), and resets the cycle-accurate state machine to
// Fetch. It does not re-read the reset vector and leaves a, x, y, and pc
// untouched — distinguishing it from ColdReset per §4.6.
func (c *CPU) WarmReset() {
	c.SetFlag(FlagIntDis, true)
	c.SP -= 3
	c.plan = nil
	c.planIdx = 0
	c.writeDummyPending = false
	c.runningInterrupt = false
}

// RequestIRQ raises the level-triggered IRQ line. The line stays raised
// until the caller lowers it with ClearIRQ; both engines honour it at
// instruction boundaries, ignoring it entirely while IntDis is set.
func (c *CPU) RequestIRQ() {
	c.IRQLine.Set(true)
}

// ClearIRQ lowers the IRQ line, e.g. once the device causing it has been
// serviced by the driver.
func (c *CPU) ClearIRQ() {
	c.IRQLine.Set(false)
}

// RequestNMI latches an edge-triggered NMI. Unlike IRQ this is
// unconditional (IntDis has no effect) and is always honoured at the next
// instruction boundary, consuming the latch.
func (c *CPU) RequestNMI() {
	c.NMIEdge.Request()
}

// push writes val to the hardware stack at 0x0100+SP and decrements SP,
// wrapping within the stack page (0x0100 -> 0x01FF on underflow).
func (c *CPU) push(val uint8) {
	c.Bus.Write(stackBase+uint16(c.SP), val)
	c.SP--
}

// pop increments SP (wrapping 0x01FF -> 0x0100 on overflow) and reads the
// byte now on top of stack.
func (c *CPU) pop() uint8 {
	c.SP++
	return c.Bus.Read(stackBase + uint16(c.SP))
}

// pushAddr pushes a 16-bit address high-byte-first, matching JSR/BRK/IRQ/NMI.
func (c *CPU) pushAddr(addr uint16) {
	c.push(uint8(addr >> 8))
	c.push(uint8(addr))
}

// popAddr pops a 16-bit address low-byte-first (the inverse of pushAddr),
// matching RTS/RTI.
func (c *CPU) popAddr() uint16 {
	lo := c.pop()
	hi := c.pop()
	return uint16(hi)<<8 | uint16(lo)
}

// State names where StepCycle is within the instruction currently in
// flight. It is derived from the cycle-accurate engine's internal plan
// bookkeeping rather than being the control-flow mechanism itself — see
// the package comment on microOp in cycle.go.
type State uint8

const (
	// StateFetch: between instructions, about to decode the next opcode
	// (or service a pending interrupt).
	StateFetch State = iota
	// StateProcess: mid-instruction, resolving an address or operand.
	StateProcess
	// StateWriteDummy: a read-modify-write instruction's throwaway write
	// of the unmodified operand, immediately before the real write.
	StateWriteDummy
	// StateHalt: stopped on a JAM opcode.
	StateHalt
)

func (s State) String() string {
	switch s {
	case StateFetch:
		return "Fetch"
	case StateProcess:
		return "Process"
	case StateWriteDummy:
		return "WriteDummy"
	case StateHalt:
		return "Halt"
	default:
		return "?"
	}
}

// Snapshot is a read-only view of register/engine state for inspection and
// disassembly tooling. It never mutates the CPU or bus.
type Snapshot struct {
	PC     uint16
	SP     uint8
	A      uint8
	X      uint8
	Y      uint8
	P      uint8
	Mode   AddressingMode
	Cycles uint64
	Halted bool
	Engine EngineKind
	State  State
}

// Snapshot captures the current register file. Safe to call from either
// engine at any time. State only carries meaning for EngineCycleAccurate;
// the fast path reports StateFetch (or StateHalt once halted) since it
// never pauses mid-instruction.
func (c *CPU) Snapshot() Snapshot {
	return Snapshot{
		PC:     c.PC,
		SP:     c.SP,
		A:      c.A,
		X:      c.X,
		Y:      c.Y,
		P:      c.P,
		Mode:   c.curMode,
		Cycles: c.Cycles,
		Halted: c.Halted,
		Engine: c.engine,
		State:  c.reportState(),
	}
}

// reportState classifies where the cycle-accurate engine currently sits
// within an instruction, derived from plan/planIdx/writeDummyPending
// rather than tracked as its own state variable.
func (c *CPU) reportState() State {
	switch {
	case c.Halted:
		return StateHalt
	case c.engine != EngineCycleAccurate:
		return StateFetch
	case c.planIdx >= len(c.plan):
		return StateFetch
	case c.writeDummyPending:
		return StateWriteDummy
	default:
		return StateProcess
	}
}

// halt marks the CPU as stopped on opcode op. Idempotent: re-halting on a
// later JAM decode (which cannot happen, since halted short-circuits
// further decode) would simply overwrite haltOpcode with the same value.
func (c *CPU) halt(op uint8) {
	c.Halted = true
	c.haltOpcode = op
}
