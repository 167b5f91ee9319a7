// Package disassemble implements a disassembler for 6502 opcodes.
package disassemble

import (
	"fmt"

	"github.com/pkieltyka/go6502/bus"
	"github.com/pkieltyka/go6502/cpu"
)

// Step disassembles the instruction at pc and returns the rendered line
// plus the number of bytes forward pc should move to reach the next
// instruction. It does not interpret the instruction — a JMP's target is
// shown, never followed — and only ever uses b.Peek/b.PeekU16, never
// b.Read, so disassembling a program never perturbs memory-mapped device
// state. This always peeks one or two bytes past pc, so the two bytes
// following pc must be valid addresses even for a one-byte instruction.
func Step(pc uint16, b bus.Bus) (string, int) {
	op := b.Peek(pc)
	operand1 := b.Peek(pc + 1)
	operand2 := b.Peek(pc + 2)

	mn, mode := cpu.Decode(op)
	mnemonic := mn.String()
	count := 1 + operandByteCount(mode)

	var out string
	switch mode {
	case cpu.Implied:
		out = fmt.Sprintf("%.4X %.2X         %-4s           ", pc, op, mnemonic)
	case cpu.Accumulator:
		out = fmt.Sprintf("%.4X %.2X         %-4s A         ", pc, op, mnemonic)
	case cpu.Immediate:
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s #$%.2X      ", pc, op, operand1, mnemonic, operand1)
	case cpu.ZeroPage:
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s $%.2X       ", pc, op, operand1, mnemonic, operand1)
	case cpu.ZeroPageX:
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s $%.2X,X     ", pc, op, operand1, mnemonic, operand1)
	case cpu.ZeroPageY:
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s $%.2X,Y     ", pc, op, operand1, mnemonic, operand1)
	case cpu.IndirectX:
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s ($%.2X,X)   ", pc, op, operand1, mnemonic, operand1)
	case cpu.IndirectY:
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s ($%.2X),Y   ", pc, op, operand1, mnemonic, operand1)
	case cpu.Absolute:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %-4s $%.2X%.2X     ", pc, op, operand1, operand2, mnemonic, operand2, operand1)
	case cpu.AbsoluteX:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %-4s $%.2X%.2X,X   ", pc, op, operand1, operand2, mnemonic, operand2, operand1)
	case cpu.AbsoluteY:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %-4s $%.2X%.2X,Y   ", pc, op, operand1, operand2, mnemonic, operand2, operand1)
	case cpu.Indirect:
		out = fmt.Sprintf("%.4X %.2X %.2X %.2X   %-4s ($%.2X%.2X)   ", pc, op, operand1, operand2, mnemonic, operand2, operand1)
	case cpu.Relative:
		target := pc + 2 + uint16(int8(operand1))
		out = fmt.Sprintf("%.4X %.2X %.2X      %-4s $%.4X     ", pc, op, operand1, mnemonic, target)
	default:
		out = fmt.Sprintf("%.4X %.2X         %-4s ???       ", pc, op, mnemonic)
	}
	return out, count
}

// operandByteCount reports how many bytes after the opcode byte mode
// consumes, mirroring AddressingMode.operandBytes (unexported in cpu).
func operandByteCount(mode cpu.AddressingMode) int {
	switch mode {
	case cpu.Implied, cpu.Accumulator:
		return 0
	case cpu.Immediate, cpu.ZeroPage, cpu.ZeroPageX, cpu.ZeroPageY,
		cpu.IndirectX, cpu.IndirectY, cpu.Relative:
		return 1
	default:
		return 2
	}
}
