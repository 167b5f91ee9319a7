package cpu

// fast.go implements the fast-path engine: StepInstruction decodes and runs
// one whole instruction per call, paying only for the bus accesses the
// program's own operand actually needs — no dummy reads, no RMW dummy
// write. It trades hardware-exact bus traffic for throughput; callers that
// need cycle-exact bus behavior use StepCycle instead (cycle.go).

// StepInstruction decodes and fully executes the instruction at PC,
// servicing a pending NMI or unmasked IRQ first if one is outstanding. It
// returns the number of cycles the instruction (or interrupt entry) took
// and advances Cycles by the same amount. Once halted by a JAM opcode,
// every subsequent call is a no-op returning the same HaltFault until
// ColdReset.
func (c *CPU) StepInstruction() (int, error) {
	if c.Halted {
		return 0, HaltFault{Opcode: c.haltOpcode}
	}
	c.engine = EngineFast

	if n, serviced := c.maybeServiceInterruptFast(); serviced {
		return n, nil
	}

	op := c.fetchByte()
	info := decode(op)
	c.curOp = op
	c.curMode = info.Mode

	if info.Mnemonic == JAM {
		c.halt(op)
		c.Cycles += uint64(info.Cycles)
		return int(info.Cycles), HaltFault{Opcode: op}
	}

	cycles := int(info.Cycles)
	cycles += c.execute(info)

	c.Cycles += uint64(cycles)
	return cycles, nil
}

// maybeServiceInterruptFast checks NMI (edge, unconditional) then IRQ
// (level, masked by IntDis) and enters the interrupt handler for whichever
// fires, consuming the latched NMI request in the process. Returns the
// fixed 7-cycle interrupt-entry cost and true if one was serviced.
func (c *CPU) maybeServiceInterruptFast() (int, bool) {
	if c.NMIEdge.Raised() {
		c.enterInterrupt(NMIVector, false)
		c.Cycles += 7
		return 7, true
	}
	if c.IRQLine.Raised() && !c.GetFlag(FlagIntDis) {
		c.enterInterrupt(IRQVector, false)
		c.Cycles += 7
		return 7, true
	}
	return 0, false
}

// enterInterrupt pushes PC and P (with Reserved always set and Break set
// only for a software BRK) high-byte-first, masks further IRQs, and loads
// PC from vector.
func (c *CPU) enterInterrupt(vector uint16, brk bool) {
	c.pushAddr(c.PC)
	flags := c.P | uint8(FlagReserved)
	if brk {
		flags |= uint8(FlagBreak)
	} else {
		flags &^= uint8(FlagBreak)
	}
	c.push(flags)
	c.SetFlag(FlagIntDis, true)
	lo := c.Bus.Read(vector)
	hi := c.Bus.Read(vector + 1)
	c.PC = uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) fetchByte() uint8 {
	v := c.Bus.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

// readU16ZP reads a little-endian pointer out of the zero page, wrapping
// the high-byte fetch within page zero (the documented ($nn,X)/($nn),Y
// behavior at zp=0xFF).
func (c *CPU) readU16ZP(zp uint8) uint16 {
	lo := c.Bus.Read(uint16(zp))
	hi := c.Bus.Read(uint16(zp + 1))
	return uint16(hi)<<8 | uint16(lo)
}

// readU16Bug reproduces JMP (Indirect)'s page-wrap bug: when the pointer's
// low byte is 0xFF, the high byte is fetched from the start of the same
// page rather than the next page.
func (c *CPU) readU16Bug(ptr uint16) uint16 {
	lo := c.Bus.Read(ptr)
	var hiAddr uint16
	if ptr&0x00FF == 0x00FF {
		hiAddr = ptr & 0xFF00
	} else {
		hiAddr = ptr + 1
	}
	hi := c.Bus.Read(hiAddr)
	return uint16(hi)<<8 | uint16(lo)
}

// effectiveAddress resolves every addressing mode that names a memory
// location (i.e. every mode except Implied, Accumulator, Immediate and
// Relative, which operand() handles directly), consuming the operand
// bytes from PC and reporting whether an indexed access crossed a page.
func (c *CPU) effectiveAddress(mode AddressingMode) (addr uint16, pageCrossed bool) {
	switch mode {
	case ZeroPage:
		addr = uint16(c.fetchByte())
	case ZeroPageX:
		addr = uint16(c.fetchByte() + c.X)
	case ZeroPageY:
		addr = uint16(c.fetchByte() + c.Y)
	case Absolute:
		addr = c.fetchWord()
	case AbsoluteX:
		base := c.fetchWord()
		addr = base + uint16(c.X)
		pageCrossed = !samePage(base, addr)
	case AbsoluteY:
		base := c.fetchWord()
		addr = base + uint16(c.Y)
		pageCrossed = !samePage(base, addr)
	case Indirect:
		ptr := c.fetchWord()
		addr = c.readU16Bug(ptr)
	case IndirectX:
		zp := c.fetchByte() + c.X
		addr = c.readU16ZP(zp)
	case IndirectY:
		zp := c.fetchByte()
		base := c.readU16ZP(zp)
		addr = base + uint16(c.Y)
		pageCrossed = !samePage(base, addr)
	default:
		// Implied/Accumulator/Immediate/Relative have no memory address;
		// callers never route them here.
	}
	return
}

// operand resolves mode to an operand value plus (where one exists) the
// address it came from, the shared front end for every read-class
// instruction (loads, ALU ops, compares, BIT).
func (c *CPU) operand(mode AddressingMode) (val uint8, addr uint16, pageCrossed bool) {
	switch mode {
	case Implied:
	case Accumulator:
		val = c.A
	case Immediate, Relative:
		addr = c.PC
		val = c.fetchByte()
	default:
		addr, pageCrossed = c.effectiveAddress(mode)
		val = c.Bus.Read(addr)
	}
	return
}

// execute runs the decoded instruction's semantics and returns any extra
// cycles beyond info.Cycles (a page-cross penalty on a read, or the taken/
// page-cross penalties on a branch). PC has already moved past the opcode
// byte when execute is called; operand()/effectiveAddress() advance it
// past the operand bytes as they're consumed.
func (c *CPU) execute(info opcodeInfo) int {
	mode := info.Mode
	extra := 0

	switch info.Mnemonic {
	case LDA:
		val, _, pc := c.operand(mode)
		c.A = val
		c.setZN(val)
		extra += crossPenalty(info, pc)
	case LDX:
		val, _, pc := c.operand(mode)
		c.X = val
		c.setZN(val)
		extra += crossPenalty(info, pc)
	case LDY:
		val, _, pc := c.operand(mode)
		c.Y = val
		c.setZN(val)
		extra += crossPenalty(info, pc)
	case STA:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.A)
	case STX:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.X)
	case STY:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.Y)

	case TAX:
		c.X = c.A
		c.setZN(c.X)
	case TAY:
		c.Y = c.A
		c.setZN(c.Y)
	case TXA:
		c.A = c.X
		c.setZN(c.A)
	case TYA:
		c.A = c.Y
		c.setZN(c.A)
	case TSX:
		c.X = c.SP
		c.setZN(c.X)
	case TXS:
		c.SP = c.X

	case INX:
		c.X++
		c.setZN(c.X)
	case INY:
		c.Y++
		c.setZN(c.Y)
	case DEX:
		c.X--
		c.setZN(c.X)
	case DEY:
		c.Y--
		c.setZN(c.Y)
	case INC:
		addr, _ := c.effectiveAddress(mode)
		result := c.Bus.Read(addr) + 1
		c.setZN(result)
		c.Bus.Write(addr, result)
	case DEC:
		addr, _ := c.effectiveAddress(mode)
		result := c.Bus.Read(addr) - 1
		c.setZN(result)
		c.Bus.Write(addr, result)

	case ASL:
		extra += c.shiftRotate(mode, c.asl)
	case LSR:
		extra += c.shiftRotate(mode, c.lsr)
	case ROL:
		extra += c.shiftRotate(mode, c.rol)
	case ROR:
		extra += c.shiftRotate(mode, c.ror)

	case AND:
		val, _, pc := c.operand(mode)
		c.A &= val
		c.setZN(c.A)
		extra += crossPenalty(info, pc)
	case ORA:
		val, _, pc := c.operand(mode)
		c.A |= val
		c.setZN(c.A)
		extra += crossPenalty(info, pc)
	case EOR:
		val, _, pc := c.operand(mode)
		c.A ^= val
		c.setZN(c.A)
		extra += crossPenalty(info, pc)
	case BIT:
		val, _, _ := c.operand(mode)
		c.bitOp(val)

	case ADC:
		val, _, pc := c.operand(mode)
		c.adc(val)
		extra += crossPenalty(info, pc)
	case SBC:
		val, _, pc := c.operand(mode)
		c.sbc(val)
		extra += crossPenalty(info, pc)

	case CMP:
		val, _, pc := c.operand(mode)
		c.cmp(c.A, val)
		extra += crossPenalty(info, pc)
	case CPX:
		val, _, _ := c.operand(mode)
		c.cmp(c.X, val)
	case CPY:
		val, _, _ := c.operand(mode)
		c.cmp(c.Y, val)

	case PHA:
		c.push(c.A)
	case PHP:
		c.push(c.P | uint8(FlagReserved) | uint8(FlagBreak))
	case PLA:
		c.A = c.pop()
		c.setZN(c.A)
	case PLP:
		c.P = (c.pop() &^ uint8(FlagBreak)) | uint8(FlagReserved)

	case JMP:
		addr, _ := c.effectiveAddress(mode)
		c.PC = addr
	case JSR:
		target := c.fetchWord()
		c.pushAddr(c.PC - 1)
		c.PC = target
	case RTS:
		c.PC = c.popAddr() + 1
	case BRK:
		c.PC++
		c.enterInterrupt(IRQVector, true)
	case RTI:
		c.P = (c.pop() &^ uint8(FlagBreak)) | uint8(FlagReserved)
		c.PC = c.popAddr()

	case CLC:
		c.SetFlag(FlagCarry, false)
	case CLD:
		c.SetFlag(FlagDecimal, false)
	case CLI:
		c.SetFlag(FlagIntDis, false)
	case CLV:
		c.SetFlag(FlagOverflow, false)
	case SEC:
		c.SetFlag(FlagCarry, true)
	case SED:
		c.SetFlag(FlagDecimal, true)
	case SEI:
		c.SetFlag(FlagIntDis, true)

	case NOP:
		if mode != Implied {
			_, _, pc := c.operand(mode)
			extra += crossPenalty(info, pc)
		}

	case BCC:
		extra += c.branch(!c.GetFlag(FlagCarry))
	case BCS:
		extra += c.branch(c.GetFlag(FlagCarry))
	case BEQ:
		extra += c.branch(c.GetFlag(FlagZero))
	case BNE:
		extra += c.branch(!c.GetFlag(FlagZero))
	case BMI:
		extra += c.branch(c.GetFlag(FlagNegative))
	case BPL:
		extra += c.branch(!c.GetFlag(FlagNegative))
	case BVC:
		extra += c.branch(!c.GetFlag(FlagOverflow))
	case BVS:
		extra += c.branch(c.GetFlag(FlagOverflow))

	// Illegal/combined opcodes.
	case SLO:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.slo(c.Bus.Read(addr)))
	case RLA:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.rla(c.Bus.Read(addr)))
	case SRE:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.sre(c.Bus.Read(addr)))
	case RRA:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.rra(c.Bus.Read(addr)))
	case DCP:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.dcp(c.Bus.Read(addr)))
	case ISC:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.isc(c.Bus.Read(addr)))
	case LAX:
		val, _, pc := c.operand(mode)
		c.lax(val)
		extra += crossPenalty(info, pc)
	case SAX:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, c.sax())
	case ANC:
		val, _, _ := c.operand(mode)
		c.anc(val)
	case ASR:
		val, _, _ := c.operand(mode)
		c.asr(val)
	case ARR:
		val, _, _ := c.operand(mode)
		c.arr(val)
	case SBX:
		val, _, _ := c.operand(mode)
		c.sbx(val)
	case LAS:
		val, _, pc := c.operand(mode)
		c.las(val)
		extra += crossPenalty(info, pc)
	case ANE:
		val, _, _ := c.operand(mode)
		c.ane(val)
	case LXA:
		val, _, _ := c.operand(mode)
		c.lxa(val)
	case SHA:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, unstableStoreByte(c.A&c.X, uint8(addr>>8)))
	case SHX:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, unstableStoreByte(c.X, uint8(addr>>8)))
	case SHY:
		addr, _ := c.effectiveAddress(mode)
		c.Bus.Write(addr, unstableStoreByte(c.Y, uint8(addr>>8)))
	case TAS:
		addr, _ := c.effectiveAddress(mode)
		c.SP = c.A & c.X
		c.Bus.Write(addr, unstableStoreByte(c.SP, uint8(addr>>8)))

	default:
		c.halt(c.curOp)
	}

	return extra
}

// shiftRotate runs op against either the accumulator (Accumulator mode) or
// a memory operand, writing the result back to whichever it came from.
func (c *CPU) shiftRotate(mode AddressingMode, op func(uint8) uint8) int {
	if mode == Accumulator {
		c.A = op(c.A)
		return 0
	}
	addr, _ := c.effectiveAddress(mode)
	c.Bus.Write(addr, op(c.Bus.Read(addr)))
	return 0
}

// branch consumes the relative offset, and if taken, moves PC to the
// target and reports the 1-cycle taken penalty plus a further 1-cycle
// penalty if the target is on a different page than the instruction
// following the branch.
func (c *CPU) branch(taken bool) int {
	offset := c.fetchByte()
	if !taken {
		return 0
	}
	target := relativeTarget(c.PC, offset)
	extra := 1
	if !samePage(c.PC, target) {
		extra++
	}
	c.PC = target
	return extra
}

// crossPenalty reports the 1-cycle page-cross penalty for modes the table
// marks PageCross-sensitive.
func crossPenalty(info opcodeInfo, crossed bool) int {
	if info.PageCross && crossed {
		return 1
	}
	return 0
}
