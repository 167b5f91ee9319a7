package cpu

// cycle.go implements the cycle-accurate engine: StepCycle advances the CPU
// by exactly one bus cycle per call. An instruction boundary builds a plan
// — one microOp per remaining cycle, including the documented dummy reads
// ahead of a read-modify-write's final write and the extra read a page-
// crossing indexed access performs whether or not the processor ends up
// using the byte it fetched — and each later call simply runs the next
// entry. Operand addresses and values are resolved once, at plan-build
// time (sharing effectiveAddress/operand with the fast path in fast.go),
// rather than split byte-by-byte across ticks; what StepCycle reproduces
// hardware-exactly is the cycle COUNT and the dummy-access PATTERN per
// instruction class, not the address-resolution order within a multi-byte
// operand fetch. See DESIGN.md.
type microOp func(*CPU)

// StepCycle advances exactly one bus cycle: either starting a new
// instruction (servicing a pending interrupt first if one is outstanding)
// or running the next queued microOp of the instruction already in
// progress. Halted is sticky, same as StepInstruction.
func (c *CPU) StepCycle() error {
	c.engine = EngineCycleAccurate

	if c.Halted {
		return HaltFault{Opcode: c.haltOpcode}
	}

	if c.planIdx >= len(c.plan) {
		c.plan = nil
		c.planIdx = 0
		c.Cycles++
		c.beginInstruction()
	} else {
		step := c.plan[c.planIdx]
		c.planIdx++
		c.Cycles++
		step(c)
	}

	if c.Halted {
		return HaltFault{Opcode: c.haltOpcode}
	}
	return nil
}

// beginInstruction consumes the cycle already charged by StepCycle: either
// the first of an interrupt sequence's two dummy reads, or the opcode
// fetch, after which it queues the plan for every remaining cycle.
func (c *CPU) beginInstruction() {
	if c.NMIEdge.Raised() {
		c.beginInterrupt(NMIVector, false)
		return
	}
	if c.IRQLine.Raised() && !c.GetFlag(FlagIntDis) {
		c.beginInterrupt(IRQVector, false)
		return
	}

	op := c.fetchByte()
	c.curOp = op
	info := decode(op)
	c.curMode = info.Mode

	if info.Mnemonic == JAM {
		c.plan = []microOp{func(cc *CPU) {
			cc.Bus.Read(cc.PC)
			cc.halt(op)
		}}
		return
	}

	c.plan = c.buildPlan(info)
}

// beginInterrupt queues the 7-cycle NMI/IRQ entry sequence; this call's
// own cycle is the first of the two throwaway reads hardware performs
// while it still thinks it might be fetching an opcode.
func (c *CPU) beginInterrupt(vector uint16, brk bool) {
	c.runningInterrupt = true
	c.Bus.Read(c.PC)
	c.plan = []microOp{
		func(cc *CPU) { cc.Bus.Read(cc.PC) },
		func(cc *CPU) { cc.push(uint8(cc.PC >> 8)) },
		func(cc *CPU) { cc.push(uint8(cc.PC)) },
		func(cc *CPU) {
			flags := cc.P | uint8(FlagReserved)
			if brk {
				flags |= uint8(FlagBreak)
			} else {
				flags &^= uint8(FlagBreak)
			}
			cc.push(flags)
			cc.SetFlag(FlagIntDis, true)
		},
		func(cc *CPU) { cc.opVal = cc.Bus.Read(vector) },
		func(cc *CPU) {
			hi := cc.Bus.Read(vector + 1)
			cc.PC = uint16(hi)<<8 | uint16(cc.opVal)
			cc.runningInterrupt = false
		},
	}
}

// buildPlan resolves the instruction's operand (address, value, and
// whether an indexed access crossed a page) immediately, then returns the
// microOp sequence for every cycle after the opcode fetch: dummy reads
// matching the documented count for the addressing mode/instruction
// class, followed by the tick that actually mutates registers or memory.
func (c *CPU) buildPlan(info opcodeInfo) []microOp {
	switch info.Mnemonic {
	case JSR:
		return c.planJSR()
	case RTS:
		return c.planRTS()
	case RTI:
		return c.planRTI()
	case BRK:
		return c.planBRK()
	case JMP:
		return c.planJMP(info)
	case PHA:
		return []microOp{
			func(cc *CPU) { cc.Bus.Read(cc.PC) },
			func(cc *CPU) { cc.push(cc.A) },
		}
	case PHP:
		return []microOp{
			func(cc *CPU) { cc.Bus.Read(cc.PC) },
			func(cc *CPU) { cc.push(cc.P | uint8(FlagReserved) | uint8(FlagBreak)) },
		}
	case PLA:
		return []microOp{
			func(cc *CPU) { cc.Bus.Read(cc.PC) },
			dummyStackPeek,
			func(cc *CPU) { cc.A = cc.pop(); cc.setZN(cc.A) },
		}
	case PLP:
		return []microOp{
			func(cc *CPU) { cc.Bus.Read(cc.PC) },
			dummyStackPeek,
			func(cc *CPU) { cc.P = (cc.pop() &^ uint8(FlagBreak)) | uint8(FlagReserved) },
		}
	}

	if isBranch(info.Mnemonic) {
		return c.planBranch(info.Mnemonic)
	}

	mode := info.Mode

	if mode == Implied || mode == Accumulator {
		return c.planImplicit(info)
	}

	if isStore(info.Mnemonic) {
		return c.planStore(info)
	}

	if isRMW(info.Mnemonic) {
		return c.planRMW(info)
	}

	return c.planRead(info)
}

func dummyStackPeek(c *CPU) {
	c.Bus.Read(stackBase + uint16(c.SP))
}

// padDummy returns n reads of PC (the next-instruction byte, not yet
// consumed) — the generic filler for instruction classes whose remaining
// cycles are internal/idle rather than addressed at the operand.
func padDummy(n int) []microOp {
	ops := make([]microOp, n)
	for i := range ops {
		ops[i] = func(cc *CPU) { cc.Bus.Read(cc.PC) }
	}
	return ops
}

// planImplicit handles every Implied/Accumulator opcode: register-only
// mutations (flag sets, transfers, INX/DEX/..., ASL A/LSR A/ROL A/ROR A)
// padded with the documented idle cycles.
func (c *CPU) planImplicit(info opcodeInfo) []microOp {
	idle := int(info.Cycles) - 2
	ops := padDummy(maxInt(idle, 0))
	return append(ops, func(cc *CPU) { cc.execute(info) })
}

// planRead handles every read-class instruction (loads, ALU, compares,
// BIT, NOP-with-operand, and the LAX/LAS/ANC/ASR/ARR/SBX/ANE/LXA illegal
// reads): resolve the operand immediately, add the page-cross read if the
// table marks this mode sensitive and the access actually crossed, and
// apply the mutation on the final tick.
func (c *CPU) planRead(info opcodeInfo) []microOp {
	crossed := false
	switch info.Mode {
	case Immediate, Relative:
		// Never page-cross sensitive; the value itself is read once, on
		// the final tick, by execute.
	default:
		_, crossed = c.effectiveAddress(info.Mode)
		c.PC -= operandConsumed(info.Mode) // undo: re-resolved on the final tick below
	}
	idle := int(info.Cycles) - 2
	if info.PageCross && crossed {
		idle++
	}
	ops := padDummy(maxInt(idle, 0))
	return append(ops, func(cc *CPU) { cc.execute(info) })
}

// planStore handles STA/STX/STY/SAX/SHA/SHX/SHY/TAS: the address is fixed
// by the mode with no page-cross penalty (stores always pay the
// non-crossed cycle count), and the write itself happens on the final
// tick.
func (c *CPU) planStore(info opcodeInfo) []microOp {
	idle := int(info.Cycles) - 2
	ops := padDummy(maxInt(idle, 0))
	return append(ops, func(cc *CPU) { cc.execute(info) })
}

// planRMW handles ASL/LSR/ROL/ROR/INC/DEC and the SLO/RLA/SRE/RRA/DCP/ISC
// family on a memory operand: a dummy read of the unmodified value, a
// dummy write of that same unmodified value back (the documented RMW
// quirk), then the real write of the transformed value.
func (c *CPU) planRMW(info opcodeInfo) []microOp {
	idle := int(info.Cycles) - 4
	ops := padDummy(maxInt(idle, 0))
	ops = append(ops,
		func(cc *CPU) {
			addr, _ := cc.effectiveAddress(info.Mode)
			cc.opAddr = addr
			cc.opVal = cc.Bus.Read(addr)
			cc.PC -= operandConsumed(info.Mode)
		},
		func(cc *CPU) {
			cc.Bus.Write(cc.opAddr, cc.opVal)
			cc.writeDummyPending = true
		},
		func(cc *CPU) {
			cc.execute(info)
			cc.writeDummyPending = false
		},
	)
	return ops
}

// planBranch handles the eight conditional branches: the offset byte is
// always fetched (cycle 2); a taken branch spends a third cycle updating
// PC, and a fourth if the target lands on a different page than the
// instruction following the branch.
func (c *CPU) planBranch(m Mnemonic) []microOp {
	return []microOp{func(cc *CPU) {
		taken := branchTaken(cc, m)
		offset := cc.fetchByte()
		if !taken {
			return
		}
		target := relativeTarget(cc.PC, offset)
		crossed := !samePage(cc.PC, target)
		cc.opAddr = target
		cc.plan = append(cc.plan, func(cc2 *CPU) {
			cc2.PC = cc2.opAddr
			if crossed {
				cc2.plan = append(cc2.plan, func(cc3 *CPU) { cc3.Bus.Read(cc3.PC) })
			}
		})
	}}
}

func branchTaken(c *CPU, m Mnemonic) bool {
	switch m {
	case BCC:
		return !c.GetFlag(FlagCarry)
	case BCS:
		return c.GetFlag(FlagCarry)
	case BEQ:
		return c.GetFlag(FlagZero)
	case BNE:
		return !c.GetFlag(FlagZero)
	case BMI:
		return c.GetFlag(FlagNegative)
	case BPL:
		return !c.GetFlag(FlagNegative)
	case BVC:
		return !c.GetFlag(FlagOverflow)
	case BVS:
		return c.GetFlag(FlagOverflow)
	default:
		return false
	}
}

// planJMP handles both Absolute (3 cycles) and Indirect (5 cycles) JMP;
// Indirect reproduces the page-wrap pointer bug via readU16Bug (fast.go).
// The two modes' differing operand-fetch cost comes from info.Cycles, so
// the idle padding differs per mode.
func (c *CPU) planJMP(info opcodeInfo) []microOp {
	idle := int(info.Cycles) - 2
	ops := padDummy(maxInt(idle, 0))
	return append(ops, func(cc *CPU) {
		addr, _ := cc.effectiveAddress(info.Mode)
		cc.PC = addr
	})
}

// planJSR reproduces JSR's documented cycle shape: fetch low byte, an
// internal cycle (classically a stack peek), push PCH, push PCL, fetch
// high byte and jump — six cycles total including the opcode fetch.
func (c *CPU) planJSR() []microOp {
	return []microOp{
		func(cc *CPU) { cc.opVal = cc.Bus.Read(cc.PC) },
		dummyStackPeek,
		func(cc *CPU) { cc.push(uint8((cc.PC + 1) >> 8)) },
		func(cc *CPU) { cc.push(uint8(cc.PC + 1)) },
		func(cc *CPU) {
			hi := cc.Bus.Read(cc.PC + 1)
			cc.PC = uint16(hi)<<8 | uint16(cc.opVal)
		},
	}
}

// planRTS: dummy read, dummy stack peek, pop PCL, pop PCH, then an
// internal increment cycle before execution resumes at the byte after
// the JSR.
func (c *CPU) planRTS() []microOp {
	return []microOp{
		func(cc *CPU) { cc.Bus.Read(cc.PC) },
		dummyStackPeek,
		func(cc *CPU) { cc.opVal = cc.pop() },
		func(cc *CPU) { cc.PC = uint16(cc.pop())<<8 | uint16(cc.opVal) },
		func(cc *CPU) { cc.PC++ },
	}
}

// planRTI: dummy read, dummy stack peek, pop P, pop PCL, pop PCH.
func (c *CPU) planRTI() []microOp {
	return []microOp{
		func(cc *CPU) { cc.Bus.Read(cc.PC) },
		dummyStackPeek,
		func(cc *CPU) { cc.P = (cc.pop() &^ uint8(FlagBreak)) | uint8(FlagReserved) },
		func(cc *CPU) { cc.opVal = cc.pop() },
		func(cc *CPU) { cc.PC = uint16(cc.pop())<<8 | uint16(cc.opVal) },
	}
}

// planBRK: a throwaway padding-byte fetch, then the same push/push/push/
// fetch-vector sequence as a hardware interrupt, with Break set in the
// pushed status.
func (c *CPU) planBRK() []microOp {
	return []microOp{
		func(cc *CPU) { cc.Bus.Read(cc.PC); cc.PC++ },
		func(cc *CPU) { cc.push(uint8(cc.PC >> 8)) },
		func(cc *CPU) { cc.push(uint8(cc.PC)) },
		func(cc *CPU) {
			cc.push(cc.P | uint8(FlagReserved) | uint8(FlagBreak))
			cc.SetFlag(FlagIntDis, true)
		},
		func(cc *CPU) { cc.opVal = cc.Bus.Read(IRQVector) },
		func(cc *CPU) {
			hi := cc.Bus.Read(IRQVector + 1)
			cc.PC = uint16(hi)<<8 | uint16(cc.opVal)
		},
	}
}

// operandConsumed returns AddressingMode.operandBytes, the number of
// operand bytes to rewind PC by after a plan-build-time resolution.
func operandConsumed(mode AddressingMode) uint16 {
	return mode.operandBytes()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
