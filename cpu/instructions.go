package cpu

// This file holds the mnemonic semantics shared verbatim by both execution
// engines: the ALU and flag-setting logic for every official and illegal
// instruction. Each engine differs only in how it gets an operand byte in
// front of these functions and how it writes any result back — the
// arithmetic and flag rules themselves live here exactly once.

// adc implements ADC: sum = a + operand + C; C = sum > 0xFF;
// V = (~(a ^ operand) & (a ^ sum)) & 0x80 != 0; a = sum & 0xFF; N,Z from a.
// SBC is ADC with the operand bitwise-negated (one's complement), since
// subtraction is addition of the one's complement plus carry.
func (c *CPU) adc(operand uint8) {
	carry := uint16(0)
	if c.GetFlag(FlagCarry) {
		carry = 1
	}
	a := c.A
	sum := uint16(a) + uint16(operand) + carry
	result := uint8(sum)
	c.SetFlag(FlagCarry, sum > 0xFF)
	c.SetFlag(FlagOverflow, (^(a^operand))&(a^result)&0x80 != 0)
	c.A = result
	c.setZN(c.A)
}

// sbc implements SBC as ADC of the one's complement of operand.
func (c *CPU) sbc(operand uint8) {
	c.adc(^operand)
}

// cmp implements CMP/CPX/CPY: C = reg >= operand; N,Z from (reg-operand)
// mod 0x100. The register itself is never modified.
func (c *CPU) cmp(reg, operand uint8) {
	c.SetFlag(FlagCarry, reg >= operand)
	c.setZN(reg - operand)
}

// asl implements ASL's shift and flag rule, returning the shifted value.
func (c *CPU) asl(val uint8) uint8 {
	c.SetFlag(FlagCarry, val&0x80 != 0)
	result := val << 1
	c.setZN(result)
	return result
}

// lsr implements LSR's shift and flag rule, returning the shifted value.
func (c *CPU) lsr(val uint8) uint8 {
	c.SetFlag(FlagCarry, val&0x01 != 0)
	result := val >> 1
	c.setZN(result)
	return result
}

// rol implements ROL: carry rotates in at bit 0, old bit 7 becomes the new
// carry.
func (c *CPU) rol(val uint8) uint8 {
	oldCarry := uint8(0)
	if c.GetFlag(FlagCarry) {
		oldCarry = 1
	}
	c.SetFlag(FlagCarry, val&0x80 != 0)
	result := (val << 1) | oldCarry
	c.setZN(result)
	return result
}

// ror implements ROR: carry rotates in at bit 7, old bit 0 becomes the new
// carry.
func (c *CPU) ror(val uint8) uint8 {
	oldCarry := uint8(0)
	if c.GetFlag(FlagCarry) {
		oldCarry = 0x80
	}
	c.SetFlag(FlagCarry, val&0x01 != 0)
	result := (val >> 1) | oldCarry
	c.setZN(result)
	return result
}

// bitOp implements BIT: N <- bit 7 of operand, V <- bit 6 of operand,
// Z <- (a AND operand) == 0. A itself never changes.
func (c *CPU) bitOp(operand uint8) {
	c.SetFlag(FlagNegative, operand&0x80 != 0)
	c.SetFlag(FlagOverflow, operand&0x40 != 0)
	c.SetFlag(FlagZero, c.A&operand == 0)
}

// relativeTarget computes a branch's destination: pc (already advanced past
// the two-byte branch instruction) plus the signed 8-bit offset, wrapping
// within the 16-bit address space.
func relativeTarget(pc uint16, offset uint8) uint16 {
	return uint16(int32(pc) + int32(int8(offset)))
}

// samePage reports whether a and b share the same 256-byte page, the test
// behind every page-cross cycle penalty.
func samePage(a, b uint16) bool {
	return a&0xFF00 == b&0xFF00
}

// --- illegal/combined opcode helpers shared by both engines ---
//
// These compose two official operations on the same memory value (DCP =
// DEC+CMP, ISC = INC+SBC, RLA = ROL+AND, RRA = ROR+ADC, SLO = ASL+ORA,
// SRE = LSR+EOR) or fuse two registers (LAX = LDA+LDX, SAX = A AND X).

func (c *CPU) slo(val uint8) uint8 {
	result := c.asl(val)
	c.A |= result
	c.setZN(c.A)
	return result
}

func (c *CPU) rla(val uint8) uint8 {
	result := c.rol(val)
	c.A &= result
	c.setZN(c.A)
	return result
}

func (c *CPU) sre(val uint8) uint8 {
	result := c.lsr(val)
	c.A ^= result
	c.setZN(c.A)
	return result
}

func (c *CPU) rra(val uint8) uint8 {
	result := c.ror(val)
	c.adc(result)
	return result
}

func (c *CPU) dcp(val uint8) uint8 {
	result := val - 1
	c.cmp(c.A, result)
	return result
}

func (c *CPU) isc(val uint8) uint8 {
	result := val + 1
	c.sbc(result)
	return result
}

// lax loads both A and X with the same value, per the fused LDA+LDX
// behavior of the LAX family.
func (c *CPU) lax(val uint8) {
	c.A = val
	c.X = val
	c.setZN(val)
}

// sax computes the store value for SAX: A AND X, untouched by flags.
func (c *CPU) sax() uint8 {
	return c.A & c.X
}

// anc implements ANC: AND #i then carry <- bit 7 of the result (as if the
// result had been shifted left into carry).
func (c *CPU) anc(operand uint8) {
	c.A &= operand
	c.setZN(c.A)
	c.SetFlag(FlagCarry, c.A&0x80 != 0)
}

// asr (also known as ALR) implements AND #i followed by LSR on the
// accumulator.
func (c *CPU) asr(operand uint8) {
	c.A &= operand
	c.A = c.lsr(c.A)
}

// arr implements AND #i followed by ROR on the accumulator, with carry and
// overflow then recomputed from the rotated result's bit pattern (carry from
// bit 6, overflow from bit 6 XOR bit 5) rather than the ordinary ROR rule —
// the documented NMOS quirk.
func (c *CPU) arr(operand uint8) {
	c.A &= operand
	t := c.A
	c.A = (c.A >> 1) | (boolToU8(c.GetFlag(FlagCarry)) << 7)
	c.setZN(c.A)
	c.SetFlag(FlagCarry, c.A&0x40 != 0)
	c.SetFlag(FlagOverflow, ((c.A>>6)^(c.A>>5))&0x01 != 0)
	_ = t
}

// sbx implements SBX: x = (a AND x) - operand, with carry set exactly when
// no unsigned borrow occurred (i.e. a&x >= operand), independent of the
// incoming carry flag.
func (c *CPU) sbx(operand uint8) {
	t := c.A & c.X
	c.SetFlag(FlagCarry, t >= operand)
	c.X = t - operand
	c.setZN(c.X)
}

// las computes sp AND operand, mirroring the result into a, x, and sp.
func (c *CPU) las(operand uint8) {
	c.SP &= operand
	c.A = c.SP
	c.X = c.SP
	c.setZN(c.SP)
}

// unstableStoreByte computes the documented approximation used by the SHA/SHX/
// SHY/TAS "unstable" family: the stored byte is the relevant register(s)
// ANDed with (high byte of the effective address + 1). This follows the
// teacher's approximation rather than UnstableMagic, since it is grounded
// directly on the addressing context (not a chip-dependent constant); see
// DESIGN.md for the open-question resolution.
func unstableStoreByte(reg uint8, addrHi uint8) uint8 {
	return reg & (addrHi + 1)
}

// ane implements ANE (also known as XAA): a = (a OR magic) AND x AND
// operand. Highly unstable on real silicon; magic is CPU.UnstableMagic.
func (c *CPU) ane(operand uint8) {
	c.A = (c.A | c.UnstableMagic) & c.X & operand
	c.setZN(c.A)
}

// lxa implements LXA (also known as LAX #i/OAL): a = x = (a OR magic) AND
// operand. Highly unstable; magic is CPU.UnstableMagic.
func (c *CPU) lxa(operand uint8) {
	val := (c.A | c.UnstableMagic) & operand
	c.A = val
	c.X = val
	c.setZN(val)
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
