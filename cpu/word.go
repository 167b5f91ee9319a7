package cpu

// packedOpcodes mirrors opcodeTable but flattened into one uint16 per entry:
// bits 0-6 mnemonic, bits 7-10 addressing mode, bits 11-14 base cycle count,
// bit 15 the page-cross-sensitive flag. Per the design note in SPEC_FULL.md
// this is purely a cache-friendly restatement of opcodeTable for the
// decode step of both engines — it is data, not control flow, and opcodeTable
// remains the single authoritative source it's derived from.
var packedOpcodes [256]uint16

func init() {
	for i, e := range opcodeTable {
		packedOpcodes[i] = packOpcode(e)
	}
}

func packOpcode(e opcodeInfo) uint16 {
	w := uint16(e.Mnemonic) & 0x7F
	w |= (uint16(e.Mode) & 0x0F) << 7
	w |= (uint16(e.Cycles) & 0x0F) << 11
	if e.PageCross {
		w |= 1 << 15
	}
	return w
}

func unpackOpcode(w uint16) opcodeInfo {
	return opcodeInfo{
		Mnemonic:  Mnemonic(w & 0x7F),
		Mode:      AddressingMode((w >> 7) & 0x0F),
		Cycles:    uint8((w >> 11) & 0x0F),
		PageCross: w&(1<<15) != 0,
	}
}

// decode returns the opcodeInfo for raw opcode byte op via the packed table.
func decode(op uint8) opcodeInfo {
	return unpackOpcode(packedOpcodes[op])
}

// Decode exposes the opcode table to other packages (disassemble, and any
// external tooling built on this module) without exporting opcodeInfo
// itself: callers outside cpu only ever need the mnemonic and addressing
// mode, never the raw cycle-count/page-cross bits that word.go and
// cycle.go already consume internally.
func Decode(op uint8) (Mnemonic, AddressingMode) {
	e := decode(op)
	return e.Mnemonic, e.Mode
}
