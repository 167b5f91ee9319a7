package disassemble

import (
	"strings"
	"testing"

	"github.com/pkieltyka/go6502/bus"
)

func TestStepFormatsEveryAddressingMode(t *testing.T) {
	tests := []struct {
		name    string
		prog    []uint8
		want    string
		wantLen int
	}{
		{"Implied", []uint8{0xEA}, "NOP", 1},
		{"Accumulator", []uint8{0x0A}, "ASL A", 1},
		{"Immediate", []uint8{0xA9, 0x10}, "LDA #$10", 2},
		{"ZeroPage", []uint8{0xA5, 0x20}, "LDA $20", 2},
		{"ZeroPageX", []uint8{0xB5, 0x20}, "LDA $20,X", 2},
		{"ZeroPageY", []uint8{0xB6, 0x20}, "LDX $20,Y", 2},
		{"Absolute", []uint8{0xAD, 0x34, 0x12}, "LDA $1234", 3},
		{"AbsoluteX", []uint8{0xBD, 0x34, 0x12}, "LDA $1234,X", 3},
		{"AbsoluteY", []uint8{0xB9, 0x34, 0x12}, "LDA $1234,Y", 3},
		{"Indirect", []uint8{0x6C, 0x34, 0x12}, "JMP ($1234)", 3},
		{"IndirectX", []uint8{0xA1, 0x20}, "LDA ($20,X)", 2},
		{"IndirectY", []uint8{0xB1, 0x20}, "LDA ($20),Y", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bus.NewRAM(0)
			r.LoadAt(0x0200, tt.prog)
			out, n := Step(0x0200, r)
			if n != tt.wantLen {
				t.Fatalf("byte count = %d, want %d", n, tt.wantLen)
			}
			trimmed := strings.Join(strings.Fields(out), " ")
			wantFields := strings.Join(strings.Fields(tt.want), " ")
			if !strings.Contains(trimmed, wantFields) {
				t.Fatalf("disassembly = %q, want it to contain %q", trimmed, wantFields)
			}
		})
	}
}

func TestStepRelativeShowsTargetNotOffset(t *testing.T) {
	r := bus.NewRAM(0)
	r.LoadAt(0x0200, []uint8{0xF0, 0xFE}) // BEQ $0200 (branch to self)
	out, n := Step(0x0200, r)
	if n != 2 {
		t.Fatalf("byte count = %d, want 2", n)
	}
	if !strings.Contains(out, "$0200") {
		t.Fatalf("disassembly = %q, want it to show the resolved target 0x0200, not the raw offset", out)
	}
}

func TestStepNeverUsesReadSideEffects(t *testing.T) {
	r := &countingPeekBus{RAM: bus.NewRAM(0)}
	r.LoadAt(0x0200, []uint8{0xA9, 0x10})
	Step(0x0200, r)
	if r.reads != 0 {
		t.Fatalf("Step performed %d Read calls, want 0 (disassembly must only Peek)", r.reads)
	}
}

type countingPeekBus struct {
	*bus.RAM
	reads int
}

func (c *countingPeekBus) Read(addr uint16) uint8 {
	c.reads++
	return c.RAM.Read(addr)
}
