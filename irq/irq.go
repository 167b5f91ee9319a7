// Package irq defines the basic interfaces for working with a 6502 family
// interrupt. A receiver of interrupts (IRQ/NMI) implements Sender so other
// components can raise state without cross-coupling component logic.
// NOTE: even though real chips distinguish level and edge triggered lines,
// the Sender interface itself doesn't care; Line and Edge below account for
// that distinction in how they answer Raised().
package irq

// Sender defines the interface for an IRQ source. The CPU core polls this
// once per instruction boundary (fast path) or per Fetch state (cycle
// accurate); it never blocks waiting on one.
type Sender interface {
	// Raised indicates whether the interrupt is currently held high.
	Raised() bool
}

// Line is a level-triggered Sender suitable for IRQ: a device asserts it
// with Set(true) and keeps it asserted until the condition causing the
// interrupt is serviced, then calls Set(false). Matches real IRQ wiring,
// where multiple devices can share one line and the CPU re-services it on
// every instruction boundary for as long as it stays high.
type Line struct {
	held bool
}

// Set raises or lowers the line.
func (l *Line) Set(held bool) {
	l.held = held
}

// Raised implements Sender.
func (l *Line) Raised() bool {
	return l.held
}

// Edge is an edge-triggered Sender suitable for NMI: Request latches a
// pending interrupt, and the first Raised() call after that consumes it.
// This matches how the spec treats NMI (a request method acknowledged once,
// not a held line) while still satisfying the polled Sender contract the
// cycle-accurate and fast-path engines both use.
type Edge struct {
	pending bool
}

// Request latches a pending edge.
func (e *Edge) Request() {
	e.pending = true
}

// Raised implements Sender, consuming the latched edge if set.
func (e *Edge) Raised() bool {
	if !e.pending {
		return false
	}
	e.pending = false
	return true
}
