// Package device implements the memory-mapped peripherals the config
// package's MMIO windows can name: a one-byte-wide console output port and
// a free-running counter. Both satisfy bus.Device. Neither needs an
// interrupt or status-register handshake: reads and writes take effect
// immediately, with no polling protocol required of the caller.
package device

import "io"

// Console writes the low byte of every Write32 to an output stream — the
// simplest possible MMIO peripheral. Read32 always returns 0: this device
// has no input side.
type Console struct {
	Out io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{Out: w}
}

func (c *Console) Read32(addr uint32) uint32 { return 0 }

func (c *Console) Write32(addr uint32, val uint32) {
	if c.Out != nil {
		c.Out.Write([]byte{byte(val)})
	}
}

// Counter is a free-running register: every Read32 returns the current
// count and then advances it by one; Write32 reloads the count to an
// arbitrary value. Useful as a cycle-independent tick source for programs
// under test, and as the simplest possible device to exercise the MMIO
// window/overlap logic in bus.
type Counter struct {
	n uint32
}

// NewCounter returns a Counter starting at 0.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Read32(addr uint32) uint32 {
	v := c.n
	c.n++
	return v
}

func (c *Counter) Write32(addr uint32, val uint32) {
	c.n = val
}
