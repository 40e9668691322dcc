// Package bus implements the flat byte-addressable memory and the
// memory-mapped I/O window list that both execution engines fetch from and
// execute LD/ST against.
package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultSize is the default backing memory size (16 MiB).
const DefaultSize = 16 * 1024 * 1024

// ErrFetchFault indicates an access (read or write) outside backing memory
// and outside any mapped MMIO window.
var ErrFetchFault = errors.New("bus: address out of range")

// ErrOverlappingWindow is a configuration error raised when a newly
// registered MMIO window overlaps an existing one.
var ErrOverlappingWindow = errors.New("bus: overlapping mmio window")

// Device is the memory-mapped I/O capability a peripheral implements. The
// bus delegates read32/write32 to the first window containing the address;
// devices may have arbitrary side effects and the bus does not assume
// idempotence.
type Device interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, val uint32)
}

type window struct {
	start, end uint32 // inclusive
	dev        Device
}

// Bus owns the backing memory array and an ordered list of MMIO windows.
type Bus struct {
	mem     []byte
	windows []window
}

// New constructs a Bus with the given backing memory size in bytes.
func New(size int) *Bus {
	if size <= 0 {
		size = DefaultSize
	}
	return &Bus{mem: make([]byte, size)}
}

// Size returns the size of the backing memory in bytes.
func (b *Bus) Size() int {
	return len(b.mem)
}

// MapMMIO registers dev to handle addresses in [start, start+size-1].
// Overlapping a previously registered window is a configuration error.
func (b *Bus) MapMMIO(start, size uint32, dev Device) error {
	end := start + size - 1
	for _, w := range b.windows {
		if start <= w.end && w.start <= end {
			return fmt.Errorf("%w: [0x%X,0x%X] overlaps [0x%X,0x%X]", ErrOverlappingWindow, start, end, w.start, w.end)
		}
	}
	b.windows = append(b.windows, window{start, end, dev})
	return nil
}

func (b *Bus) findDevice(addr uint32) Device {
	for _, w := range b.windows {
		if addr >= w.start && addr <= w.end {
			return w.dev
		}
	}
	return nil
}

// LoadBlob copies data into backing memory at addr, bypassing MMIO.
func (b *Bus) LoadBlob(addr uint32, data []byte) error {
	if int(addr)+len(data) > len(b.mem) {
		return fmt.Errorf("%w: load at 0x%X, %d bytes", ErrFetchFault, addr, len(data))
	}
	copy(b.mem[addr:], data)
	return nil
}

// LoadWords writes words as little-endian 32-bit values starting at addr.
func (b *Bus) LoadWords(addr uint32, words []uint32) error {
	for i, w := range words {
		if err := b.Write32(addr+uint32(4*i), w); err != nil {
			return err
		}
	}
	return nil
}

// Read32 reads a little-endian 32-bit value, delegating to an MMIO device
// when addr falls inside a mapped window.
func (b *Bus) Read32(addr uint32) (uint32, error) {
	if dev := b.findDevice(addr); dev != nil {
		return dev.Read32(addr), nil
	}
	if int(addr)+4 > len(b.mem) {
		return 0, fmt.Errorf("%w: read32 at 0x%X", ErrFetchFault, addr)
	}
	return binary.LittleEndian.Uint32(b.mem[addr:]), nil
}

// Write32 writes a little-endian 32-bit value, delegating to an MMIO
// device when addr falls inside a mapped window.
func (b *Bus) Write32(addr uint32, val uint32) error {
	if dev := b.findDevice(addr); dev != nil {
		dev.Write32(addr, val)
		return nil
	}
	if int(addr)+4 > len(b.mem) {
		return fmt.Errorf("%w: write32 at 0x%X", ErrFetchFault, addr)
	}
	binary.LittleEndian.PutUint32(b.mem[addr:], val)
	return nil
}

// Bytes returns a copy of the raw backing memory, for tests and for CLI
// dumps. MMIO windows are not reflected.
func (b *Bus) Bytes() []byte {
	out := make([]byte, len(b.mem))
	copy(out, b.mem)
	return out
}
