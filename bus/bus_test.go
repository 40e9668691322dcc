package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWrite32RoundTrip(t *testing.T) {
	b := New(1024)
	assert.NoError(t, b.Write32(0x10, 0xDEADBEEF))
	v, err := b.Read32(0x10)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)
}

func TestFetchFaultOutOfRange(t *testing.T) {
	b := New(16)
	_, err := b.Read32(100)
	assert.ErrorIs(t, err, ErrFetchFault)
}

type counterDevice struct {
	reads, writes int
	last          uint32
}

func (c *counterDevice) Read32(addr uint32) uint32 {
	c.reads++
	return 0x42
}

func (c *counterDevice) Write32(addr uint32, val uint32) {
	c.writes++
	c.last = val
}

func TestMMIODelegation(t *testing.T) {
	b := New(1024)
	dev := &counterDevice{}
	assert.NoError(t, b.MapMMIO(0x100, 16, dev))

	v, err := b.Read32(0x104)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x42), v)
	assert.Equal(t, 1, dev.reads)

	assert.NoError(t, b.Write32(0x108, 7))
	assert.Equal(t, uint32(7), dev.last)
}

func TestOverlappingWindowRejected(t *testing.T) {
	b := New(1024)
	dev := &counterDevice{}
	assert.NoError(t, b.MapMMIO(0x100, 16, dev))
	err := b.MapMMIO(0x108, 16, dev)
	assert.ErrorIs(t, err, ErrOverlappingWindow)
}

func TestLoadWordsLittleEndian(t *testing.T) {
	b := New(1024)
	assert.NoError(t, b.LoadWords(0x2000, []uint32{0xDEADBEEF, 0x12345678}))
	v, _ := b.Read32(0x2000)
	assert.Equal(t, uint32(0xDEADBEEF), v)
	v, _ = b.Read32(0x2004)
	assert.Equal(t, uint32(0x12345678), v)
}
