package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleWritesLowByte(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Write32(0, 0x41)
	c.Write32(0, 0x42)
	assert.Equal(t, "AB", buf.String())
}

func TestConsoleReadIsZero(t *testing.T) {
	c := NewConsole(nil)
	assert.Equal(t, uint32(0), c.Read32(0))
}

func TestCounterAdvancesOnRead(t *testing.T) {
	c := NewCounter()
	assert.Equal(t, uint32(0), c.Read32(0))
	assert.Equal(t, uint32(1), c.Read32(0))
	assert.Equal(t, uint32(2), c.Read32(0))
}

func TestCounterWriteReloads(t *testing.T) {
	c := NewCounter()
	c.Read32(0)
	c.Write32(0, 100)
	assert.Equal(t, uint32(100), c.Read32(0))
}
