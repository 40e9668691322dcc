package cyclecore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dspsim/fastcore"
	"dspsim/word"
)

const cyclecoreTestMemSize = 1 << 20

func run(t *testing.T, words []uint32) *Engine {
	t.Helper()
	e := New(cyclecoreTestMemSize, nil, nil)
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	maxCycles := 10000
	err := e.Run(nil, &maxCycles)
	assert.NoError(t, err)
	return e
}

func TestADDIBasic(t *testing.T) {
	words := []uint32{
		word.EncRI(word.MajADDI, 1, 0, 123, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
	}
	e := run(t, words)
	assert.Equal(t, uint32(123), e.Regs.R[1])
}

func TestADDThreeReg(t *testing.T) {
	e := New(cyclecoreTestMemSize, nil, nil)
	e.Regs.R[0] = 2
	e.Regs.R[1] = 3
	words := []uint32{
		word.Enc3R(word.MajADD, 2, 0, 1, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
	}
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	assert.NoError(t, e.Run(nil, nil))
	assert.Equal(t, uint32(5), e.Regs.R[2])
}

func TestAndOrBitwise(t *testing.T) {
	e := New(cyclecoreTestMemSize, nil, nil)
	e.Regs.R[0] = 0xF0F0F0F0
	e.Regs.R[1] = 0x00FFFF00
	words := []uint32{
		word.Enc3R(word.MajAND, 2, 0, 1, word.NoPred, true),
		word.Enc3R(word.MajOR, 3, 0, 1, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
	}
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	assert.NoError(t, e.Run(nil, nil))
	assert.Equal(t, uint32(0x00F0F000), e.Regs.R[2])
	assert.Equal(t, uint32(0xF0FFFFF0), e.Regs.R[3])
}

func TestForwardJumpSkipsCode(t *testing.T) {
	words := []uint32{
		word.EncRI(word.MajADDI, 1, 0, 100, word.NoPred, true),
		word.EncI(word.MajJ, 2, word.NoPred, true),
		word.EncRI(word.MajADDI, 1, 0, 200, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
		word.EncRI(word.MajADDI, 2, 0, 50, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
	}
	e := run(t, words)
	assert.Equal(t, uint32(100), e.Regs.R[1])
	assert.Equal(t, uint32(50), e.Regs.R[2])
}

func TestLoadStoreRoundTrip(t *testing.T) {
	e := New(cyclecoreTestMemSize, nil, nil)
	assert.NoError(t, e.Bus.Write32(0x2000, 0xDEADBEEF))
	e.Regs.R[5] = 0x2000
	words := []uint32{
		word.EncRI(word.MajLD, 6, 5, 0, word.NoPred, true),
		word.EncRI(word.MajADDI, 5, 5, 4, word.NoPred, true),
		word.EncST(5, 6, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
	}
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	assert.NoError(t, e.Run(nil, nil))
	assert.Equal(t, uint32(0xDEADBEEF), e.Regs.R[6])
	v, err := e.Bus.Read32(0x2004)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)
}

func TestPredicateGatesExecution(t *testing.T) {
	e := New(cyclecoreTestMemSize, nil, nil)
	e.Regs.R[0] = 0
	words := []uint32{
		word.EncCMPI(1, 0, 1, word.CmpLT, word.NoPred, true),
		word.EncRI(word.MajADDI, 2, 0, 7, 1, true),
		word.EncCMPI(1, 0, 1, word.CmpGT, word.NoPred, true),
		word.EncRI(word.MajADDI, 2, 0, 9, 1, true),
		word.EncHALT(word.NoPred, true),
	}
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	assert.NoError(t, e.Run(nil, nil))
	assert.Equal(t, uint32(7), e.Regs.R[2])
}

func TestUnknownOpcodeOrFetchFaultAreFatal(t *testing.T) {
	e := New(1<<12, nil, nil)
	assert.NoError(t, e.LoadWords(0xFF0, []uint32{word.Enc3R(word.MajADD, 1, 0, 0, word.NoPred, true)}))
	e.PC = 0xFF0
	err := e.Run(nil, nil)
	assert.Error(t, err)
}

func TestCycleBudgetExceeded(t *testing.T) {
	e := New(cyclecoreTestMemSize, nil, nil)
	words := []uint32{
		word.EncI(word.MajJ, -1, word.NoPred, true),
	}
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	budget := 10
	err := e.Run(nil, &budget)
	assert.ErrorIs(t, err, ErrCycleBudget)
}

// TestLSUStallsSecondLoad exercises the cycle engine's single-LSU bank: two
// back-to-back loads must serialize, the second stalling until the first's
// 3-cycle latency clears, but both still complete with correct values.
func TestLSUStallsSecondLoad(t *testing.T) {
	e := New(cyclecoreTestMemSize, nil, nil)
	assert.NoError(t, e.Bus.Write32(0x2000, 0x11111111))
	assert.NoError(t, e.Bus.Write32(0x2004, 0x22222222))
	e.Regs.R[1] = 0x2000
	e.Regs.R[2] = 0x2004
	words := []uint32{
		word.EncRI(word.MajLD, 3, 1, 0, word.NoPred, true),
		word.EncRI(word.MajLD, 4, 2, 0, word.NoPred, true),
		word.EncHALT(word.NoPred, true),
	}
	assert.NoError(t, e.LoadWords(DefaultEntry, words))
	assert.NoError(t, e.Run(nil, nil))
	assert.Equal(t, uint32(0x11111111), e.Regs.R[3])
	assert.Equal(t, uint32(0x22222222), e.Regs.R[4])
}

// TestArchitecturalEquivalenceWithFastcore checks that, for the same
// program, the cycle-accurate engine reaches the same architectural state
// (R, P, and memory contents) as the functional engine, despite taking a
// different (larger) number of ticks to do it.
func TestArchitecturalEquivalenceWithFastcore(t *testing.T) {
	words := []uint32{
		word.EncRI(word.MajADDI, 1, 0, 10, word.NoPred, true),       // R1 = 10
		word.EncRI(word.MajADDI, 2, 0, 20, word.NoPred, true),       // R2 = 20
		word.Enc3R(word.MajADD, 3, 1, 2, word.NoPred, true),         // R3 = R1+R2 = 30
		word.Enc3R(word.MajMUL, 4, 3, 1, word.NoPred, true),         // R4 = R3*R1 = 300
		word.EncCMPI(1, 4, 300, word.CmpGE, word.NoPred, true),      // P1 = (R4 >= 300) = true
		word.EncRI(word.MajADDI, 5, 0, 1, 1, true),                  // @P1: R5 = 1
		word.EncRI(word.MajADDI, 6, 0, 0x3000, word.NoPred, true),   // R6 = 0x3000
		word.EncST(6, 5, word.NoPred, true),                         // mem[R6] = R5
		word.EncHALT(word.NoPred, true),
	}

	fe := fastcoreNew(t)
	assert.NoError(t, fe.LoadWords(fastcore.DefaultEntry, words))
	assert.NoError(t, fe.Run(nil, nil))

	ce := New(cyclecoreTestMemSize, nil, nil)
	assert.NoError(t, ce.LoadWords(DefaultEntry, words))
	assert.NoError(t, ce.Run(nil, nil))

	assert.Equal(t, fe.Regs.R, ce.Regs.R)
	assert.Equal(t, fe.Regs.P, ce.Regs.P)
	assert.Equal(t, fe.Bus.Bytes(), ce.Bus.Bytes())
}

func fastcoreNew(t *testing.T) *fastcore.Engine {
	t.Helper()
	return fastcore.New(cyclecoreTestMemSize, nil, nil)
}
