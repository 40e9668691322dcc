// Package fastcore implements the functional (fast) engine: a plain
// fetch-decode-execute loop, one instruction per tick, authoritative for
// architectural results.
package fastcore

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"dspsim/bus"
	"dspsim/regfile"
	"dspsim/trace"
	"dspsim/word"
)

// DefaultEntry is the default program counter and load base address.
const DefaultEntry = 0x1000

// Sentinel errors for the fatal run-time conditions this engine can hit.
var (
	ErrDecode      = errors.New("fastcore: unknown major opcode")
	ErrCycleBudget = errors.New("fastcore: cycle budget exceeded")
)

// snapshotCount is the fixed subset of registers included in trace records
// (R0..R7), kept small deliberately since it is taken on every commit.
const snapshotCount = 8

// Engine is the functional simulator: registers, predicates, a bus, a
// program counter, and a running cycle count.
type Engine struct {
	Regs  *regfile.File
	Bus   *bus.Bus
	PC    uint32
	Cycle int

	Sink trace.Sink
	Log  *logrus.Logger

	halted bool
}

// New constructs a functional engine over its own bus of the given memory
// size. A nil sink disables tracing; a nil logger disables logging.
func New(memSize int, sink trace.Sink, log *logrus.Logger) *Engine {
	if sink == nil {
		sink = trace.NopSink{}
	}
	return &Engine{
		Regs:  regfile.New(),
		Bus:   bus.New(memSize),
		PC:    DefaultEntry,
		Sink:  sink,
		Log:   log,
	}
}

// LoadWords writes words into the bus at addr, little-endian.
func (e *Engine) LoadWords(addr uint32, words []uint32) error {
	return e.Bus.LoadWords(addr, words)
}

// Halted reports whether the engine has executed HALT.
func (e *Engine) Halted() bool {
	return e.halted
}

// Run executes from entry (or the current PC if entry is nil) until HALT,
// a decode/fetch error, or maxCycles is exceeded (if non-nil).
func (e *Engine) Run(entry *uint32, maxCycles *int) error {
	if entry != nil {
		e.PC = *entry
	}
	for !e.halted {
		if maxCycles != nil && e.Cycle >= *maxCycles {
			return fmt.Errorf("%w: after %d cycles", ErrCycleBudget, e.Cycle)
		}
		if err := e.step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) snapshot() map[string]uint32 {
	m := make(map[string]uint32, snapshotCount)
	for i := 0; i < snapshotCount; i++ {
		m[fmt.Sprintf("R%d", i)] = e.Regs.R[i]
	}
	return m
}

// step fetches, decodes, and executes exactly one instruction.
func (e *Engine) step() error {
	pc := e.PC
	raw, err := e.Bus.Read32(pc)
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).WithField("pc", pc).Warn("fetch fault")
		}
		return fmt.Errorf("fetch fault at PC=0x%X: %w", pc, err)
	}

	// PC advances before dispatch: jumps therefore specify a target
	// relative to the next instruction.
	e.PC += 4
	e.Cycle++

	inst, ok := word.Decode(raw, pc)
	if !ok {
		if e.Log != nil {
			e.Log.WithField("pc", pc).Warn("unknown major opcode")
		}
		return fmt.Errorf("%w: at PC=0x%X (word=0x%08X)", ErrDecode, pc, raw)
	}

	if inst.Pred != word.NoPred && !e.Regs.P[inst.Pred] {
		e.Sink.Emit(trace.NewRecord(e.Cycle, inst, nil, nil, nil).AsSkipped())
		return nil
	}

	before := e.snapshot()
	memops, err := e.execute(inst)
	if err != nil {
		return err
	}
	after := e.snapshot()
	e.Sink.Emit(trace.NewRecord(e.Cycle, inst, before, after, memops))
	return nil
}

func (e *Engine) execute(inst word.Inst) ([]trace.MemOp, error) {
	r := e.Regs
	switch inst.Op {
	case word.OpADD:
		r.Write(inst.Rd, r.Read(inst.Rs1)+r.Read(inst.Rs2))
	case word.OpADDI:
		r.Write(inst.Rd, r.Read(inst.Rs1)+uint32(inst.Imm))
	case word.OpSUB:
		r.Write(inst.Rd, r.Read(inst.Rs1)-r.Read(inst.Rs2))
	case word.OpAND:
		r.Write(inst.Rd, r.Read(inst.Rs1)&r.Read(inst.Rs2))
	case word.OpOR:
		r.Write(inst.Rd, r.Read(inst.Rs1)|r.Read(inst.Rs2))
	case word.OpXOR:
		r.Write(inst.Rd, r.Read(inst.Rs1)^r.Read(inst.Rs2))
	case word.OpSHL:
		r.Write(inst.Rd, r.Read(inst.Rs1)<<(r.Read(inst.Rs2)&0x1F))
	case word.OpSHR:
		r.Write(inst.Rd, r.Read(inst.Rs1)>>(r.Read(inst.Rs2)&0x1F))
	case word.OpMUL:
		r.Write(inst.Rd, r.Read(inst.Rs1)*r.Read(inst.Rs2))
	case word.OpMAC:
		r.Write(inst.Rd, r.Read(inst.Rd)+r.Read(inst.Rs1)*r.Read(inst.Rs2))
	case word.OpNOT:
		r.Write(inst.Rd, ^r.Read(inst.Rs1))
	case word.OpLD:
		addr := r.Read(inst.Rs1) + uint32(inst.Imm)
		v, err := e.Bus.Read32(addr)
		if err != nil {
			return nil, fmt.Errorf("LD fault: %w", err)
		}
		r.Write(inst.Rd, v)
		return []trace.MemOp{{Kind: trace.MemLD, Addr: addr, Val: v}}, nil
	case word.OpST:
		addr := r.Read(inst.Rs1)
		v := r.Read(inst.Rs2)
		if err := e.Bus.Write32(addr, v); err != nil {
			return nil, fmt.Errorf("ST fault: %w", err)
		}
		return []trace.MemOp{{Kind: trace.MemST, Addr: addr, Val: v}}, nil
	case word.OpJ:
		e.PC = e.PC + uint32(inst.Imm<<2)
	case word.OpJR:
		e.PC = r.Read(inst.Rs1)
	case word.OpCMPI:
		r.P[inst.Rd] = compare(int32(r.Read(inst.Rs1)), inst.Imm, inst.Cmp)
	case word.OpHALT:
		e.halted = true
	default:
		return nil, fmt.Errorf("%w: unimplemented opcode %s", ErrDecode, inst.Op)
	}
	return nil, nil
}

func compare(lhs, rhs int32, rel word.CmpRelation) bool {
	switch rel {
	case word.CmpEQ:
		return lhs == rhs
	case word.CmpNE:
		return lhs != rhs
	case word.CmpLT:
		return lhs < rhs
	case word.CmpGE:
		return lhs >= rhs
	case word.CmpLE:
		return lhs <= rhs
	case word.CmpGT:
		return lhs > rhs
	default:
		return false
	}
}
