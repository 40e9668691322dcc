// Package cyclecore implements the cycle-accurate engine: multiple
// functional units with per-unit latencies, issue stalls, and in-order
// commit, which must produce the same architectural state as the
// functional engine for any valid program.
//
// Each cycle ticks in-flight functional units to completion, fetches and
// issues the next instruction to an idle unit of the matching class, and
// stalls (without advancing the program counter) when none is free or when
// the instruction would complete no later than one already in flight. The
// running cycle count lives on the engine struct itself rather than being
// threaded through return values.
package cyclecore

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"dspsim/bus"
	"dspsim/fu"
	"dspsim/regfile"
	"dspsim/trace"
	"dspsim/word"
)

// DefaultEntry is the default program counter and load base address.
const DefaultEntry = 0x1000

var (
	ErrDecode      = errors.New("cyclecore: unknown major opcode")
	ErrCycleBudget = errors.New("cyclecore: cycle budget exceeded")
)

const snapshotCount = 8

// Engine is the cycle-accurate simulator.
type Engine struct {
	Regs  *regfile.File
	Bus   *bus.Bus
	Bank  *fu.Bank
	PC    uint32
	Cycle int

	Sink trace.Sink
	Log  *logrus.Logger

	halted bool
}

// New constructs a cycle-accurate engine with the standard functional unit
// configuration (2xALU lat1, 1xLSU lat3, 1xVEC lat2).
func New(memSize int, sink trace.Sink, log *logrus.Logger) *Engine {
	return NewWithBank(memSize, fu.DefaultBank(), sink, log)
}

// NewWithBank constructs a cycle-accurate engine over a caller-supplied
// functional-unit bank, for configurations that override the standard FU
// counts/latencies (see config.Config.FUs).
func NewWithBank(memSize int, bank *fu.Bank, sink trace.Sink, log *logrus.Logger) *Engine {
	if sink == nil {
		sink = trace.NopSink{}
	}
	if bank == nil {
		bank = fu.DefaultBank()
	}
	return &Engine{
		Regs: regfile.New(),
		Bus:  bus.New(memSize),
		Bank: bank,
		PC:   DefaultEntry,
		Sink: sink,
		Log:  log,
	}
}

// LoadWords writes words into the bus at addr, little-endian.
func (e *Engine) LoadWords(addr uint32, words []uint32) error {
	return e.Bus.LoadWords(addr, words)
}

// Halted reports whether HALT has committed.
func (e *Engine) Halted() bool {
	return e.halted
}

// Run steps the engine from entry (or the current PC) until HALT commits,
// a fatal error occurs, or maxCycles is exceeded.
func (e *Engine) Run(entry *uint32, maxCycles *int) error {
	if entry != nil {
		e.PC = *entry
	}
	for !e.halted {
		if maxCycles != nil && e.Cycle >= *maxCycles {
			return fmt.Errorf("%w: after %d cycles", ErrCycleBudget, e.Cycle)
		}
		if err := e.Step(); err != nil {
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

// Step executes one cycle: tick functional units, fetch, predicate-check,
// issue. It is a no-op once the engine has halted.
func (e *Engine) Step() error {
	if e.halted {
		return nil
	}

	// 1. Tick FUs: commit anything whose latency has elapsed. This
	// precedes fetch/issue so a completing LD's value is visible to an
	// instruction issued later in this same cycle.
	for _, u := range e.Bank.All() {
		if inst := u.Tick(e.Cycle); inst != nil {
			e.commit(*inst)
			if e.halted {
				return nil
			}
		}
	}

	// 2. Fetch.
	pc := e.PC
	raw, err := e.Bus.Read32(pc)
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).WithField("pc", pc).Warn("fetch fault")
		}
		return fmt.Errorf("fetch fault at PC=0x%X: %w", pc, err)
	}
	e.PC += 4

	inst, ok := word.Decode(raw, pc)
	if !ok {
		if e.Log != nil {
			e.Log.WithField("pc", pc).Warn("unknown major opcode")
		}
		return fmt.Errorf("%w: at PC=0x%X (word=0x%08X)", ErrDecode, pc, raw)
	}

	// 3. Predicate check against committed P[] (not in-flight).
	if inst.Pred != word.NoPred && !e.Regs.P[inst.Pred] {
		e.Sink.Emit(trace.NewRecord(e.Cycle, inst, nil, nil, nil).AsSkipped())
		e.Cycle++
		return nil
	}

	// 4. Issue: pick the first idle FU of the matching class.
	class := word.ClassOf(inst.Op)
	target := e.Bank.Select(class, e.Cycle)
	if target == nil {
		// Stall: undo the fetch's PC advance and retry next cycle.
		e.PC = pc
		e.Cycle++
		return nil
	}
	// Commit stays in issue order: stall while any in-flight instruction
	// would complete at or after this one.
	done := e.Cycle + target.Latency
	for _, u := range e.Bank.All() {
		if u.Current != nil && u.BusyUntil >= done {
			e.PC = pc
			e.Cycle++
			return nil
		}
	}
	target.Start(inst, e.Cycle)

	// 5.
	e.Cycle++
	return nil
}

// commit applies an instruction's architectural effects. Operands are read
// here, at commit time, not at issue — a deliberate simplification that
// keeps this engine hazard-free despite multi-cycle functional units.
func (e *Engine) commit(inst word.Inst) {
	before := e.snapshot()
	memops := e.applyEffect(inst)
	after := e.snapshot()
	e.Sink.Emit(trace.NewRecord(e.Cycle, inst, before, after, memops))
}

func (e *Engine) applyEffect(inst word.Inst) []trace.MemOp {
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
			if e.Log != nil {
				e.Log.WithError(err).Warn("LD fault at commit")
			}
			return nil
		}
		r.Write(inst.Rd, v)
		return []trace.MemOp{{Kind: trace.MemLD, Addr: addr, Val: v}}
	case word.OpST:
		addr := r.Read(inst.Rs1)
		v := r.Read(inst.Rs2)
		if err := e.Bus.Write32(addr, v); err != nil {
			if e.Log != nil {
				e.Log.WithError(err).Warn("ST fault at commit")
			}
			return nil
		}
		return []trace.MemOp{{Kind: trace.MemST, Addr: addr, Val: v}}
	case word.OpJ:
		// Target is relative to the instruction after the jump, which is
		// inst.PC+4 regardless of how far fetch has since run ahead.
		e.PC = inst.PC + 4 + uint32(inst.Imm<<2)
	case word.OpJR:
		e.PC = r.Read(inst.Rs1)
	case word.OpCMPI:
		r.P[inst.Rd] = compare(int32(r.Read(inst.Rs1)), inst.Imm, inst.Cmp)
	case word.OpHALT:
		e.halted = true
	}
	return nil
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
