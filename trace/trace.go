// Package trace implements the per-instruction structured trace sink: one
// independent, line-delimited record per commit.
package trace

import (
	"os"

	"github.com/sirupsen/logrus"

	"dspsim/word"
)

// MemOpKind distinguishes a load from a store in a trace record's memory
// operation list.
type MemOpKind string

const (
	MemLD MemOpKind = "LD"
	MemST MemOpKind = "ST"
)

// MemOp records one memory access performed by a committed instruction.
type MemOp struct {
	Kind MemOpKind
	Addr uint32
	Val  uint32
}

// Record is the structured per-commit event: cycle, PC, mnemonic, operands,
// raw word, a register snapshot before/after, and any memory operations.
// Skipped (predicate-false) instructions are recorded with Skipped=true and
// empty before/after/memops.
type Record struct {
	Cycle   int
	PC      uint32
	Op      string
	Rd      *int
	Rs1     *int
	Rs2     *int
	Imm     *int32
	Pred    *int
	Raw     uint32
	Before  map[string]uint32
	After   map[string]uint32
	MemOps  []MemOp
	Skipped bool
}

// NewRecord builds a Record from a decoded instruction and the register
// snapshots taken immediately before and after its commit. memops may be
// nil.
func NewRecord(cycle int, inst word.Inst, before, after map[string]uint32, memops []MemOp) Record {
	r := Record{
		Cycle:  cycle,
		PC:     inst.PC,
		Op:     inst.Op.String(),
		Raw:    inst.Raw,
		Before: before,
		After:  after,
		MemOps: memops,
	}
	if inst.Rd != word.NoReg {
		v := inst.Rd
		r.Rd = &v
	}
	if inst.Rs1 != word.NoReg {
		v := inst.Rs1
		r.Rs1 = &v
	}
	if inst.Rs2 != word.NoReg {
		v := inst.Rs2
		r.Rs2 = &v
	}
	if inst.HasImm {
		v := inst.Imm
		r.Imm = &v
	}
	if inst.Pred != word.NoPred {
		v := inst.Pred
		r.Pred = &v
	}
	return r
}

// AsSkipped marks r as a predicate-false skip: no register/memory effects.
func (r Record) AsSkipped() Record {
	r.Skipped = true
	return r
}

// Sink is the trace emitter interface: a single method. The core never
// retains records after emitting them.
type Sink interface {
	Emit(r Record)
}

// NopSink discards every record; it is the default when tracing is
// disabled.
type NopSink struct{}

func (NopSink) Emit(Record) {}

// LogrusSink emits one line-delimited trace record per commit via a
// logrus.Logger, giving a line-delimited record stream in serialization
// order through the ambient logging library instead of a bespoke JSON
// writer.
type LogrusSink struct {
	log *logrus.Logger
}

// NewLogrusSink wraps log (or a fresh JSON-formatted logger writing to
// stdout if log is nil) as a trace sink.
func NewLogrusSink(log *logrus.Logger) *LogrusSink {
	if log == nil {
		log = logrus.New()
		log.SetOutput(os.Stdout)
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return &LogrusSink{log: log}
}

func (s *LogrusSink) Emit(r Record) {
	fields := logrus.Fields{
		"cycle": r.Cycle,
		"pc":    r.PC,
		"op":    r.Op,
		"raw":   r.Raw,
	}
	if r.Rd != nil {
		fields["rd"] = *r.Rd
	}
	if r.Rs1 != nil {
		fields["rs1"] = *r.Rs1
	}
	if r.Rs2 != nil {
		fields["rs2"] = *r.Rs2
	}
	if r.Imm != nil {
		fields["imm"] = *r.Imm
	}
	if r.Pred != nil {
		fields["pred"] = *r.Pred
	}
	if r.Skipped {
		fields["skipped"] = true
	} else {
		fields["before"] = r.Before
		fields["after"] = r.After
		if len(r.MemOps) > 0 {
			fields["memops"] = r.MemOps
		}
	}
	s.log.WithFields(fields).Info("commit")
}
