// Package fu implements the functional units the cycle-accurate engine
// issues instructions to: a busy-until bookkeeping value with an
// accept/tick interface.
package fu

import (
	"fmt"

	"dspsim/word"
)

// FU is one execution resource with a fixed latency. It holds at most one
// in-flight instruction at a time, tracked by BusyUntil (the cycle at
// which it becomes free again).
type FU struct {
	Name      string
	Class     word.FUClass
	Latency   int
	BusyUntil int
	Current   *word.Inst
}

// New constructs an idle functional unit of the given class and latency.
func New(name string, class word.FUClass, latency int) *FU {
	return &FU{Name: name, Class: class, Latency: latency}
}

// CanAccept reports whether the unit is free to start a new instruction at
// curCycle.
func (u *FU) CanAccept(curCycle int) bool {
	return curCycle >= u.BusyUntil
}

// Start assigns inst to the unit, occupying it until curCycle+Latency.
func (u *FU) Start(inst word.Inst, curCycle int) {
	cp := inst
	u.Current = &cp
	u.BusyUntil = curCycle + u.Latency
}

// Tick returns the instruction completing at curCycle and clears the unit,
// or nil if nothing is ready yet.
func (u *FU) Tick(curCycle int) *word.Inst {
	if u.Current != nil && curCycle >= u.BusyUntil {
		finished := u.Current
		u.Current = nil
		return finished
	}
	return nil
}

// Bank is the set of functional units the cycle-accurate engine owns: by
// default 2 ALUs (latency 1), 1 LSU (latency 3), 1 VEC (latency 2, 4
// lanes). Sizes and latencies are configurable data, not fixed constants.
type Bank struct {
	ALU  []*FU
	LSU  []*FU
	VEC  []*FU
	Lanes int // VEC lane count, informational only: no opcode in this ISA exercises multi-lane execution
}

// DefaultBank constructs the standard functional-unit configuration.
func DefaultBank() *Bank {
	return NewBank(2, 1, 3, 2, 4)
}

// NewBank builds a functional-unit bank with aluCount ALUs (at aluLatency
// cycles each), a single LSU at lsuLatency, and a single VEC at
// vecLatency/vecLanes. config.Config.FUs is how a caller overrides the
// standard 2/1/3/2/4 configuration.
func NewBank(aluCount, aluLatency, lsuLatency, vecLatency, vecLanes int) *Bank {
	if aluCount < 1 {
		aluCount = 1
	}
	alus := make([]*FU, aluCount)
	for i := range alus {
		alus[i] = New(fmt.Sprintf("ALU%d", i), word.FUAlu, aluLatency)
	}
	return &Bank{
		ALU:   alus,
		LSU:   []*FU{New("LSU0", word.FULsu, lsuLatency)},
		VEC:   []*FU{New("VEC0", word.FUVec, vecLatency)},
		Lanes: vecLanes,
	}
}

// Select returns the first idle unit of class c, or nil if every unit of
// that class is busy at curCycle.
func (b *Bank) Select(c word.FUClass, curCycle int) *FU {
	var units []*FU
	switch c {
	case word.FUAlu:
		units = b.ALU
	case word.FULsu:
		units = b.LSU
	case word.FUVec:
		units = b.VEC
	}
	for _, u := range units {
		if u.CanAccept(curCycle) {
			return u
		}
	}
	return nil
}

// All returns every functional unit the bank owns, for ticking and for
// debug/trace dumps.
func (b *Bank) All() []*FU {
	all := make([]*FU, 0, len(b.ALU)+len(b.LSU)+len(b.VEC))
	all = append(all, b.ALU...)
	all = append(all, b.LSU...)
	all = append(all, b.VEC...)
	return all
}
