// Package regfile models the architectural register and predicate state
// shared by both execution engines.
package regfile

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// NumPreds is the number of boolean predicate flags.
const NumPreds = 4

// File holds R[0..31] and P[0..3]. Every R register is a plain
// general-purpose 32-bit value — R[0] is not hard-wired to zero.
type File struct {
	R [NumRegs]uint32
	P [NumPreds]bool
}

// New returns a File with every predicate initialized true and every
// register zeroed.
func New() *File {
	f := &File{}
	for i := range f.P {
		f.P[i] = true
	}
	return f
}

// Write sets R[i], wrapping modulo 2^32 (the uint32 store already does
// this; the method exists so every write path reads the same in engine
// code as the invariant it satisfies).
func (f *File) Write(i int, v uint32) {
	f.R[i] = v
}

// Read returns the last committed value of R[i].
func (f *File) Read(i int) uint32 {
	return f.R[i]
}
