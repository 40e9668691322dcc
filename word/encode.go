package word

import "dspsim/bits"

func header(maj uint32, pred int, eop bool) uint32 {
	w := bits.SetBits(0, 31, 28, maj)
	if pred != NoPred {
		w = bits.SetBits(w, 27, 27, 1)
		w = bits.SetBits(w, 26, 25, uint32(pred))
	}
	if eop {
		w = bits.SetBits(w, 24, 24, 1)
	}
	return w
}

// Enc3R encodes a 3-register (rd, rs1, rs2) instruction: ADD, SUB, AND, OR,
// XOR, SHL, SHR, MUL, MAC.
func Enc3R(maj uint32, rd, rs1, rs2 int, pred int, eop bool) uint32 {
	w := header(maj, pred, eop)
	w = bits.SetBits(w, 23, 19, uint32(rd))
	w = bits.SetBits(w, 18, 14, uint32(rs1))
	w = bits.SetBits(w, 13, 9, uint32(rs2))
	return w
}

// EncRI encodes a register-immediate instruction: ADDI and LD. ST has its
// own encoder, EncST.
func EncRI(maj uint32, rd, rs1 int, imm int32, pred int, eop bool) uint32 {
	w := header(maj, pred, eop)
	w = bits.SetBits(w, 23, 19, uint32(rd))
	w = bits.SetBits(w, 18, 14, uint32(rs1))
	w = bits.SetBits(w, 13, 0, uint32(imm)&0x3FFF)
	return w
}

// EncST encodes a store: base register rs1, source register rs2, offset
// fixed at zero per the ST convention this repo adopts.
func EncST(rs1, rs2 int, pred int, eop bool) uint32 {
	w := header(MajST, pred, eop)
	w = bits.SetBits(w, 18, 14, uint32(rs1))
	w = bits.SetBits(w, 13, 9, uint32(rs2))
	return w
}

// EncI encodes an immediate-only instruction: J.
func EncI(maj uint32, imm int32, pred int, eop bool) uint32 {
	w := header(maj, pred, eop)
	w = bits.SetBits(w, 13, 0, uint32(imm)&0x3FFF)
	return w
}

// EncJR encodes an unconditional register jump.
func EncJR(rs1 int, pred int, eop bool) uint32 {
	w := header(MajJR, pred, eop)
	w = bits.SetBits(w, 18, 14, uint32(rs1))
	return w
}

// EncCMPI encodes a predicate-setting compare that writes predicate pdst.
// Like any other instruction it may itself be guarded by pred, or left
// unguarded with NoPred.
func EncCMPI(pdst, rs1 int, imm int32, rel CmpRelation, pred int, eop bool) uint32 {
	w := header(MajCMPI, pred, eop)
	w = bits.SetBits(w, 23, 19, uint32(pdst))
	w = bits.SetBits(w, 18, 14, uint32(rs1))
	w = bits.SetBits(w, 13, 0, uint32(imm)&0x3FFF)
	w = bits.SetBits(w, 8, 5, uint32(rel))
	return w
}

// EncHALT encodes the halt instruction, disambiguated from CMPI by
// rd==rs1==0 && imm==0 (see Decode).
func EncHALT(pred int, eop bool) uint32 {
	return header(MajHALT, pred, eop)
}
