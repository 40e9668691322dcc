// Package disasm renders decoded instructions as assembly mnemonics and, for
// interactive use, as a lipgloss-styled table. Mnemonic gives the plain
// one-line form; Listing always renders with lipgloss styling.
package disasm

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"dspsim/word"
)

// Mnemonic renders a single decoded instruction as one line of assembly
// text, in the same operand order asm.Assemble accepts.
func Mnemonic(inst word.Inst) string {
	var body string
	switch inst.Op {
	case word.OpADD, word.OpSUB, word.OpAND, word.OpOR, word.OpXOR,
		word.OpSHL, word.OpSHR, word.OpMUL, word.OpMAC:
		body = fmt.Sprintf("%s R%d, R%d, R%d", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	case word.OpNOT:
		body = fmt.Sprintf("NOT R%d, R%d", inst.Rd, inst.Rs1)
	case word.OpADDI:
		body = fmt.Sprintf("ADDI R%d, R%d, #%d", inst.Rd, inst.Rs1, inst.Imm)
	case word.OpLD:
		body = fmt.Sprintf("LD R%d, [R%d%s]", inst.Rd, inst.Rs1, signed(inst.Imm))
	case word.OpST:
		body = fmt.Sprintf("ST [R%d], R%d", inst.Rs1, inst.Rs2)
	case word.OpJ:
		body = fmt.Sprintf("J %d", inst.Imm)
	case word.OpJR:
		body = fmt.Sprintf("JR R%d", inst.Rs1)
	case word.OpCMPI:
		body = fmt.Sprintf("CMPI.%s P%d, R%d, #%d", inst.Cmp, inst.Rd, inst.Rs1, inst.Imm)
	case word.OpHALT:
		body = "HALT"
	default:
		body = "???"
	}
	if inst.Pred != word.NoPred {
		body += fmt.Sprintf(" @P%d", inst.Pred)
	}
	return body
}

func signed(v int32) string {
	if v < 0 {
		return fmt.Sprintf("-%d", -v)
	}
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return ""
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	addrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	rawStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Listing renders a full disassembly of a word stream (fetched starting at
// base) as a lipgloss-styled table: address, raw hex word, and mnemonic per
// row.
func Listing(base uint32, words []uint32) string {
	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Top,
			headerStyle.Width(10).Render("addr"),
			headerStyle.Width(12).Render("raw"),
			headerStyle.Render("mnemonic"),
		),
	}
	for i, w := range words {
		addr := base + uint32(4*i)
		inst, ok := word.Decode(w, addr)
		mnemonic := "(unknown opcode)"
		if ok {
			mnemonic = Mnemonic(inst)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			addrStyle.Width(10).Render(fmt.Sprintf("0x%04X", addr)),
			rawStyle.Width(12).Render(fmt.Sprintf("0x%08X", w)),
			lipgloss.NewStyle().Render(mnemonic),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// Strip removes any lipgloss ANSI styling from s, for output that should
// stay plain (redirected to a file, piped to another tool).
func Strip(s string) string {
	return lipgloss.NewStyle().Render(stripANSI(s))
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == 0x1b:
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
