// Package debugtui is an interactive single-stepping debugger over a
// cycle-accurate engine: a tea.Model with Init/Update/View, a
// keypress-driven single-step loop, and a spew.Sdump dump of register
// state on error.
package debugtui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"dspsim/cyclecore"
	"dspsim/disasm"
	"dspsim/word"
)

type model struct {
	engine *cyclecore.Engine
	prevPC uint32
	err    error
	quit   bool
}

// Init is the first function bubbletea calls. The engine is expected to
// already be loaded (program in memory, PC set) by the caller.
func (m model) Init() tea.Cmd {
	return nil
}

// Update advances the debugger one step per " " or "j" keypress; "q" quits.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			m.quit = true
			return m, tea.Quit
		case " ", "j":
			if m.engine.Halted() {
				return m, nil
			}
			m.prevPC = m.engine.PC
			if err := m.engine.Step(); err != nil {
				m.err = err
				return m, tea.Quit
			}
			if m.engine.Halted() {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m model) registers() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PC: 0x%04X (prev 0x%04X)  cycle: %d\n", m.engine.PC, m.prevPC, m.engine.Cycle)
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "R%-2d=%08X  ", i, m.engine.Regs.R[i])
	}
	b.WriteString("\n")
	for i, p := range m.engine.Regs.P {
		fmt.Fprintf(&b, "P%d=%v  ", i, p)
	}
	return b.String()
}

func (m model) fuBank() string {
	var b strings.Builder
	for _, u := range m.engine.Bank.All() {
		status := "idle"
		if u.Current != nil {
			status = disasm.Mnemonic(*u.Current)
		}
		fmt.Fprintf(&b, "%-5s lat=%d busy_until=%-4d %s\n", u.Name, u.Latency, u.BusyUntil, status)
	}
	return b.String()
}

// View renders the debugger UI: register file, predicate flags, functional
// unit occupancy, and the next instruction at PC.
func (m model) View() string {
	next := "(halted)"
	if !m.engine.Halted() {
		if raw, err := m.engine.Bus.Read32(m.engine.PC); err == nil {
			if inst, ok := word.Decode(raw, m.engine.PC); ok {
				next = disasm.Mnemonic(inst)
			}
		}
	}
	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.registers(),
		"",
		m.fuBank(),
		"",
		"next: "+next,
	)
	if m.err != nil {
		view += "\n\nerror: " + m.err.Error() + "\n" + spew.Sdump(m.engine.Regs)
	}
	return view
}

// Run starts the interactive single-stepping TUI over an already-loaded
// engine and blocks until the user quits or the program halts.
func Run(e *cyclecore.Engine) error {
	_, err := tea.NewProgram(model{engine: e}).Run()
	return err
}
