// Command dspsim is the assembler/disassembler/runner CLI, structured as a
// cobra command tree the way oisee-z80-optimizer's cmd/z80opt/main.go
// builds its subcommands: one root command, flags bound with cobra's
// pflag-backed Flags(), RunE returning plain errors that main prints before
// exiting with status 1.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dspsim/asm"
	"dspsim/bus"
	"dspsim/config"
	"dspsim/cyclecore"
	"dspsim/debugtui"
	"dspsim/device"
	"dspsim/disasm"
	"dspsim/fastcore"
	"dspsim/fu"
	"dspsim/trace"
	"dspsim/word"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "dspsim",
		Short:         "dspsim — educational DSP instruction-set simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "log verbosity: debug, info, warning, error")

	log := logrus.New()
	log.SetOutput(os.Stderr)
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lvl, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("bad --log-level %q: %w", logLevel, err)
		}
		log.SetLevel(lvl)
		return nil
	}

	root.AddCommand(newAsmCmd(), newDisasmCmd(), newRunCmd(log))
	return root
}

func newAsmCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "asm ASM_FILE",
		Short: "Assemble ASM_FILE into binary words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readLines(args[0])
			if err != nil {
				return err
			}
			words, err := asm.Assemble(lines)
			if err != nil {
				return fmt.Errorf("assembly failed: %w", err)
			}
			if output != "" {
				if err := writeWordsBin(output, words); err != nil {
					return err
				}
				fmt.Printf("Wrote %d words to %s\n", len(words), output)
				return nil
			}
			for _, w := range words {
				fmt.Printf("0x%08X\n", w)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output binary file (.bin); prints hex words if omitted")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	var base uint32
	var pretty bool
	cmd := &cobra.Command{
		Use:   "disasm BIN_FILE",
		Short: "Disassemble a binary of little-endian 32-bit words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := readWordsBin(args[0])
			if err != nil {
				return err
			}
			if pretty {
				fmt.Println(disasm.Listing(base, words))
				return nil
			}
			for i, w := range words {
				inst, ok := word.Decode(w, base+uint32(4*i))
				if !ok {
					fmt.Printf("0x%08X  (unknown opcode)\n", w)
					continue
				}
				fmt.Printf("0x%08X  %s\n", w, disasm.Mnemonic(inst))
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&base, "base", 0x1000, "base address for the --pretty address column")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render as a lipgloss table")
	return cmd
}

func newRunCmd(log *logrus.Logger) *cobra.Command {
	var asmFile, binFile, configFile string
	var base uint32
	var entry int64
	var entrySet bool
	var engine string
	var enableTrace bool
	var pretty bool
	var debug bool
	var maxCycles int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a program (from --asm or --bin) on the simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (asmFile == "") == (binFile == "") {
				return fmt.Errorf("provide exactly one of --asm or --bin")
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			var words []uint32
			if asmFile != "" {
				lines, err := readLines(asmFile)
				if err != nil {
					return err
				}
				words, err = asm.Assemble(lines)
				if err != nil {
					return fmt.Errorf("assembly failed: %w", err)
				}
			} else {
				words, err = readWordsBin(binFile)
				if err != nil {
					return err
				}
			}

			startPC := base
			if entrySet {
				startPC = uint32(entry)
			}

			var sink trace.Sink = trace.NopSink{}
			if enableTrace {
				sink = trace.NewLogrusSink(nil)
			}

			budget := &maxCycles
			if maxCycles <= 0 {
				if cfg.Run.MaxCycles > 0 {
					*budget = cfg.Run.MaxCycles
				} else {
					budget = nil
				}
			}

			switch engine {
			case "fast":
				eng := fastcore.New(cfg.Memory.SizeBytes, sink, log)
				if err := mapMMIO(eng.Bus, cfg.MMIO); err != nil {
					return err
				}
				if err := eng.LoadWords(base, words); err != nil {
					return err
				}
				entryAddr := startPC
				if err := eng.Run(&entryAddr, budget); err != nil {
					return err
				}
				printRegisters(eng.Regs.R, pretty)
			case "cycle":
				bank := fu.NewBank(cfg.FUs.ALUCount, cfg.FUs.ALULatency,
					cfg.FUs.LSULatency, cfg.FUs.VECLatency, cfg.FUs.VECLanes)
				eng := cyclecore.NewWithBank(cfg.Memory.SizeBytes, bank, sink, log)
				if err := mapMMIO(eng.Bus, cfg.MMIO); err != nil {
					return err
				}
				if err := eng.LoadWords(base, words); err != nil {
					return err
				}
				entryAddr := startPC
				if debug {
					eng.PC = entryAddr
					return debugtui.Run(eng)
				}
				if err := eng.Run(&entryAddr, budget); err != nil {
					return err
				}
				printRegisters(eng.Regs.R, pretty)
			default:
				return fmt.Errorf("unknown --engine %q: want fast or cycle", engine)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asmFile, "asm", "", "assemble and run this assembly file")
	cmd.Flags().StringVar(&binFile, "bin", "", "load and run this raw .bin file of 32-bit words")
	cmd.Flags().Uint32Var(&base, "base", 0x1000, "base load address")
	cmd.Flags().Int64Var(&entry, "entry", 0, "entry PC address (default: base)")
	cmd.Flags().StringVar(&engine, "engine", "fast", "execution engine: fast or cycle")
	cmd.Flags().BoolVar(&enableTrace, "trace", false, "enable instruction trace")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print final registers as a table")
	cmd.Flags().BoolVar(&debug, "debug", false, "launch the interactive single-step debugger (--engine cycle only)")
	cmd.Flags().StringVar(&configFile, "config", "", "path to a machine configuration TOML file")
	cmd.Flags().IntVar(&maxCycles, "max-cycles", 0, "abort after this many cycles (0 = unbounded, or config default)")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		entrySet = cmd.Flags().Changed("entry")
	}
	return cmd
}

// mapMMIO registers every configured MMIO window on b, building the named
// device kind ("console" writes to stdout, "counter" is a free-running
// register; any other kind is a configuration error).
func mapMMIO(b *bus.Bus, windows []config.WindowConfig) error {
	for _, w := range windows {
		var dev bus.Device
		switch w.Kind {
		case "console":
			dev = device.NewConsole(os.Stdout)
		case "counter":
			dev = device.NewCounter()
		default:
			return fmt.Errorf("config: mmio window %q has unknown kind %q", w.Name, w.Kind)
		}
		if err := b.MapMMIO(w.Start, w.Size, dev); err != nil {
			return fmt.Errorf("config: mmio window %q: %w", w.Name, err)
		}
	}
	return nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return strings.Split(string(data), "\n"), nil
}

func readWordsBin(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("binary size is not a multiple of 4 bytes")
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

func writeWordsBin(path string, words []uint32) error {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return os.WriteFile(path, buf, 0o644)
}

func printRegisters(regs [32]uint32, pretty bool) {
	fmt.Println("Final Registers:")
	if pretty {
		fmt.Println(renderRegisterTable(regs))
		return
	}
	for i := 0; i < 32; i += 4 {
		fmt.Printf("R%02d-R%02d: %08X %08X %08X %08X\n", i, i+3,
			regs[i], regs[i+1], regs[i+2], regs[i+3])
	}
}

func renderRegisterTable(regs [32]uint32) string {
	var b strings.Builder
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "R%02d-R%02d │ %08X %08X %08X %08X\n", i, i+3,
			regs[i], regs[i+1], regs[i+2], regs[i+3])
	}
	return b.String()
}
