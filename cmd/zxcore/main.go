package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zxspectrum/zxcore"
)

// cmd/zxcore is a thin scripted-use harness over the library API: load
// a snapshot or tape, run frames (optionally until a breakpoint),
// dump registers or a disassembly, and save a snapshot back out. It
// does not render video or play audio - that is a host's job.

func main() {
	rootCmd := &cobra.Command{
		Use:   "zxcore",
		Short: "ZX Spectrum emulator core - scripted command-line harness",
	}

	rootCmd.AddCommand(newRunCmd(), newDisasmCmd(), newRegsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func machineKindFlag(s string) (zxcore.MachineKind, error) {
	switch strings.ToLower(s) {
	case "48", "48k":
		return zxcore.ZX48K, nil
	case "128", "128k":
		return zxcore.ZX128K, nil
	case "128k2", "+2":
		return zxcore.ZX128K2, nil
	case "128k2a", "+2a":
		return zxcore.ZX128K2A, nil
	default:
		return 0, fmt.Errorf("unrecognized machine kind %q (want 48k, 128k, +2, +2a)", s)
	}
}

func loadROMs(paths []string) ([][]byte, error) {
	roms := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading ROM %s: %w", p, err)
		}
		roms = append(roms, data)
	}
	return roms, nil
}

func newRunCmd() *cobra.Command {
	var kindFlag string
	var romPaths []string
	var snapshotPath string
	var tapePath string
	var frames int
	var breakAddr string
	var saveSnapshot string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a snapshot/tape and run for N frames or until a breakpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := machineKindFlag(kindFlag)
			if err != nil {
				return err
			}
			roms, err := loadROMs(romPaths)
			if err != nil {
				return err
			}
			m := zxcore.NewMachine(kind, roms)

			if snapshotPath != "" {
				data, err := os.ReadFile(snapshotPath)
				if err != nil {
					return fmt.Errorf("reading snapshot: %w", err)
				}
				if err := loadSnapshot(m, snapshotPath, data); err != nil {
					return err
				}
				log.Printf("loaded snapshot %s", snapshotPath)
			}

			if tapePath != "" {
				data, err := os.ReadFile(tapePath)
				if err != nil {
					return fmt.Errorf("reading tape: %w", err)
				}
				if err := loadTape(m, tapePath, data); err != nil {
					return err
				}
				m.TapePlay()
				log.Printf("loaded tape %s (%d blocks)", tapePath, m.Tape.BlockCount())
				if w := m.Tape.LoadWarning(); w != "" {
					log.Printf("warning: %s", w)
				}
			}

			if breakAddr != "" {
				addr, err := parseAddr(breakAddr)
				if err != nil {
					return err
				}
				m.Debugger.AddBreakpoint(addr)
				log.Printf("breakpoint set at %04Xh", addr)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ran := 0
			for ran < frames {
				select {
				case <-ctx.Done():
					log.Printf("interrupted after %d frame(s)", ran)
					return nil
				default:
				}
				m.RunFrame()
				ran++
				if m.Debugger.IsBreakpointHit() {
					log.Printf("breakpoint hit at %04Xh after %d frame(s)", m.Debugger.BreakpointAddress(), ran)
					break
				}
			}
			log.Printf("ran %d frame(s)", ran)

			if saveSnapshot != "" {
				out, err := m.SaveZ80()
				if err != nil {
					return fmt.Errorf("building snapshot: %w", err)
				}
				if err := os.WriteFile(saveSnapshot, out, 0644); err != nil {
					return fmt.Errorf("writing snapshot: %w", err)
				}
				log.Printf("wrote snapshot %s (%d bytes)", saveSnapshot, len(out))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "machine", "48k", "machine kind: 48k, 128k, +2, +2a")
	cmd.Flags().StringSliceVar(&romPaths, "rom", nil, "ROM image(s), in paging order")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "load a .sna or .z80 snapshot before running")
	cmd.Flags().StringVar(&tapePath, "tape", "", "load a .tap or .tzx image before running")
	cmd.Flags().IntVar(&frames, "frames", 50, "number of frames to run")
	cmd.Flags().StringVar(&breakAddr, "break", "", "breakpoint address (hex, e.g. 8000 or $8000)")
	cmd.Flags().StringVar(&saveSnapshot, "save", "", "write a .z80 snapshot after running")

	return cmd
}

func newDisasmCmd() *cobra.Command {
	var kindFlag string
	var romPaths []string
	var snapshotPath string
	var addrStr string
	var count int

	cmd := &cobra.Command{
		Use:   "disasm",
		Short: "Disassemble instructions starting at an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := machineKindFlag(kindFlag)
			if err != nil {
				return err
			}
			roms, err := loadROMs(romPaths)
			if err != nil {
				return err
			}
			m := zxcore.NewMachine(kind, roms)

			if snapshotPath != "" {
				data, err := os.ReadFile(snapshotPath)
				if err != nil {
					return fmt.Errorf("reading snapshot: %w", err)
				}
				if err := loadSnapshot(m, snapshotPath, data); err != nil {
					return err
				}
			}

			addr, err := parseAddr(addrStr)
			if err != nil {
				return err
			}

			lines := zxcore.Disassemble(m.DebugRead, addr, count)
			for _, l := range lines {
				fmt.Printf("%04Xh  % -12x %s\n", l.Address, l.Bytes, l.Mnemonic)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "machine", "48k", "machine kind: 48k, 128k, +2, +2a")
	cmd.Flags().StringSliceVar(&romPaths, "rom", nil, "ROM image(s), in paging order")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "load a .sna or .z80 snapshot first")
	cmd.Flags().StringVar(&addrStr, "addr", "0", "start address (hex, e.g. 8000 or $8000)")
	cmd.Flags().IntVar(&count, "count", 20, "number of instructions to decode")

	return cmd
}

func newRegsCmd() *cobra.Command {
	var kindFlag string
	var romPaths []string
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "regs",
		Short: "Load a snapshot and print CPU register state",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := machineKindFlag(kindFlag)
			if err != nil {
				return err
			}
			roms, err := loadROMs(romPaths)
			if err != nil {
				return err
			}
			m := zxcore.NewMachine(kind, roms)

			if snapshotPath != "" {
				data, err := os.ReadFile(snapshotPath)
				if err != nil {
					return fmt.Errorf("reading snapshot: %w", err)
				}
				if err := loadSnapshot(m, snapshotPath, data); err != nil {
					return err
				}
			}

			c := m.CPU
			fmt.Printf("AF=%04X BC=%04X DE=%04X HL=%04X\n", c.AF(), c.BC(), c.DE(), c.HL())
			fmt.Printf("IX=%04X IY=%04X SP=%04X PC=%04X\n", c.IX, c.IY, c.SP, c.PC)
			fmt.Printf("I=%02X R=%02X IM=%d IFF1=%v IFF2=%v\n", c.I, c.R, c.IM, c.IFF1, c.IFF2)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindFlag, "machine", "48k", "machine kind: 48k, 128k, +2, +2a")
	cmd.Flags().StringSliceVar(&romPaths, "rom", nil, "ROM image(s), in paging order")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "load a .sna or .z80 snapshot first")

	return cmd
}

func loadSnapshot(m *zxcore.Machine, path string, data []byte) error {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".sna"):
		return m.LoadSNA(data)
	case strings.HasSuffix(strings.ToLower(path), ".z80"):
		return m.LoadZ80(data)
	default:
		return fmt.Errorf("unrecognized snapshot extension for %s (want .sna or .z80)", path)
	}
}

func loadTape(m *zxcore.Machine, path string, data []byte) error {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".tap"):
		return m.LoadTAP(data)
	case strings.HasSuffix(strings.ToLower(path), ".tzx"):
		return m.LoadTZX(data)
	default:
		return fmt.Errorf("unrecognized tape extension for %s (want .tap or .tzx)", path)
	}
}

func parseAddr(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "$")
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint16(v), nil
}
