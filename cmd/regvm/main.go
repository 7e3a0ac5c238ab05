// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"

	"github.com/ezrec/regvm/cpu"
	"github.com/ezrec/regvm/emulator"
)

// loadConfig returns the configuration from path, or the defaults.
func loadConfig(path string) (cfg emulator.Config, err error) {
	if len(path) == 0 {
		cfg = emulator.DefaultConfig()
		return
	}

	return emulator.LoadConfig(path)
}

// loadProgram loads an image and, if given, its symbols sidecar.
func loadProgram(image string, symbols string) (prog *cpu.Program, err error) {
	bin, err := os.ReadFile(image)
	if err != nil {
		return
	}

	var syms []byte
	if len(symbols) != 0 {
		syms, err = os.ReadFile(symbols)
		if err != nil {
			return
		}
	}

	return cpu.LoadProgram(bin, syms)
}

func asmCommand() *cobra.Command {
	var config string
	var symbols bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "asm SOURCE IMAGE",
		Short: "Assemble mnemonic source into a binary image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(config)
			if err != nil {
				return
			}
			cfg.Verbose = cfg.Verbose || verbose

			inf, err := os.Open(args[0])
			if err != nil {
				return
			}
			defer inf.Close()

			emu := emulator.NewEmulator(cfg)
			prog, err := emu.Assembler().Parse(inf)
			if err != nil {
				return fmt.Errorf("%v: %w", args[0], err)
			}

			err = os.WriteFile(args[1], prog.Binary(), 0o644)
			if err != nil {
				return
			}

			if symbols {
				var data []byte
				data, err = prog.MarshalSymbols()
				if err != nil {
					return
				}
				err = os.WriteFile(args[1]+".sym", data, 0o644)
			}

			return
		},
	}

	cmd.Flags().StringVarP(&config, "config", "c", "", "TOML configuration file")
	cmd.Flags().BoolVarP(&symbols, "symbols", "g", false, "Write IMAGE.sym debug symbols")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose mode")

	return cmd
}

func runCommand() *cobra.Command {
	var config string
	var symbols string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run IMAGE",
		Short: "Execute a binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(config)
			if err != nil {
				return
			}
			cfg.Verbose = cfg.Verbose || verbose

			prog, err := loadProgram(args[0], symbols)
			if err != nil {
				return
			}

			emu := emulator.NewEmulator(cfg)
			emu.Program = prog

			err = emu.Reset()
			if err != nil {
				return
			}

			runErr := emu.Run()
			fmt.Fprint(cmd.OutOrStdout(), emu.Cpu.String())

			var rt *emulator.ErrRuntime
			if errors.As(runErr, &rt) {
				if dbg := prog.Debug(rt.Pc); dbg.Opcode != nil {
					log.Printf("%v: %v", args[0], strings.Join(dbg.Words, " "))
				}
			}

			return runErr
		},
	}

	cmd.Flags().StringVarP(&config, "config", "c", "", "TOML configuration file")
	cmd.Flags().StringVarP(&symbols, "symbols", "s", "", "Debug symbols file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose mode")

	return cmd
}

func dumpCommand() *cobra.Command {
	var symbols string
	var structs bool

	cmd := &cobra.Command{
		Use:   "dump IMAGE",
		Short: "Disassemble a binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := loadProgram(args[0], symbols)
			if err != nil {
				return
			}

			labels := map[uint64][]string{}
			for label, addr := range prog.Labels {
				labels[addr] = append(labels[addr], label)
			}

			out := cmd.OutOrStdout()
			printer := pp.New()
			printer.SetColoringEnabled(false)

			end := uint64(0)
			for offset, inst := range prog.Codes() {
				for _, label := range labels[offset] {
					fmt.Fprintf(out, ":%v\n", label)
				}
				if structs {
					printer.Fprintln(out, inst)
				} else {
					fmt.Fprintf(out, "%06x: %v\n", offset, inst)
				}
				end = offset + uint64(inst.Size())
			}

			if end != uint64(len(prog.Image)) {
				_, err = cpu.Decode(prog.Image, end)
				err = fmt.Errorf("%v: offset %#x: %w", args[0], end, err)
			}

			return
		},
	}

	cmd.Flags().StringVarP(&symbols, "symbols", "s", "", "Debug symbols file")
	cmd.Flags().BoolVar(&structs, "struct", false, "Pretty print decoded instructions")

	return cmd
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "regvm",
		Short:         "Assembler and interpreter for the regvm register machine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(asmCommand(), runCommand(), dumpCommand())

	return root
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}
