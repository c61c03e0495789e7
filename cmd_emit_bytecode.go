package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"yqlang/compiler"
	"yqlang/driver"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
)

// emitBytecodeCmd compiles a source file and prints its disassembly to
// stdout; with -dump it also writes the top-level chunk's raw encoded
// instructions to a .yqc file next to the source.
type emitBytecodeCmd struct {
	disassemble  bool
	dumpBytecode bool
}

func (*emitBytecodeCmd) Name() string { return "emit" }
func (*emitBytecodeCmd) Synopsis() string {
	return "Emit the bytecode representation of a source file"
}
func (*emitBytecodeCmd) Usage() string {
	return `emit <file>:
  Compile a source file and print its bytecode disassembly.
`
}

func (cmd *emitBytecodeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disassemble", true, "print the human-readable disassembly")
	f.BoolVar(&cmd.dumpBytecode, "dump", false, "also write the raw encoded instructions to a .yqc file")
}

func (cmd *emitBytecodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	sourceFile := args[0]

	data, err := os.ReadFile(sourceFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	bc, mem, err := compileSource(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, driver.ClassifyCompileError(err))
		return subcommands.ExitFailure
	}

	size := len(bc.Instructions)
	for _, fn := range bc.Functions {
		size += len(fn)
	}
	fmt.Printf("; %s (%d function chunk(s), %s of bytecode)\n\n",
		sourceFile, len(bc.Functions), humanize.Bytes(uint64(size)))

	if mem != nil && len(mem.GlobalNames) > 0 {
		fmt.Println("; globals")
		for i, name := range mem.GlobalNames {
			fmt.Printf(";   %4d %s\n", i, name)
		}
		fmt.Println()
	}

	if cmd.disassemble {
		fmt.Println(compiler.Disassemble(bc))
	}

	if cmd.dumpBytecode {
		base := strings.TrimSuffix(sourceFile, ".yq")
		outPath := base + ".yqc"
		if err := dumpRaw(outPath, bc); err != nil {
			fmt.Fprintf(os.Stderr, "💥 Failed to dump bytecode:\n\t%v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Printf("; wrote %s (%s)\n", outPath, humanize.Bytes(uint64(len(bc.Instructions))))
	}

	return subcommands.ExitSuccess
}

// dumpRaw writes the top-level chunk's raw instruction bytes to path, for
// offline inspection with a hex viewer. Function chunks aren't included —
// this is a debugging aid, not a serialization format.
func dumpRaw(path string, bc *compiler.Bytecode) error {
	return os.WriteFile(path, bc.Instructions, 0o644)
}
