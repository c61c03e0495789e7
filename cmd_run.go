package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"yqlang/driver"

	"github.com/google/subcommands"
)

// runCmd implements the `run` command: compile a source file and execute it
// once through the driver, with no persisted state and a budget generous
// enough for a one-shot CLI invocation (only the 1-hour total allowance
// still applies, as a runaway-script safety net).
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute yqlang code from a source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and execute a yqlang source file.
`
}
func (*runCmd) SetFlags(f *flag.FlagSet) {}

func (*runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	filename := args[0]

	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	bc, mem, err := compileSource(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, driver.ClassifyCompileError(err))
		return subcommands.ExitFailure
	}

	tmpl := driver.NewTemplate(bc, mem)
	opts := driver.NewOptions(
		driver.WithAllowance(driver.DefaultTotalAllowanceMS),
	)
	pool := driver.NewPool(tmpl, stdoutHost{}, opts)

	res := pool.Run(ctx, nil, nil)
	if res.Err != nil {
		fmt.Fprintln(os.Stderr, res.Err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
