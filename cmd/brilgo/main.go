// The brilgo command exercises the core library end to end: it reads
// a program document from standard input or a named file, runs one
// subcommand's pass or analysis over every function, and writes the
// result to standard output. It is a thin driver, not a polished
// tool — see SPEC_FULL.md's Non-Goals.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bril-go/brilgo/cfg"
	"github.com/bril-go/brilgo/dataflow"
	"github.com/bril-go/brilgo/diagnostics"
	"github.com/bril-go/brilgo/dom"
	"github.com/bril-go/brilgo/ir"
	"github.com/bril-go/brilgo/licm"
	"github.com/bril-go/brilgo/lvn"
	"github.com/bril-go/brilgo/ssa"
	"github.com/fatih/color"
)

var fileFlag = flag.String("f", "", "read the program from this file instead of stdin")
var strictFlag = flag.Bool("strict", false, "report an unrecognized opcode as an error instead of falling back conservatively")

func usage() {
	fmt.Fprintf(os.Stderr, `usage: %s [-f file] <command> [args]

commands:
  bb                          print basic blocks for every function
  cfg                         print the control flow graph for every function
  df <reaching|live|constant> run a dataflow analysis and print its result
  lvn                         run local value numbering + trivial DCE
  dom                         print dominator trees for every function
  licm                        run loop-invariant code motion
  ssa to|from|stats           convert to/from set-get SSA form, or report stats

`, os.Args[0])
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	prog, err := readProgram(*fileFlag)
	if err != nil {
		fail(err)
	}

	if err := run(args[0], args[1:], prog); err != nil {
		fail(err)
	}
}

func readProgram(path string) (*ir.Program, error) {
	if path == "" {
		return ir.Decode(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ir.Decode(f)
}

func run(command string, args []string, prog *ir.Program) error {
	switch command {
	case "bb":
		for _, fn := range prog.Functions {
			blocks := cfg.FormBasicBlocks(fn.Instrs)
			fmt.Printf("Function: %s\n", fn.Name)
			for i, b := range blocks {
				fmt.Printf("Block %d (%s): %d instrs\n", i, b.Label, len(b.Instrs))
			}
		}
		return nil

	case "cfg":
		for _, fn := range prog.Functions {
			blocks := cfg.FormBasicBlocks(fn.Instrs)
			g, err := cfg.Build(blocks)
			if err != nil {
				return err
			}
			fmt.Printf("Function: %s\n%s\n", fn.Name, cfg.Dump(g))
		}
		return nil

	case "df":
		if len(args) != 1 {
			return diagnostics.New(diagnostics.UsageError, "df requires one argument: reaching|live|constant")
		}
		return runDataflow(args[0], prog)

	case "lvn":
		if err := lvn.OptimizeStrict(prog, *strictFlag); err != nil {
			return err
		}
		return ir.Encode(os.Stdout, prog)

	case "dom":
		for _, fn := range prog.Functions {
			blocks := cfg.FormBasicBlocks(fn.Instrs)
			g, err := cfg.Build(blocks)
			if err != nil {
				return err
			}
			entry := cfg.EnsureUniqueEntry(g, 0)
			info := dom.Compute(g, entry)
			fmt.Printf("Function: %s\n%s\n", fn.Name, dom.DumpTree(info, g))
		}
		return nil

	case "licm":
		for i, fn := range prog.Functions {
			out, err := licm.Run(fn)
			if err != nil {
				return err
			}
			prog.Functions[i] = out
		}
		return ir.Encode(os.Stdout, prog)

	case "ssa":
		if len(args) != 1 {
			return diagnostics.New(diagnostics.UsageError, "ssa requires one argument: to|from|stats")
		}
		return runSSA(args[0], prog)

	default:
		return diagnostics.New(diagnostics.UsageError, "unknown command %q", command)
	}
}

func runDataflow(kind string, prog *ir.Program) error {
	for _, fn := range prog.Functions {
		blocks := cfg.FormBasicBlocks(fn.Instrs)
		g, err := cfg.Build(blocks)
		if err != nil {
			return err
		}
		fmt.Printf("Function: %s\n", fn.Name)
		switch kind {
		case "reaching-definitions", "reaching":
			res := dataflow.Reaching(g)
			for i, b := range g.Blocks {
				fmt.Printf("%s:\n  in:  %v\n  out: %v\n", b.Label, keys(res.In[i]), keys(res.Out[i]))
			}
		case "live":
			res := dataflow.Live(g)
			for i, b := range g.Blocks {
				fmt.Printf("%s:\n  in:  %v\n  out: %v\n", b.Label, keys(res.In[i]), keys(res.Out[i]))
			}
		case "constant":
			res, err := dataflow.ConstPropStrict(g, *strictFlag)
			if err != nil {
				return err
			}
			for i, b := range g.Blocks {
				fmt.Printf("%s:\n  in:  %v\n  out: %v\n", b.Label, res.In[i], res.Out[i])
			}
		default:
			return diagnostics.New(diagnostics.UsageError, "unknown analysis %q", kind)
		}
	}
	return nil
}

func runSSA(mode string, prog *ir.Program) error {
	switch mode {
	case "to":
		for i, fn := range prog.Functions {
			out, err := ssa.To(fn)
			if err != nil {
				return err
			}
			prog.Functions[i] = out
		}
		return ir.Encode(os.Stdout, prog)
	case "from":
		for i, fn := range prog.Functions {
			prog.Functions[i] = ssa.From(fn)
		}
		return ir.Encode(os.Stdout, prog)
	case "stats":
		for _, fn := range prog.Functions {
			stats, err := ssa.ComputeStats(fn)
			if err != nil {
				return err
			}
			fmt.Printf("%s: original=%d ssa=%d roundtrip=%d (+%d, +%d)\n",
				fn.Name, stats.OriginalInstructionCount, stats.SSAInstructionCount,
				stats.RoundtripInstructionCount, stats.IncreaseFromToSSA, stats.IncreaseFromRoundtrip)
		}
		return nil
	default:
		return diagnostics.New(diagnostics.UsageError, "unknown ssa mode %q", mode)
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func fail(err error) {
	color.Red("error: %v", err)
	os.Exit(1)
}
