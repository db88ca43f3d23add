package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shouao/CSAPP-Labs/internal/config"
	"github.com/shouao/CSAPP-Labs/internal/trace"
)

var (
	genOps     int
	genIDs     int
	genMaxSize string
	genSeed    int64
)

func init() {
	cmd := newGenCmd()
	cmd.Flags().IntVar(&genOps, "ops", 10000, "Number of operations")
	cmd.Flags().IntVar(&genIDs, "ids", 2000, "Maximum number of block ids")
	cmd.Flags().StringVar(&genMaxSize, "max-size", "4KiB", "Largest request size")
	cmd.Flags().Int64Var(&genSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen <out>",
		Short: "Generate a random allocation trace",
		Long: `The gen command writes a random, well-formed trace. Every block
allocated by the trace is freed before it ends. Use "-" to write to stdout.

Example:
  mmctl gen random.rep --ops 20000 --max-size 16KiB --seed 7
  mmctl gen - --ops 100 | mmctl replay /dev/stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(args)
		},
	}
	return cmd
}

func runGen(args []string) error {
	maxSize, err := config.ParseSize(genMaxSize)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}
	if genOps <= 0 || genIDs <= 0 {
		return fmt.Errorf("--ops and --ids must be positive")
	}

	tr := trace.Generate(trace.GenOptions{Ops: genOps, IDs: genIDs, MaxSize: maxSize, Seed: genSeed})

	out := args[0]
	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create trace: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := tr.Write(w); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	if out != "-" {
		printInfo("Wrote %s: %s ops, %d ids, peak live %s\n",
			out, humanize.Comma(int64(len(tr.Ops))), tr.NumIDs, humanize.IBytes(uint64(tr.SuggestedHeap)))
	}
	return nil
}
