package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shouao/CSAPP-Labs/internal/config"
	"github.com/shouao/CSAPP-Labs/internal/logger"
	"github.com/shouao/CSAPP-Labs/internal/replay"
	"github.com/shouao/CSAPP-Labs/internal/trace"
)

var (
	replayMaxHeap    string
	replayPolicy     string
	replayCheck      bool
	replayIterations int
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayMaxHeap, "max-heap", "", "Heap limit, e.g. 20MiB (overrides config)")
	cmd.Flags().
		StringVar(&replayPolicy, "policy", "", "Size-class policy: malloclab, fine, coarse (overrides config)")
	cmd.Flags().BoolVar(&replayCheck, "check", false, "Run the heap checker after every operation")
	cmd.Flags().IntVarP(&replayIterations, "iterations", "n", 0, "Timed replays per trace (overrides config)")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>...",
		Short: "Validate and time allocation traces",
		Long: `The replay command runs each trace against a fresh allocator. Every
returned pointer is checked for alignment, bounds and overlap, and payload
contents are verified before each free and realloc. Traces that pass are then
timed and scored.

Example:
  mmctl replay traces/amptjp-bal.rep
  mmctl replay traces/*.rep --check --iterations 5
  mmctl replay traces/*.rep --max-heap 64MiB --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args)
		},
	}
	return cmd
}

// replayReport is the JSON form of a replay run.
type replayReport struct {
	Policy  string           `json:"policy"`
	MaxHeap int              `json:"max_heap"`
	Results []*replay.Result `json:"results"`
	Summary *replay.Summary  `json:"summary,omitempty"`
}

func runReplay(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := replayOptions(cfg)
	if err != nil {
		return err
	}

	report := replayReport{Policy: opts.Policy.Name, MaxHeap: opts.MaxHeap}
	for _, path := range args {
		tr, err := readTrace(path)
		if err != nil {
			return err
		}
		printVerbose("Replaying %s: %d ops, %d ids\n", path, len(tr.Ops), tr.NumIDs)

		res, err := replay.Run(filepath.Base(path), tr, opts)
		if err != nil {
			logger.Error("replay failed", "trace", path, "error", err)
			return err
		}
		report.Results = append(report.Results, res)
	}

	summary, err := replay.Summarize(report.Results, opts)
	if err == nil {
		report.Summary = summary
	} else {
		printVerbose("No weighted traces; skipping performance index\n")
	}

	if jsonOut {
		return printJSON(report)
	}
	printReplayTable(report)
	return nil
}

// replayOptions merges command flags over the configuration.
func replayOptions(cfg *config.Config) (replay.Options, error) {
	if replayMaxHeap != "" {
		n, err := config.ParseSize(replayMaxHeap)
		if err != nil {
			return replay.Options{}, fmt.Errorf("invalid --max-heap: %w", err)
		}
		cfg.Heap.MaxSize = config.ByteSize(n)
	}
	if replayPolicy != "" {
		cfg.Policy = replayPolicy
	}
	if replayIterations > 0 {
		cfg.Driver.Iterations = replayIterations
	}
	if err := cfg.Validate(); err != nil {
		return replay.Options{}, err
	}

	policy, err := cfg.SizeClassPolicy()
	if err != nil {
		return replay.Options{}, err
	}
	utilWeight := cfg.Driver.UtilWeight
	return replay.Options{
		MaxHeap:    int(cfg.Heap.MaxSize),
		Policy:     policy,
		Check:      replayCheck || cfg.Driver.Check,
		Iterations: cfg.Driver.Iterations,
		UtilWeight: &utilWeight,
		LibcKops:   cfg.Driver.LibcKops,
	}, nil
}

// readTrace opens, parses and validates a trace file.
func readTrace(path string) (*trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	tr, err := trace.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tr, nil
}

func printReplayTable(r replayReport) {
	printInfo("\nPolicy: %s, heap limit %s\n", r.Policy, humanize.IBytes(uint64(r.MaxHeap)))
	printInfo("%s\n", strings.Repeat("-", 78))
	printInfo("%-24s %4s %10s %10s %7s %10s %9s\n", "trace", "wt", "ops", "heap", "util", "Kops/s", "p99 ns")
	for _, res := range r.Results {
		printInfo("%-24s %4d %10s %10s %6.1f%% %10.0f %9.0f\n",
			res.Name, res.Weight, humanize.Comma(int64(res.Ops)), humanize.IBytes(uint64(res.HeapSize)),
			res.Util*100, res.Kops, res.P99Ns)
	}
	printInfo("%s\n", strings.Repeat("-", 78))

	if s := r.Summary; s != nil {
		printInfo("Total: %d traces, %s ops, avg util %.1f%%, %.0f Kops/s\n",
			s.Traces, humanize.Comma(int64(s.Ops)), s.AvgUtil*100, s.Kops)
		printInfo("Perf index = %.0f%% (util) + %.0f%% (thru) = %.1f/100\n",
			s.UtilWeight*100, (1-s.UtilWeight)*100, s.PerfIndex*100)
	}
}
