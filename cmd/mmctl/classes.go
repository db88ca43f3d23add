package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/shouao/CSAPP-Labs/heap"
	"github.com/shouao/CSAPP-Labs/heap/alloc"
)

var classesPolicy string

func init() {
	cmd := newClassesCmd()
	cmd.Flags().StringVar(&classesPolicy, "policy", "", "Size-class policy (overrides config)")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Print the size-class bucket table",
		Long: `The classes command prints the free-list buckets of the active
size-class policy and the block sizes each one holds.

Example:
  mmctl classes
  mmctl classes --policy coarse --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
	return cmd
}

type classesReport struct {
	Policy  string            `json:"policy"`
	MaxHeap int               `json:"max_heap"`
	Classes []alloc.SizeClass `json:"classes"`
}

func runClasses() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if classesPolicy != "" {
		cfg.Policy = classesPolicy
	}
	policy, err := cfg.SizeClassPolicy()
	if err != nil {
		return err
	}

	h, err := heap.New(int(cfg.Heap.MaxSize))
	if err != nil {
		return err
	}
	defer h.Close()

	a, err := alloc.New(h, policy)
	if err != nil {
		return err
	}

	report := classesReport{Policy: a.Policy(), MaxHeap: h.Max(), Classes: a.SizeClasses()}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Policy %s: %d buckets for a %s heap\n",
		report.Policy, len(report.Classes), humanize.IBytes(uint64(report.MaxHeap)))

	// Collapse the exact-fit run into one line unless verbose.
	exact := 0
	for _, c := range report.Classes {
		if c.MinSize == c.MaxSize {
			exact++
		}
	}
	for _, c := range report.Classes {
		if c.MinSize == c.MaxSize && !verbose {
			continue
		}
		printInfo("  %6d  %s\n", c.Index, describeClass(c))
	}
	if exact > 0 && !verbose {
		printInfo("  (%d exact-fit buckets of 8-byte steps hidden; use --verbose)\n", exact)
	}
	return nil
}

func describeClass(c alloc.SizeClass) string {
	switch {
	case c.MaxSize < 0:
		return fmt.Sprintf(">= %d bytes", c.MinSize)
	case c.MinSize == c.MaxSize:
		return fmt.Sprintf("%d bytes", c.MinSize)
	default:
		return fmt.Sprintf("%d - %d bytes", c.MinSize, c.MaxSize)
	}
}
