package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/kalloc"
	"github.com/joshuapare/kheap/kalloc/policy"
)

var policyBudget int

func init() {
	cmd := newPolicyCmd()
	cmd.Flags().IntVar(&policyBudget, "budget", kalloc.DefaultTypeBudget, "Total zone budget")
	rootCmd.AddCommand(cmd)
}

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy <freq>...",
		Short: "Run the zone budget policy on signature counts",
		Long: `The policy command distributes a zone budget across size classes,
given the number of unique signature groups in each class. Every populated
class gets up to two zones; the rest of the budget is shared in proportion
to the remaining groups.

Example:
  ktctl policy 10 6 2 --budget 10
  ktctl policy 5 5 5 --budget 4 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicy(args)
		},
	}
	return cmd
}

// PolicyResult is the JSON form of a policy run.
type PolicyResult struct {
	Budget   int   `json:"budget"`
	Freq     []int `json:"freq"`
	Zones    []int `json:"zones"`
	Assigned int   `json:"assigned"`
	Wasted   int   `json:"wasted"`
	Degraded bool  `json:"degraded"`
}

func runPolicy(args []string) error {
	freq := make([]int, len(args))
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid frequency %q: %w", s, err)
		}
		freq[i] = n
	}

	res, err := policy.Apply(freq, policyBudget)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(PolicyResult{
			Budget:   policyBudget,
			Freq:     freq,
			Zones:    res.Zones,
			Assigned: res.Assigned,
			Wasted:   res.Wasted,
			Degraded: res.Degraded,
		})
	}
	if quiet {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CLASS\tFREQ\tZONES\t")
	for i, f := range freq {
		fmt.Fprintf(w, "%d\t%d\t%d\t\n", i, f, res.Zones[i])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printInfo("\nbudget %d: assigned %d zones, wasted %d\n", policyBudget, res.Assigned, res.Wasted)
	if res.Degraded {
		printInfo("Warning: degraded to one zone per class\n")
	}
	return nil
}
