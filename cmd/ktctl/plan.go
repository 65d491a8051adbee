package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/kalloc"
	"github.com/joshuapare/kheap/kalloc/ktype"
)

var (
	planBudget   int
	planVarHeaps int
	planSeed     uint64
)

func init() {
	cmd := newPlanCmd()
	cmd.Flags().IntVar(&planBudget, "budget", -1, "Fixed type zone budget (default from config)")
	cmd.Flags().IntVar(&planVarHeaps, "var-heaps", -1, "Variable sub-heaps (default from config)")
	cmd.Flags().Uint64Var(&planSeed, "seed", 0, "Entropy seed for a reproducible plan (0 = random)")
	rootCmd.AddCommand(cmd)
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <manifest.yaml>...",
		Short: "Classify descriptor manifests and show zone assignments",
		Long: `The plan command boots an allocator from one or more descriptor
manifests and prints where every call site is routed: the heap, the
type zone or variable sub-heap, and the per-class policy table.

Example:
  ktctl plan kernel.yaml
  ktctl plan kernel.yaml driver.yaml --budget 40 --seed 7
  ktctl plan kernel.yaml --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(args)
		},
	}
	return cmd
}

// PlanResult is the JSON form of a plan.
type PlanResult struct {
	Assignments []PlanAssignment `json:"assignments"`
	Policy      []PlanPolicyRow  `json:"policy"`
	Fixed       int              `json:"fixed"`
	Var         int              `json:"var"`
	Assigned    int              `json:"zones_assigned"`
	Wasted      int              `json:"zones_wasted"`
	Degraded    bool             `json:"degraded"`
}

type PlanAssignment struct {
	Site    string `json:"site"`
	Kind    string `json:"kind"`
	Route   string `json:"route"`
	Heap    string `json:"heap"`
	Zone    string `json:"zone,omitempty"`
	SubHeap int    `json:"sub_heap,omitempty"`
}

type PlanPolicyRow struct {
	Size      uint64 `json:"size"`
	TotalSig  int    `json:"total_sig"`
	UniqueSig int    `json:"unique_signatures"`
	Zones     int    `json:"zones"`
}

func runPlan(args []string) error {
	cfg, err := loadConfig(allocOverrides{budget: planBudget, varHeaps: planVarHeaps, seed: planSeed})
	if err != nil {
		return err
	}

	images := make([]ktype.Image, 0, len(args))
	for _, path := range args {
		printVerbose("Loading manifest: %s\n", path)
		img, err := ktype.LoadManifest(path)
		if err != nil {
			return fmt.Errorf("failed to load manifest: %w", err)
		}
		images = append(images, img)
	}

	a, err := kalloc.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Boot(images...)
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	result := buildPlanResult(rep)

	if jsonOut {
		return printJSON(result)
	}
	if quiet {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SITE\tKIND\tROUTE\tHEAP\tZONE")
	for _, as := range result.Assignments {
		zone := as.Zone
		if as.Kind == "var" {
			zone = fmt.Sprintf("sub-heap %d", as.SubHeap)
		} else if zone == "" {
			zone = "(large)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", as.Site, as.Kind, as.Route, as.Heap, zone)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(result.Policy) > 0 {
		printInfo("\nPolicy:\n")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "SIZE\tTOTAL_SIG\tUNIQUE\tZONES\t")
		for _, row := range result.Policy {
			fmt.Fprintf(w, "%d\t%d\t%d\t%d\t\n", row.Size, row.TotalSig, row.UniqueSig, row.Zones)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	printInfo("\n%d fixed, %d variable descriptors; %d type zones, %d wasted\n",
		result.Fixed, result.Var, result.Assigned, result.Wasted)
	if result.Degraded {
		printInfo("Warning: budget %d below two zones per populated class\n", cfg.TypeBudget)
	}
	return nil
}

// buildPlanResult flattens rep, keeping only populated policy rows.
func buildPlanResult(rep *kalloc.BootReport) PlanResult {
	res := PlanResult{
		Fixed:    rep.Fixed,
		Var:      rep.Var,
		Assigned: rep.Assigned,
		Wasted:   rep.Wasted,
		Degraded: rep.Degraded,
	}
	for _, as := range rep.Assignments {
		kind := "fixed"
		if as.Variable {
			kind = "var"
		}
		res.Assignments = append(res.Assignments, PlanAssignment{
			Site:    as.Site,
			Kind:    kind,
			Route:   as.Route.String(),
			Heap:    as.Heap.String(),
			Zone:    as.Zone,
			SubHeap: as.SubHeap,
		})
	}
	for _, row := range rep.Policy {
		if row.UniqueSig == 0 {
			continue
		}
		res.Policy = append(res.Policy, PlanPolicyRow{
			Size:      row.Size,
			TotalSig:  row.TotalSig,
			UniqueSig: row.UniqueSig,
			Zones:     row.Zones,
		})
	}
	return res
}
