package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/kalloc"
	"github.com/joshuapare/kheap/kalloc/ktype"
)

var (
	selftestBudget int
	selftestSeed   uint64
)

func init() {
	cmd := newSelftestCmd()
	cmd.Flags().IntVar(&selftestBudget, "budget", kalloc.DefaultTypeBudget, "Budget for the policy check")
	cmd.Flags().Uint64Var(&selftestSeed, "seed", 0, "Entropy seed (0 = random)")
	rootCmd.AddCommand(cmd)
}

func newSelftestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest [manifest.yaml]...",
		Short: "Boot an allocator and run its self tests",
		Long: `The selftest command boots an allocator (from the given manifests,
or with no descriptors) and runs the built-in checks: the budget policy,
zone bindings, data redirection and a realloc scenario.

Example:
  ktctl selftest
  ktctl selftest kernel.yaml --budget 120 --seed 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(args)
		},
	}
	return cmd
}

func runSelftest(args []string) error {
	cfg, err := loadConfig(allocOverrides{budget: -1, varHeaps: -1, seed: selftestSeed})
	if err != nil {
		return err
	}

	var images []ktype.Image
	for _, path := range args {
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

	if _, err := a.Boot(images...); err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	printVerbose("Booted %d zones\n", len(a.Zones()))

	if err := a.SelfTest(selftestBudget); err != nil {
		printError("%v\n", err)
		return fmt.Errorf("self test failed")
	}

	if jsonOut {
		return printJSON(map[string]any{"passed": true, "zones": len(a.Zones())})
	}
	printInfo("self test passed (%d zones)\n", len(a.Zones()))
	return nil
}
