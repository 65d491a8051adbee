package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/kalloc/sizeclass"
)

var classesHeap string

func init() {
	cmd := newClassesCmd()
	cmd.Flags().StringVar(&classesHeap, "heap", "default", "Ladder to print: default, data or var")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Print a size-class ladder",
		Long: `The classes command prints the size classes of a heap.

Example:
  ktctl classes
  ktctl classes --heap data
  ktctl classes --heap var --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
	return cmd
}

// ClassInfo is one row of the classes output.
type ClassInfo struct {
	Index   int    `json:"index"`
	Size    uint64 `json:"size"`
	Caching bool   `json:"caching"`
	Name    string `json:"name,omitempty"`
}

func ladderFor(heap string) ([]ClassInfo, error) {
	var out []ClassInfo
	switch heap {
	case "default", "kext":
		for i, e := range sizeclass.Default() {
			out = append(out, ClassInfo{Index: i, Size: e.Size, Caching: e.Caching, Name: e.Name})
		}
	case "data":
		for i, e := range sizeclass.Data() {
			out = append(out, ClassInfo{Index: i, Size: e.Size, Caching: e.Caching, Name: e.Name})
		}
	case "var":
		def := sizeclass.MustTable(sizeclass.Default())
		v, err := sizeclass.NewVarLadder(def.LastSize())
		if err != nil {
			return nil, err
		}
		for i, size := range v.Sizes() {
			out = append(out, ClassInfo{Index: i, Size: size})
		}
	default:
		return nil, fmt.Errorf("unknown heap %q (want default, data or var)", heap)
	}
	return out, nil
}

func runClasses() error {
	rows, err := ladderFor(classesHeap)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rows)
	}
	if quiet {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tSIZE\tCACHING\tNAME")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%d\t%t\t%s\n", r.Index, r.Size, r.Caching, r.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printInfo("\n%d classes\n", len(rows))
	return nil
}
