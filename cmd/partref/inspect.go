package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"partref/gen"
)

var inspectSuffix string

func init() {
	inspectCmd.Flags().StringVar(&inspectSuffix, "suffix", "", "output file suffix (default "+gen.DefaultSuffix+")")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [dir...]",
	Short: "List part-tagged structs without generating code",
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := args
		if len(roots) == 0 {
			roots = []string{"."}
		}

		aggName := color.New(color.FgCyan, color.Bold)
		partName := color.New(color.FgGreen)
		excludedMark := color.New(color.FgYellow)
		if !colorEnabled(cmd, os.Stdout) {
			aggName.DisableColor()
			partName.DisableColor()
			excludedMark.DisableColor()
		}

		out := cmd.OutOrStdout()
		total := 0
		for _, root := range roots {
			files, err := gen.ListGoFiles(root, inspectSuffix)
			if err != nil {
				return err
			}
			for _, path := range files {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := gen.ScanFile(path, src)
				if err != nil {
					return err
				}
				if len(res.Aggregates) == 0 {
					continue
				}
				fmt.Fprintf(out, "%s (package %s)\n", path, res.Package)
				for _, agg := range res.Aggregates {
					total++
					fmt.Fprintf(out, "  %s\n", aggName.Sprint(agg.Name))
					for _, f := range agg.Fields {
						fmt.Fprintf(out, "    %s: %s (%s)\n", partName.Sprint(f.Part), f.Name, f.Type)
					}
					for _, name := range agg.Excluded {
						fmt.Fprintf(out, "    %s: %s\n", excludedMark.Sprint("excluded"), name)
					}
				}
			}
		}
		fmt.Fprintf(out, "%d aggregates\n", total)
		return nil
	},
}
