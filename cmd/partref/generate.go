package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"partref/gen"
	"partref/internal/ui"
)

var (
	generateSuffix      string
	generateJobs        int
	generateNoCache     bool
	generateDryRun      bool
	generateUI          bool
	generatePartsImport string
)

func init() {
	generateCmd.Flags().StringVar(&generateSuffix, "suffix", "", "output file suffix (default "+gen.DefaultSuffix+")")
	generateCmd.Flags().IntVar(&generateJobs, "jobs", 0, "max parallel workers (default GOMAXPROCS)")
	generateCmd.Flags().BoolVar(&generateNoCache, "no-cache", false, "disable the scan cache")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "scan and render without writing files")
	generateCmd.Flags().BoolVar(&generateUI, "ui", false, "show interactive progress")
	generateCmd.Flags().StringVar(&generatePartsImport, "parts-import", "", "import path of the parts package in generated code")
}

var generateCmd = &cobra.Command{
	Use:   "generate [dir...]",
	Short: "Generate part registries for tagged structs",
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")

		roots := args
		opts := gen.Options{
			Suffix:      generateSuffix,
			Jobs:        generateJobs,
			PartsImport: generatePartsImport,
			DryRun:      generateDryRun,
		}
		useCache := !generateNoCache

		if len(roots) == 0 {
			manifest, ok, err := loadProjectManifest(".")
			if err != nil {
				return err
			}
			if ok {
				roots, err = resolveRoots(manifest)
				if err != nil {
					return err
				}
				if opts.Suffix == "" {
					opts.Suffix = manifest.Config.Generate.Suffix
				}
				if opts.Jobs == 0 {
					opts.Jobs = manifest.Config.Generate.Jobs
				}
				if opts.PartsImport == "" {
					opts.PartsImport = manifest.Config.Generate.PartsImport
				}
				if !cmd.Flags().Changed("no-cache") {
					useCache = manifest.Config.Generate.Cache
				}
			} else {
				roots = []string{"."}
			}
		}

		if useCache {
			cache, err := gen.OpenCache("partref")
			if err != nil {
				return fmt.Errorf("failed to open scan cache: %w", err)
			}
			opts.Cache = cache
		}

		ctx := cmd.Context()
		var results []gen.FileResult
		for _, root := range roots {
			var (
				res []gen.FileResult
				err error
			)
			if generateUI && isTerminal(os.Stdout) {
				res, err = runGenerateWithUI(ctx, root, opts)
			} else {
				res, err = gen.GenerateDir(ctx, root, opts)
			}
			results = append(results, res...)
			if err != nil {
				return err
			}
		}

		failed := 0
		for _, r := range results {
			if r.Failed() {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Path, r.Err)
				continue
			}
			if r.Output != "" && !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d aggregates)\n", r.Path, r.Output, r.Aggregates)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(results))
		}
		return nil
	},
}

type generateOutcome struct {
	results []gen.FileResult
	err     error
}

func runGenerateWithUI(ctx context.Context, root string, opts gen.Options) ([]gen.FileResult, error) {
	files, err := gen.ListGoFiles(root, opts.Suffix)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	events := make(chan gen.Event, 256)
	outcomeCh := make(chan generateOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Events = events
		res, err := gen.GenerateDir(ctx, root, optsCopy)
		outcomeCh <- generateOutcome{results: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("generating part registries", files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
