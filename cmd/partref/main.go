package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"partref/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "partref",
	Short: "Partial reference registry generator",
	Long:  `partref scans Go source for part-tagged structs and generates their part registries`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves the persistent --color flag against the output.
func colorEnabled(cmd *cobra.Command, f *os.File) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(f)
	}
}
