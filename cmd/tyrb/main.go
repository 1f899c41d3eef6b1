package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tyrb/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tyrb",
	Short: "Typed Ruby dialect language server",
	Long:  `tyrb is an incremental typechecker and language server for a typed Ruby dialect`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().Int("jobs", 0, "worker pool size (0 = all cores)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics per file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
