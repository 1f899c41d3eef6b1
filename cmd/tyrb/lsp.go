package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tyrb/internal/engine"
	"tyrb/internal/lsp"
	"tyrb/internal/project"
)

var lspCmd = &cobra.Command{
	Use:   "lsp [dir]",
	Short: "Run the language server over stdio",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startDir := "."
		if len(args) == 1 {
			startDir = args[0]
		}
		manifest, err := project.LoadFromDir(startDir)
		if err != nil {
			return err
		}
		jobs, _ := cmd.Flags().GetInt("jobs")
		if jobs == 0 {
			jobs = manifest.Config.Server.Jobs
		}
		maxDiagnostics, _ := cmd.Flags().GetInt("max-diagnostics")
		if manifest.Config.Server.MaxDiagnostics > 0 {
			maxDiagnostics = manifest.Config.Server.MaxDiagnostics
		}
		if isTerminal(os.Stdin) {
			fmt.Fprintln(os.Stderr, "tyrb lsp: expecting a JSON-RPC client on stdin")
		}
		eng := engine.New(engine.Options{
			Jobs:           jobs,
			MaxDiagnostics: maxDiagnostics,
			SourceRoots:    manifest.Config.Server.SourceRoots,
			Silenced:       manifest.Config.Server.SilencedCodes(),
			Logf: func(format string, args ...any) {
				fmt.Fprintf(os.Stderr, "engine: "+format+"\n", args...)
			},
		})
		server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{Engine: eng})
		err = server.Run(context.Background())
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			os.Exit(1)
		}
		return err
	},
}
