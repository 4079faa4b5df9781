// Command lootsort is the CLI entrypoint for the load-order sorting
// engine's Database contract (spec §4.7). It never implements a GUI or
// an RPC surface — each subcommand drives one façade operation directly
// and renders the result to the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/loot-sort/loot/internal/game"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lootsort",
		Short:         "Load-order optimiser for Bethesda-family plugin data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSortCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newWriteUserListCmd())
	root.AddCommand(newWriteMinimalListCmd())

	return root
}

// buildGame constructs a Game from the process's configuration, wiring a
// fileListLoadOrder as the load-order collaborator (spec §6) — the
// per-game plugins.txt/loadorder.txt format itself is out of scope, so
// the CLI's own collaborator is a plain one-name-per-line file, not a
// reimplementation of any specific game's format.
func buildGame() (*game.Game, *game.Config, error) {
	cfg, err := game.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	lo := newFileListLoadOrder(cfg.LocalPath)
	g := game.NewGame(cfg.DataPath, cfg.MainMasterName, cfg.GameType, lo, nil)

	masterlistPath, userlistPath := cfg.MasterlistPath, cfg.UserlistPath
	if !fileExists(masterlistPath) {
		masterlistPath = ""
	}
	if !fileExists(userlistPath) {
		userlistPath = ""
	}
	if err := g.LoadLists(masterlistPath, userlistPath); err != nil {
		return nil, nil, fmt.Errorf("load metadata lists: %w", err)
	}

	return g, cfg, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
