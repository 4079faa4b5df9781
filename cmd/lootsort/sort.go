package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/loot-sort/loot/internal/plugin"
	"github.com/spf13/cobra"
)

func newSortCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Compute a load order for every installed plugin and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGame()
			if err != nil {
				return err
			}

			names, err := discoverPlugins(g.DataPath)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				warn("no plugins found in %s", g.DataPath)
				return nil
			}
			say("scanning %d plugins (%s)", len(names), humanize.Bytes(totalPluginSize(g.DataPath, names)))

			result, err := g.SortPlugins(context.Background(), names)
			if err != nil {
				return err
			}

			printDiagnostics(result.Diagnostics)
			for _, name := range result.Order {
				say(name)
			}

			if apply {
				if err := g.SetLoadOrder(result.Order); err != nil {
					return err
				}
				say("load order written")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "persist the computed order via the load-order collaborator")
	return cmd
}

// discoverPlugins lists every plugin-extension file directly under
// dataPath, resolving ".ghost" suffixes to their logical name (spec
// §4.1's scanner scope, reimplemented here only at the
// which-files-exist level — parsing itself stays in internal/plugin).
func discoverPlugins(dataPath string) ([]string, error) {
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		logical := strings.TrimSuffix(name, ".ghost")
		if !plugin.IsPluginFile(logical) {
			continue
		}
		key := plugin.FoldName(logical)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, logical)
	}
	return names, nil
}

// totalPluginSize sums the on-disk size of each named plugin under
// dataPath, resolving the ".ghost" suffix the same way discoverPlugins
// does. Missing files are skipped rather than erroring — this is only
// used for the scan-summary line, not anything load-bearing.
func totalPluginSize(dataPath string, names []string) uint64 {
	var total uint64
	for _, name := range names {
		path := filepath.Join(dataPath, name)
		info, err := os.Stat(path)
		if err != nil {
			info, err = os.Stat(path + ".ghost")
			if err != nil {
				continue
			}
		}
		total += uint64(info.Size())
	}
	return total
}
