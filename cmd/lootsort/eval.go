package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "Re-evaluate masterlist/userlist conditions and print general messages and per-plugin warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGame()
			if err != nil {
				return err
			}

			names, err := discoverPlugins(g.DataPath)
			if err != nil {
				return err
			}
			if err := g.Scanner.Load(context.Background(), names, true, g.Cache); err != nil {
				warn("%v", err)
			}

			general, err := g.GetGeneralMessages(true)
			if err != nil {
				return err
			}
			printMessages(general)
			printMessages(g.EvalLists())

			return nil
		},
	}
}
