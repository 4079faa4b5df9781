package main

import "github.com/spf13/cobra"

func newWriteUserListCmd() *cobra.Command {
	var outPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "write-user-list",
		Short: "Write the current userlist to a file (spec: write_user_metadata)",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGame()
			if err != nil {
				return err
			}
			if err := g.WriteUserMetadata(outPath, overwrite); err != nil {
				return err
			}
			say("wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "userlist.yaml", "output path")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	return cmd
}

func newWriteMinimalListCmd() *cobra.Command {
	var outPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "write-minimal-list",
		Short: "Write a trimmed name/tag/dirty-only masterlist to a file (spec: write_minimal_list)",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := buildGame()
			if err != nil {
				return err
			}
			if err := g.WriteMinimalList(outPath, overwrite); err != nil {
				return err
			}
			say("wrote %s", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "minimal.yaml", "output path")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing file")
	return cmd
}
