package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"faultline/internal/format"
)

func newProjectsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List the projects of the configured workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			names, err := app.Projects(cmd.Context())
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), format.Projects(app.Settings().Workspace, names, opts.mode))
			return nil
		},
	}
}
