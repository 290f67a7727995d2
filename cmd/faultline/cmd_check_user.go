package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"faultline/internal/format"
	"faultline/internal/resolve"
)

func newCheckUserCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-user LOGIN",
		Short: "Check that a login can be used as the defect submitter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			c := app.CheckUser(cmd.Context(), args[0])
			fmt.Fprint(cmd.OutOrStdout(), format.Check(args[0], c, opts.mode))
			if c.Severity == resolve.SeverityError {
				return errors.New(c.Message)
			}
			return nil
		},
	}
}
