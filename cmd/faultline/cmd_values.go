package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"faultline/internal/format"
	"faultline/internal/schema"
)

type valuesFlags struct {
	objectType string
	field      string
}

func newValuesCmd(opts *rootOptions) *cobra.Command {
	var fl valuesFlags
	cmd := &cobra.Command{
		Use:   "values",
		Short: "List the allowed values of enumerated tracker fields",
		Long: `Without --field, lists every configurable defect field with its settings key
and allowed values. With --field, lists the values of that one field; the
field may be given by tracker label ("Where Found") or settings key
(where_found).

A label the type does not define yields an empty list, not an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValues(cmd, opts, &fl)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.objectType, "type", "t", schema.DefectType, "Tracker type name")
	f.StringVarP(&fl.field, "field", "f", "", "Field label or settings key")
	return cmd
}

func runValues(cmd *cobra.Command, opts *rootOptions, fl *valuesFlags) error {
	if fl.field == "" && fl.objectType != schema.DefectType {
		return fmt.Errorf("--field is required for type %s", fl.objectType)
	}
	app, err := newApp(opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if fl.field == "" {
		fields, err := app.Catalog(cmd.Context())
		if err != nil {
			return fmt.Errorf("defect field catalog: %w", err)
		}
		fmt.Fprint(out, format.Catalog(fields, opts.mode))
		return nil
	}

	label := fl.field
	if f, ok := schema.LookupField(label); ok {
		label = f.Label
	}
	values, err := app.AllowedValues(cmd.Context(), fl.objectType, label)
	if err != nil {
		return fmt.Errorf("allowed values: %w", err)
	}
	fmt.Fprint(out, format.Values(fl.objectType, label, values, opts.mode))
	return nil
}
