package schema

import (
	"context"

	"golang.org/x/sync/errgroup"

	"faultline/internal/tracker"
)

// DefectType is the tracker type name defects are filed as.
const DefectType = "Defect"

// Field is one configurable enumerated defect field: the settings key it is
// configured under and the label the tracker schema gives it.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DefectFields lists the configurable defect fields in display order.
var DefectFields = []Field{
	{Key: "priority", Label: "Priority"},
	{Key: "severity", Label: "Severity"},
	{Key: "defect_category", Label: "Defect Category"},
	{Key: "defect_type", Label: "Defect Type"},
	{Key: "found_in_version", Label: "Found in Version"},
	{Key: "where_found", Label: "Where Found"},
	{Key: "where_introduced", Label: "Where Introduced?"},
	{Key: "similar_defects_method", Label: "Method to identify similar defects"},
}

// LookupField returns the catalog entry whose key or label equals s.
func LookupField(s string) (Field, bool) {
	for _, f := range DefectFields {
		if f.Key == s || f.Label == s {
			return f, true
		}
	}
	return Field{}, false
}

// FieldValues pairs a field with its allowed values.
type FieldValues struct {
	Field  Field    `json:"field"`
	Values []string `json:"values"`
}

// catalogWorkers bounds the number of concurrent field lookups.
const catalogWorkers = 4

// Catalog resolves the allowed values of every DefectFields entry within
// workspace. Results are in catalog order; the first failure cancels the rest.
func (r *Resolver) Catalog(ctx context.Context, workspace tracker.Ref) ([]FieldValues, error) {
	out := make([]FieldValues, len(DefectFields))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogWorkers)
	for i, f := range DefectFields {
		g.Go(func() error {
			vals, err := r.AllowedValues(gctx, DefectType, f.Label, workspace)
			if err != nil {
				return err
			}
			out[i] = FieldValues{Field: f, Values: vals}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
