package format

import (
	"fmt"
	"strings"

	"faultline/internal/defect"
	"faultline/internal/display"
	"faultline/internal/resolve"
	"faultline/internal/schema"
)

const valueWidth = 80

// Submission renders the outcome of one submission: the values the defect
// was filed with, then the outcome and any service messages.
func Submission(res *defect.Result, m Mode) string {
	var sb strings.Builder

	if res.Outcome != defect.NotCreated {
		fields := NewTable(m)
		fields.Title("Defect values")
		fields.Header("Field", "Value")
		for _, f := range res.Fields() {
			fields.Row(f.Name, OrDash(Truncate(f.Value, 2*valueWidth)))
		}
		fields.Columns(ColumnConfig{Number: 2, MaxWidth: valueWidth})
		sb.WriteString(fields.String())
		sb.WriteString("\n\n")
	}

	out := NewTable(m)
	out.Header("Outcome", "Detail")
	out.Row(display.OutcomeWithCode(string(res.Outcome)), res.Summary())
	if res.Defect != "" {
		out.Row("defect", string(res.Defect))
	}
	if res.Tag != "" {
		out.Row("tag "+defect.TagName, fmt.Sprintf("%s %s", BoolMark(res.Tag == defect.TagAttached), res.Tag))
	}
	for _, e := range res.Errors {
		out.Row("error", e)
	}
	for _, e := range res.TagErrors {
		out.Row("tag error", e)
	}
	out.Columns(ColumnConfig{Number: 2, MaxWidth: valueWidth})
	sb.WriteString(out.String())
	sb.WriteByte('\n')
	return sb.String()
}

// Values renders the allowed values of one field, one per row.
func Values(objectType, label string, values []string, m Mode) string {
	tb := NewTable(m)
	tb.Title(objectType + "." + label)
	tb.Header("#", "Allowed value")
	for i, v := range values {
		tb.Row(i+1, OrDash(v))
	}
	tb.Footer("", fmt.Sprintf("%d values", len(values)))
	tb.Columns(ColumnConfig{Number: 1, Align: AlignRight})
	return tb.String() + "\n"
}

// Catalog renders every configurable defect field with its settings key and
// allowed values.
func Catalog(fields []schema.FieldValues, m Mode) string {
	tb := NewTable(m)
	tb.Header("Key", "Field", "Allowed values")
	for _, fv := range fields {
		vals := "(none)"
		if len(fv.Values) > 0 {
			vals = strings.Join(fv.Values, ", ")
		}
		tb.Row(fv.Field.Key, fv.Field.Label, vals)
	}
	tb.Columns(ColumnConfig{Number: 3, MaxWidth: valueWidth})
	return tb.String() + "\n"
}

// Projects renders a list of project names.
func Projects(workspace string, names []string, m Mode) string {
	tb := NewTable(m)
	tb.Title("Projects in " + workspace)
	tb.Header("Project")
	for _, n := range names {
		tb.Row(n)
	}
	tb.Footer(fmt.Sprintf("%d projects", len(names)))
	return tb.String() + "\n"
}

// Check renders a login check verdict.
func Check(login string, c resolve.Check, m Mode) string {
	tb := NewTable(m)
	tb.Header("Login", "Verdict", "Message")
	tb.Row(OrDash(login), display.Verdict(string(c.Severity)), OrDash(c.Message))
	return tb.String() + "\n"
}
