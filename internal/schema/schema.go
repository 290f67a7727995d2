// Package schema discovers the legal values of enumerated fields on tracker
// object types, and lists the projects of a workspace.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"faultline/internal/logging"
	"faultline/internal/tracker"
)

// QueryError reports a schema query the service rejected, or a type
// definition that does not exist. Errors holds the messages verbatim.
type QueryError struct {
	Op     string
	Errors []string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: schema query failed: %s", e.Op, strings.Join(e.Errors, "; "))
}

// IsQueryError reports whether err is or wraps a *QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// Resolver answers schema questions. It holds no cache: every call goes to
// the tracker in a session of its own.
type Resolver struct {
	opener tracker.Opener
	log    *slog.Logger
}

// New returns a Resolver.
func New(opener tracker.Opener) *Resolver {
	return &Resolver{opener: opener, log: logging.New("schema")}
}

// AllowedValues returns the allowed values of the attribute labelled
// fieldLabel on objectType within workspace, sorted ascending with any
// quote characters removed.
//
// A label that matches no attribute yields an empty slice, not an error, and
// so does a matched attribute with no AllowedValues collection (a free-text
// field). The first attribute whose label matches wins.
func (r *Resolver) AllowedValues(ctx context.Context, objectType, fieldLabel string, workspace tracker.Ref) ([]string, error) {
	sess, err := r.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("allowed values of %s.%s: %w", objectType, fieldLabel, err)
	}
	defer sess.Close()

	typeDef, err := r.typeDefinition(ctx, sess, objectType, workspace)
	if err != nil {
		return nil, err
	}
	attrsURL, ok := typeDef.Collection("Attributes")
	if !ok {
		return nil, &QueryError{
			Op:     "type definition " + objectType,
			Errors: []string{fmt.Sprintf("type definition %q has no Attributes collection", objectType)},
		}
	}

	attrs, err := sess.Query(ctx, &tracker.QueryRequest{
		Collection: attrsURL,
		Fetch:      []string{"AllowedValues", "ElementName", "Name"},
	})
	if err != nil {
		return nil, fmt.Errorf("attributes of %s: %w", objectType, err)
	}
	if !attrs.Success {
		return nil, &QueryError{Op: "attributes of " + objectType, Errors: attrs.Errors}
	}

	attr, found := findAttribute(attrs.Results, fieldLabel)
	if !found {
		r.log.DebugContext(ctx, "no attribute with label", "type", objectType, "label", fieldLabel)
		return []string{}, nil
	}
	valuesURL, ok := attr.Collection("AllowedValues")
	if !ok {
		return []string{}, nil
	}

	vals, err := sess.Query(ctx, &tracker.QueryRequest{
		Collection: valuesURL,
		Fetch:      []string{"StringValue"},
	})
	if err != nil {
		return nil, fmt.Errorf("allowed values of %s.%s: %w", objectType, fieldLabel, err)
	}
	if !vals.Success {
		return nil, &QueryError{Op: "allowed values of " + fieldLabel, Errors: vals.Errors}
	}

	out := make([]string, 0, len(vals.Results))
	for _, rec := range vals.Results {
		out = append(out, stripQuotes(rec.String("StringValue")))
	}
	sort.Strings(out)
	return out, nil
}

// ListProjects returns the names of every project in workspace, sorted ascending.
func (r *Resolver) ListProjects(ctx context.Context, workspace tracker.Ref) ([]string, error) {
	sess, err := r.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer sess.Close()

	res, err := sess.Query(ctx, &tracker.QueryRequest{
		Type:      "project",
		Workspace: workspace,
		Fetch:     []string{"Name"},
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if !res.Success {
		return nil, &QueryError{Op: "list projects of " + string(workspace), Errors: res.Errors}
	}

	names := make([]string, 0, len(res.Results))
	for _, rec := range res.Results {
		names = append(names, stripQuotes(rec.String("Name")))
	}
	sort.Strings(names)
	return names, nil
}

func (r *Resolver) typeDefinition(ctx context.Context, sess tracker.Session, objectType string, workspace tracker.Ref) (tracker.Record, error) {
	res, err := sess.Query(ctx, &tracker.QueryRequest{
		Type:      "typedefinition",
		Workspace: workspace,
		Filter:    tracker.Eq("Name", objectType),
		Fetch:     []string{"ObjectID", "Attributes"},
	})
	if err != nil {
		return nil, fmt.Errorf("type definition %s: %w", objectType, err)
	}
	if !res.Success {
		return nil, &QueryError{Op: "type definition " + objectType, Errors: res.Errors}
	}
	if len(res.Results) == 0 {
		return nil, &QueryError{
			Op:     "type definition " + objectType,
			Errors: []string{fmt.Sprintf("type definition %q not found", objectType)},
		}
	}
	return res.Results[0], nil
}

func findAttribute(attrs []tracker.Record, label string) (tracker.Record, bool) {
	for _, a := range attrs {
		if a.String("Name") == label {
			return a, true
		}
	}
	return nil, false
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
