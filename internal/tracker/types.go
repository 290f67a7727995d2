package tracker

import (
	"fmt"
	"strings"
)

// Ref is a stable reference to one tracker object in relative form,
// e.g. "/workspace/41529001". Use ParseRef to normalize what the service returns.
type Ref string

// ParseRef normalizes a reference as returned by the service (absolute URL,
// optional ".js" suffix or query string) to its relative "/<type>/<id>" form.
// Strings with fewer than two path segments are returned unchanged.
func ParseRef(raw string) Ref {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".js")
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[len(parts)-1] == "" || parts[len(parts)-2] == "" {
		return Ref(raw)
	}
	return Ref("/" + strings.ToLower(parts[len(parts)-2]) + "/" + parts[len(parts)-1])
}

// ObjectID returns the substring after the final "/".
func (r Ref) ObjectID() string {
	s := string(r)
	return s[strings.LastIndex(s, "/")+1:]
}

// Type returns the object type segment ("defect" for "/defect/12").
func (r Ref) Type() string {
	s := strings.TrimSuffix(string(r), "/"+r.ObjectID())
	return s[strings.LastIndex(s, "/")+1:]
}

func (r Ref) String() string { return string(r) }

// Record is one object as exchanged with the service: field name to value,
// where a value is a string, number, bool, nested object or collection.
type Record map[string]any

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Ref returns the record's normalized "_ref", or "" when it has none.
func (r Record) Ref() Ref {
	raw := r.String("_ref")
	if raw == "" {
		return ""
	}
	return ParseRef(raw)
}

// Collection returns the URL of a nested collection field such as
// "Attributes" or "AllowedValues".
func (r Record) Collection(field string) (string, bool) {
	var nested map[string]any
	switch v := r[field].(type) {
	case map[string]any:
		nested = v
	case Record:
		nested = v
	default:
		return "", false
	}
	u, _ := nested["_ref"].(string)
	return u, u != ""
}

// Filter is a single query condition rendered in the service's query syntax.
type Filter struct {
	Field string
	Op    string
	Value string
}

// Eq returns an equality filter.
func Eq(field, value string) *Filter {
	return &Filter{Field: field, Op: "=", Value: value}
}

// String renders the filter, e.g. (Name = "Platform Team").
func (f *Filter) String() string {
	v := strings.ReplaceAll(f.Value, `"`, `\"`)
	return fmt.Sprintf(`(%s %s "%s")`, f.Field, f.Op, v)
}

// QueryRequest selects records of a Type, or the members of a Collection URL
// taken from a parent record. Exactly one of Type and Collection is set.
type QueryRequest struct {
	Type       string
	Collection string
	Filter     *Filter
	Workspace  Ref
	Fetch      []string
}

// QueryResult is the outcome of a query the service accepted for processing.
type QueryResult struct {
	Success          bool
	Results          []Record
	Errors           []string
	Warnings         []string
	TotalResultCount int
}

// OperationResult is the outcome of a create or update.
type OperationResult struct {
	Success  bool
	Object   Record
	Errors   []string
	Warnings []string
}

// --- Wire envelopes ---

type queryEnvelope struct {
	QueryResult struct {
		Errors           []string `json:"Errors"`
		Warnings         []string `json:"Warnings"`
		TotalResultCount int      `json:"TotalResultCount"`
		StartIndex       int      `json:"StartIndex"`
		PageSize         int      `json:"PageSize"`
		Results          []Record `json:"Results"`
	} `json:"QueryResult"`
}

type operationBody struct {
	Errors   []string `json:"Errors"`
	Warnings []string `json:"Warnings"`
	Object   Record   `json:"Object"`
}

type createEnvelope struct {
	CreateResult operationBody `json:"CreateResult"`
}

type updateEnvelope struct {
	OperationResult operationBody `json:"OperationResult"`
}

func (b operationBody) result() *OperationResult {
	return &OperationResult{
		Success:  len(b.Errors) == 0,
		Object:   b.Object,
		Errors:   b.Errors,
		Warnings: b.Warnings,
	}
}
