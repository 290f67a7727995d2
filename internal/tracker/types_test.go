package tracker

import (
	"encoding/json"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw  string
		want Ref
	}{
		{"https://rally1.rallydev.com/slm/webservice/v2.0/workspace/41529001", "/workspace/41529001"},
		{"https://rally1.rallydev.com/slm/webservice/v2.0/Project/52.js", "/project/52"},
		{"/defect/777", "/defect/777"},
		{"/defect/777/", "/defect/777"},
		{"https://host/slm/webservice/v2.0/user/9?fetch=true", "/user/9"},
		{"opaque", "opaque"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseRef(tt.raw); got != tt.want {
				t.Errorf("ParseRef(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseRef_SameObjectComparesEqual(t *testing.T) {
	a := ParseRef("https://rally1.rallydev.com/slm/webservice/v2.0/workspace/7")
	b := ParseRef("/workspace/7")
	if a != b {
		t.Errorf("%q != %q", a, b)
	}
}

func TestRef_ObjectIDAndType(t *testing.T) {
	r := Ref("/defect/12345")
	if r.ObjectID() != "12345" {
		t.Errorf("ObjectID = %q", r.ObjectID())
	}
	if r.Type() != "defect" {
		t.Errorf("Type = %q", r.Type())
	}
}

func TestFilter_String(t *testing.T) {
	tests := []struct {
		filter *Filter
		want   string
	}{
		{Eq("Name", "Defect"), `(Name = "Defect")`},
		{Eq("Name", `Say "hi"`), `(Name = "Say \"hi\"")`},
		{&Filter{Field: "Name", Op: "contains", Value: "BRM"}, `(Name contains "BRM")`},
	}
	for _, tt := range tests {
		if got := tt.filter.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestRecord_Collection(t *testing.T) {
	var rec Record
	data := `{"Name":"Severity","AllowedValues":{"_ref":"https://host/slm/webservice/v2.0/AttributeDefinition/3/AllowedValues","Count":4},"Flat":"x"}`
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		t.Fatal(err)
	}
	u, ok := rec.Collection("AllowedValues")
	if !ok || u != "https://host/slm/webservice/v2.0/AttributeDefinition/3/AllowedValues" {
		t.Errorf("Collection = %q, %v", u, ok)
	}
	if _, ok := rec.Collection("Flat"); ok {
		t.Error("expected no collection for a string field")
	}
	if _, ok := rec.Collection("Missing"); ok {
		t.Error("expected no collection for a missing field")
	}
	if rec.Ref() != "" {
		t.Errorf("expected empty Ref, got %q", rec.Ref())
	}
}
