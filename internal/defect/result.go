package defect

import (
	"fmt"
	"strconv"
	"strings"

	"faultline/internal/tracker"
)

// Outcome is the terminal state of one submission.
type Outcome string

const (
	NotCreated       Outcome = "not_created"
	Created          Outcome = "created"
	CreationFailed   Outcome = "creation_failed"
	ResolutionFailed Outcome = "resolution_failed"
	UnexpectedError  Outcome = "unexpected_error"
)

// TagStatus reports the best-effort tagging step that follows a creation.
type TagStatus string

const (
	TagAttached TagStatus = "attached"
	TagFailed   TagStatus = "failed"
)

// Result is the report of one submission. It is informational: no outcome
// is meant to fail the build that triggered it.
type Result struct {
	Outcome     Outcome     `json:"outcome"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Workspace   tracker.Ref `json:"workspace,omitempty"`
	Project     tracker.Ref `json:"project,omitempty"`
	User        tracker.Ref `json:"user,omitempty"`
	Defect      tracker.Ref `json:"defect,omitempty"`
	DetailURL   string      `json:"detail_url,omitempty"`
	Tag         TagStatus   `json:"tag,omitempty"`

	// Errors holds the service's messages for a rejected creation or lookup.
	Errors []string `json:"errors,omitempty"`
	// TagErrors holds the messages of a failed tagging step.
	TagErrors []string `json:"tag_errors,omitempty"`
	// Message is a one-line account of Cause.
	Message string `json:"message,omitempty"`
	Cause   error  `json:"-"`

	settings Settings
	build    Build
}

// DefectCreated reports whether a defect now exists in the tracker.
func (r *Result) DefectCreated() bool { return r.Outcome == Created }

// FieldValue is one line of the "defect will be created with" listing.
type FieldValue struct {
	Name  string
	Value string
}

// Fields lists the values the defect was, or would have been, created with.
// Unresolved references fall back to the configured names.
func (r *Result) Fields() []FieldValue {
	s := r.settings
	orName := func(ref tracker.Ref, name string) string {
		if ref != "" {
			return string(ref)
		}
		return name
	}
	return []FieldValue{
		{"Title", r.Title},
		{"Description", r.Description},
		{"Workspace", orName(r.Workspace, s.Workspace)},
		{"Project", orName(r.Project, s.Project)},
		{"Priority", s.Priority},
		{"Severity", s.Severity},
		{"SubmittedBy", s.SubmittedBy},
		{"DefectCategory", s.DefectCategory},
		{"DefectType", s.DefectType},
		{"FoundInVersion", s.FoundInVersion},
		{"WhereFound", s.WhereFound},
		{"WhereIntroduced", s.WhereIntroduced},
		{"Methodtoidentifysimilardefects", s.SimilarDefectsMethod},
		{"Status of Build", string(r.build.Status)},
		{"Create if unstable", strconv.FormatBool(s.CreateIfUnstable)},
	}
}

// Summary renders the result as one human-readable line.
func (r *Result) Summary() string {
	switch r.Outcome {
	case NotCreated:
		return "No defect created"
	case Created:
		if r.Tag == TagFailed {
			return fmt.Sprintf("Created new defect %s; unable to tag it with %s: %s",
				r.DetailURL, TagName, strings.Join(r.TagErrors, "; "))
		}
		return fmt.Sprintf("Created new defect %s", r.DetailURL)
	case CreationFailed:
		return "Unable to create defect: " + strings.Join(r.Errors, "; ")
	case ResolutionFailed:
		return "No defect created: " + r.Message
	default:
		return "Exception when attempting to create defect: " + r.Message +
			". Ensure the tracker API key is configured correctly. No defect created"
	}
}

// DetailURL returns the tracker page of the defect filed in project.
func DetailURL(baseURL string, project, defect tracker.Ref) string {
	return strings.TrimRight(baseURL, "/") + "/#/" + project.ObjectID() + "/detail/defect/" + defect.ObjectID()
}
