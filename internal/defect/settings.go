package defect

import "faultline/internal/tracker"

// Settings holds the per-job choices a defect is filed with. Enumerated
// fields carry the tracker's allowed values verbatim; see schema.DefectFields.
type Settings struct {
	Workspace            string `yaml:"workspace" json:"workspace" split_words:"true"`
	Project              string `yaml:"project" json:"project" split_words:"true"`
	Priority             string `yaml:"priority" json:"priority" split_words:"true"`
	Severity             string `yaml:"severity" json:"severity" split_words:"true"`
	SubmittedBy          string `yaml:"submitted_by" json:"submitted_by" split_words:"true"`
	DefectCategory       string `yaml:"defect_category" json:"defect_category" split_words:"true"`
	DefectType           string `yaml:"defect_type" json:"defect_type" split_words:"true"`
	FoundInVersion       string `yaml:"found_in_version" json:"found_in_version" split_words:"true"`
	WhereFound           string `yaml:"where_found" json:"where_found" split_words:"true"`
	WhereIntroduced      string `yaml:"where_introduced" json:"where_introduced" split_words:"true"`
	SimilarDefectsMethod string `yaml:"similar_defects_method" json:"similar_defects_method" split_words:"true"`
	TitlePrefix          string `yaml:"title_prefix" json:"title_prefix" split_words:"true"`
	CreateIfUnstable     bool   `yaml:"create_if_unstable" json:"create_if_unstable" split_words:"true"`
}

// payload builds the create body from resolved references and the settings'
// enumerated and free-text fields. One user reference fills all three
// person fields.
func (s Settings) payload(title, description string, refs resolvedRefs) tracker.Record {
	return tracker.Record{
		"Name":                             title,
		"Description":                      description,
		"Workspace":                        string(refs.workspace),
		"Project":                          string(refs.project),
		"Priority":                         s.Priority,
		"Severity":                         s.Severity,
		"SubmittedBy":                      string(refs.user),
		"Owner":                            string(refs.user),
		"Author":                           string(refs.user),
		"c_DefectCategory":                 s.DefectCategory,
		"c_DefectType":                     s.DefectType,
		"c_FoundinVersion":                 s.FoundInVersion,
		"c_WhereFound":                     s.WhereFound,
		"c_WhereIntroduced":                s.WhereIntroduced,
		"c_Methodtoidentifysimilardefects": s.SimilarDefectsMethod,
	}
}
