// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI report tables.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

// --- Submission outcomes ---

var outcomes = map[string]string{
	"not_created":       "Not filed",
	"created":           "Filed",
	"creation_failed":   "Rejected by tracker",
	"resolution_failed": "Lookup failed",
	"unexpected_error":  "Unexpected error",
}

// Outcome returns the human-readable name for a submission outcome code.
// Unknown codes are returned as-is.
func Outcome(code string) string {
	if name, ok := outcomes[code]; ok {
		return name
	}
	return code
}

// OutcomeWithCode returns "Filed (created)" format.
func OutcomeWithCode(code string) string {
	if name, ok := outcomes[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Check verdicts ---

var verdicts = map[string]string{
	"ok":      "OK",
	"warning": "Warning",
	"error":   "Error",
}

// Verdict returns the human-readable name for a check severity.
func Verdict(severity string) string {
	if name, ok := verdicts[severity]; ok {
		return name
	}
	return severity
}
