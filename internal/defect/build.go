package defect

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the final result of a CI build.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusUnstable Status = "UNSTABLE"
	StatusFailure  Status = "FAILURE"
	StatusAborted  Status = "ABORTED"
	StatusNotBuilt Status = "NOT_BUILT"
)

// ParseStatus maps a build result name, in any letter case, to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusSuccess, StatusUnstable, StatusFailure, StatusAborted, StatusNotBuilt:
		return st, nil
	}
	return "", fmt.Errorf("unknown build status %q", s)
}

// Build describes the finished build a defect is filed for.
type Build struct {
	DisplayName string `json:"display_name"`
	Number      int    `json:"number"`
	Status      Status `json:"status"`
	ConsoleURL  string `json:"console_url"`
}

// ShouldFile reports whether a build ending in status warrants a defect:
// always for a failure, for an unstable build only when createIfUnstable is set.
func ShouldFile(status Status, createIfUnstable bool) bool {
	return status == StatusFailure || (status == StatusUnstable && createIfUnstable)
}

// Title composes the defect title: the trimmed prefix and a space when a
// prefix is set, then the first word of the display name, the build number
// and the status.
//
//	Title("REL", Build{DisplayName: "MyJob #42", Number: 42, Status: StatusFailure})
//	// "REL MyJob build 42 is at status FAILURE"
func Title(prefix string, b Build) string {
	var sb strings.Builder
	if p := strings.TrimSpace(prefix); p != "" {
		sb.WriteString(p)
		sb.WriteByte(' ')
	}
	if words := strings.Fields(b.DisplayName); len(words) > 0 {
		sb.WriteString(words[0])
	}
	sb.WriteString(" build ")
	sb.WriteString(strconv.Itoa(b.Number))
	sb.WriteString(" is at status ")
	sb.WriteString(string(b.Status))
	return sb.String()
}

// Description renders the defect description: an HTML link to the build log.
func Description(b Build) string {
	return `<a href="` + b.ConsoleURL + `">Build Log</a>`
}
