package resolve

import (
	"context"
	"fmt"

	"faultline/internal/tracker"
)

// Severity grades a Check.
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Check is the verdict on a configured value, shown next to the setting.
type Check struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
}

// minLoginLength is the length below which a login draws a warning
// without a remote lookup.
const minLoginLength = 4

// CheckLogin validates a submitter login. It never returns an error: every
// outcome, including transport failures, is expressed as a Check.
func (r *Resolver) CheckLogin(ctx context.Context, login string) Check {
	if login == "" {
		return Check{Severity: SeverityError, Message: "Please set a tracker user id."}
	}
	if len(login) < minLoginLength {
		return Check{Severity: SeverityWarning, Message: "Isn't the user id too short?"}
	}

	_, err := r.User(ctx, login)
	switch {
	case err == nil:
		return Check{Severity: SeverityOK}
	case IsResolutionFailure(err):
		return Check{Severity: SeverityError, Message: fmt.Sprintf("Unable to validate tracker user id %q", login)}
	case tracker.IsUnauthorized(err), tracker.IsForbidden(err):
		return Check{
			Severity: SeverityError,
			Message:  "The tracker rejected the API key. Ensure that the correct tracker API key is configured.",
		}
	default:
		return Check{
			Severity: SeverityError,
			Message: fmt.Sprintf("Exception when attempting to validate tracker user id.\n%v\n"+
				"Ensure that the correct tracker API key is configured.", err),
		}
	}
}
