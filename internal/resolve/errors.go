package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names the object type a lookup was for.
type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindProject   Kind = "project"
	KindUser      Kind = "user"
	KindTag       Kind = "tag"
)

// NotFoundError reports a name-based lookup that matched no remote object.
// Only fixing the configuration can recover from it.
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// QueryError reports a query the service rejected. Errors holds the
// service's messages verbatim.
type QueryError struct {
	Op     string
	Errors []string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: query rejected: %s", e.Op, strings.Join(e.Errors, "; "))
}

// ErrNoReference is returned when a matched record carries no _ref.
var ErrNoReference = errors.New("matched record has no _ref")

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// RemoteErrors returns the service messages carried by a *QueryError in
// err's chain, or nil.
func RemoteErrors(err error) []string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Errors
	}
	return nil
}

// IsResolutionFailure reports whether err is a classified lookup failure
// (not found or rejected query) as opposed to a transport or decoding fault.
func IsResolutionFailure(err error) bool {
	var qe *QueryError
	return IsNotFound(err) || errors.As(err, &qe)
}
