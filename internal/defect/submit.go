// Package defect files a tracker defect for a failed CI build: it resolves
// the configured names to references, creates the defect and then tags it.
//
// Submit never returns an error. Every tracker-side problem ends in a
// Result, so a tracker outage cannot fail the build that reported it.
package defect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"faultline/internal/logging"
	"faultline/internal/resolve"
	"faultline/internal/tracker"
)

// TagName is the tag attached to every filed defect.
const TagName = "BRM_Build_Failure"

// Resolver turns configured names into tracker references.
// *resolve.Resolver implements it.
type Resolver interface {
	Workspace(ctx context.Context, name string) (tracker.Ref, error)
	Project(ctx context.Context, workspace tracker.Ref, name string) (tracker.Ref, error)
	User(ctx context.Context, login string) (tracker.Ref, error)
	Tag(ctx context.Context, text string) (tracker.Record, error)
}

// Submitter files defects. It is safe for concurrent use; submissions share
// nothing but the resolver's workspace cache.
type Submitter struct {
	opener   tracker.Opener
	resolver Resolver
	baseURL  string
	log      *slog.Logger
}

// NewSubmitter returns a Submitter that creates defects through opener and
// builds detail links against baseURL.
func NewSubmitter(opener tracker.Opener, resolver Resolver, baseURL string) *Submitter {
	return &Submitter{
		opener:   opener,
		resolver: resolver,
		baseURL:  baseURL,
		log:      logging.New("defect"),
	}
}

type resolvedRefs struct {
	workspace tracker.Ref
	project   tracker.Ref
	user      tracker.Ref
}

// Submit files a defect for build when ShouldFile allows it. The sequence is
// workspace, project, user, create, tag; it runs once with no retries and
// stops at the first failing step, except that a failed tag leaves the
// result Created with Tag set to TagFailed.
func (s *Submitter) Submit(ctx context.Context, settings Settings, build Build) (res Result) {
	res = Result{settings: settings, build: build}

	if !ShouldFile(build.Status, settings.CreateIfUnstable) {
		s.log.InfoContext(ctx, "no defect needed",
			"status", build.Status, "create_if_unstable", settings.CreateIfUnstable)
		res.Outcome = NotCreated
		return res
	}

	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if res.Outcome == Created {
			// The defect exists remotely; only the tag step was lost.
			s.log.ErrorContext(ctx, "panic while tagging defect", "defect", res.Defect, "panic", p)
			res.Tag = TagFailed
			res.TagErrors = append(res.TagErrors, fmt.Sprintf("panic while tagging: %v", p))
			return
		}
		s.unexpected(ctx, &res, fmt.Errorf("panic during submission: %v", p))
	}()

	res.Title = Title(settings.TitlePrefix, build)
	res.Description = Description(build)
	log := s.log.With("title", res.Title)

	log.InfoContext(ctx, "resolving references", "workspace", settings.Workspace, "project", settings.Project)
	refs, err := s.resolve(ctx, settings)
	res.Workspace, res.Project, res.User = refs.workspace, refs.project, refs.user
	if err != nil {
		if resolve.IsResolutionFailure(err) {
			log.WarnContext(ctx, "resolution failed", "error", err)
			res.Outcome = ResolutionFailed
			res.Errors = resolve.RemoteErrors(err)
			res.Message = err.Error()
			res.Cause = err
			return res
		}
		s.unexpected(ctx, &res, err)
		return res
	}

	sess, err := s.opener.Open(ctx)
	if err != nil {
		s.unexpected(ctx, &res, fmt.Errorf("open tracker session: %w", err))
		return res
	}
	defer sess.Close()

	log.InfoContext(ctx, "creating defect", "project", refs.project)
	created, err := sess.Create(ctx, "defect", settings.payload(res.Title, res.Description, refs))
	if err != nil {
		s.unexpected(ctx, &res, fmt.Errorf("create defect: %w", err))
		return res
	}
	if !created.Success {
		log.WarnContext(ctx, "unable to create defect", "errors", created.Errors)
		res.Outcome = CreationFailed
		res.Errors = created.Errors
		res.Message = "the tracker rejected the defect"
		return res
	}
	defectRef := created.Object.Ref()
	if defectRef == "" {
		s.unexpected(ctx, &res, errors.New("create defect: response carries no _ref"))
		return res
	}

	res.Outcome = Created
	res.Defect = defectRef
	res.DetailURL = DetailURL(s.baseURL, refs.project, defectRef)
	log.InfoContext(ctx, "created new defect", "defect", defectRef, "url", res.DetailURL)

	if errs := s.attachTag(ctx, sess, defectRef); len(errs) > 0 {
		log.WarnContext(ctx, "unable to tag defect", "tag", TagName, "errors", errs)
		res.Tag = TagFailed
		res.TagErrors = errs
		return res
	}
	log.InfoContext(ctx, "tag added", "tag", TagName)
	res.Tag = TagAttached
	return res
}

// resolve looks the references up in dependency order. The returned refs
// hold whatever resolved before a failure.
func (s *Submitter) resolve(ctx context.Context, settings Settings) (resolvedRefs, error) {
	var refs resolvedRefs
	var err error
	if refs.workspace, err = s.resolver.Workspace(ctx, settings.Workspace); err != nil {
		return refs, err
	}
	if refs.project, err = s.resolver.Project(ctx, refs.workspace, settings.Project); err != nil {
		return refs, err
	}
	if refs.user, err = s.resolver.User(ctx, settings.SubmittedBy); err != nil {
		return refs, err
	}
	return refs, nil
}

// attachTag adds TagName to the defect and returns the messages of any
// failure. The defect stays created whatever happens here.
func (s *Submitter) attachTag(ctx context.Context, sess tracker.Session, defectRef tracker.Ref) []string {
	tag, err := s.resolver.Tag(ctx, TagName)
	if err != nil {
		if errs := resolve.RemoteErrors(err); len(errs) > 0 {
			return errs
		}
		return []string{err.Error()}
	}
	tagRef := tag.Ref()
	if tagRef == "" {
		return []string{fmt.Sprintf("tag %q has no _ref", TagName)}
	}

	updated, err := sess.Update(ctx, defectRef, tracker.Record{
		"Tags": []any{map[string]any{"_ref": string(tagRef)}},
	})
	if err != nil {
		return []string{err.Error()}
	}
	if !updated.Success {
		if len(updated.Errors) == 0 {
			return []string{"tag update rejected"}
		}
		return updated.Errors
	}
	return nil
}

func (s *Submitter) unexpected(ctx context.Context, res *Result, err error) {
	s.log.ErrorContext(ctx, "exception when attempting to create defect", "error", err)
	res.Outcome = UnexpectedError
	res.Message = err.Error()
	res.Cause = err
	res.Defect = ""
	res.DetailURL = ""
	res.Tag = ""
}
