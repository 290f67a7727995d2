// Package resolve translates human-readable tracker names (workspace,
// project, user login, tag) into references.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"faultline/internal/logging"
	"faultline/internal/refcache"
	"faultline/internal/tracker"
)

// Resolver resolves names to references. Workspace lookups are memoized in
// the shared cache; projects, users and tags are looked up on every call.
// Each lookup opens its own session and closes it before returning.
type Resolver struct {
	opener tracker.Opener
	cache  *refcache.Cache
	group  singleflight.Group
	log    *slog.Logger
}

// New returns a Resolver. A nil cache gets a private one.
func New(opener tracker.Opener, cache *refcache.Cache) *Resolver {
	if cache == nil {
		cache = refcache.New()
	}
	return &Resolver{
		opener: opener,
		cache:  cache,
		log:    logging.New("resolve"),
	}
}

// Cache returns the workspace cache the Resolver populates.
func (r *Resolver) Cache() *refcache.Cache { return r.cache }

// Workspace returns the reference of the workspace whose display name
// equals name exactly. Hits are served from the cache without a remote
// query; concurrent misses for one name share a single remote lookup.
// A failed lookup leaves the cache untouched.
func (r *Resolver) Workspace(ctx context.Context, name string) (tracker.Ref, error) {
	if ref, ok := r.cache.Get(name); ok {
		r.log.DebugContext(ctx, "workspace cache hit", "workspace", name, "ref", ref)
		return ref, nil
	}

	v, err, shared := r.group.Do(name, func() (any, error) {
		if ref, ok := r.cache.Get(name); ok {
			return ref, nil
		}
		rec, err := r.lookupOne(ctx, KindWorkspace, name, &tracker.QueryRequest{
			Type:   "workspace",
			Filter: tracker.Eq("Name", name),
			Fetch:  []string{"Name", "_ref"},
		})
		if err != nil {
			return tracker.Ref(""), err
		}
		ref := rec.Ref()
		r.cache.Put(name, ref)
		r.log.InfoContext(ctx, "workspace resolved", "workspace", name, "ref", ref)
		return ref, nil
	})
	if shared {
		r.log.DebugContext(ctx, "workspace lookup shared", "workspace", name)
	}
	if err != nil {
		return "", err
	}
	return v.(tracker.Ref), nil
}

// Project returns the reference of the first project in workspace whose
// name matches name ignoring case. The service cannot filter
// case-insensitively, so every project in the workspace is fetched.
func (r *Resolver) Project(ctx context.Context, workspace tracker.Ref, name string) (tracker.Ref, error) {
	sess, err := r.opener.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve project %q: %w", name, err)
	}
	defer sess.Close()

	res, err := sess.Query(ctx, &tracker.QueryRequest{
		Type:      "project",
		Workspace: workspace,
		Fetch:     []string{"Name", "_ref"},
	})
	if err != nil {
		return "", fmt.Errorf("resolve project %q: %w", name, err)
	}
	if !res.Success {
		return "", &QueryError{Op: "resolve project", Errors: res.Errors}
	}
	for _, rec := range res.Results {
		if !strings.EqualFold(rec.String("Name"), name) {
			continue
		}
		ref := rec.Ref()
		if ref == "" {
			return "", fmt.Errorf("resolve project %q: %w", name, ErrNoReference)
		}
		r.log.InfoContext(ctx, "project resolved", "project", name, "ref", ref)
		return ref, nil
	}
	return "", &NotFoundError{Kind: KindProject, Name: name}
}

// User returns the reference of the user whose login equals login exactly.
func (r *Resolver) User(ctx context.Context, login string) (tracker.Ref, error) {
	rec, err := r.lookupOne(ctx, KindUser, login, &tracker.QueryRequest{
		Type:   "user",
		Filter: tracker.Eq("UserName", login),
		Fetch:  []string{"UserName", "_ref"},
	})
	if err != nil {
		return "", err
	}
	return rec.Ref(), nil
}

// Tag returns the tag record whose name equals text exactly. The record
// carries at least its _ref and Name.
func (r *Resolver) Tag(ctx context.Context, text string) (tracker.Record, error) {
	return r.lookupOne(ctx, KindTag, text, &tracker.QueryRequest{
		Type:   "tag",
		Filter: tracker.Eq("Name", text),
		Fetch:  []string{"Name", "_ref"},
	})
}

// lookupOne runs req in its own session and returns the first result.
func (r *Resolver) lookupOne(ctx context.Context, kind Kind, name string, req *tracker.QueryRequest) (tracker.Record, error) {
	sess, err := r.opener.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, name, err)
	}
	defer sess.Close()

	res, err := sess.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, name, err)
	}
	if !res.Success {
		r.log.WarnContext(ctx, "query rejected", "kind", kind, "name", name, "errors", res.Errors)
		return nil, &QueryError{Op: "resolve " + string(kind), Errors: res.Errors}
	}
	if len(res.Results) == 0 {
		return nil, &NotFoundError{Kind: kind, Name: name}
	}
	rec := res.Results[0]
	if rec.Ref() == "" {
		return nil, fmt.Errorf("resolve %s %q: %w", kind, name, ErrNoReference)
	}
	return rec, nil
}
