// Package trackertest provides a scripted in-memory tracker for tests.
package trackertest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"faultline/internal/tracker"
)

// QueryFunc answers one query.
type QueryFunc func(req *tracker.QueryRequest) (*tracker.QueryResult, error)

// Call records one session operation.
type Call struct {
	Op     string // "query", "create" or "update"
	Target string // type name, collection URL or reference
	Filter string
	Record tracker.Record
}

// Fake implements tracker.Opener. Queries are routed by lower-cased type
// name or by collection URL; an unrouted query succeeds with no results.
type Fake struct {
	OnCreate func(typeName string, rec tracker.Record) (*tracker.OperationResult, error)
	OnUpdate func(ref tracker.Ref, rec tracker.Record) (*tracker.OperationResult, error)
	OpenErr  error

	mu     sync.Mutex
	routes map[string]QueryFunc
	calls  []Call
	opened int
	closed int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{routes: make(map[string]QueryFunc)}
}

// Route installs fn for queries against target.
func (f *Fake) Route(target string, fn QueryFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[routeKey(target)] = fn
	return f
}

// Open implements tracker.Opener.
func (f *Fake) Open(ctx context.Context) (tracker.Session, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	return &session{fake: f}, nil
}

// Calls returns the recorded operations of kind op, or all when op is "".
func (f *Fake) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// QueriesFor counts queries issued against target.
func (f *Fake) QueriesFor(target string) int {
	n := 0
	for _, c := range f.Calls("query") {
		if routeKey(c.Target) == routeKey(target) {
			n++
		}
	}
	return n
}

// Opened returns the number of sessions opened.
func (f *Fake) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

// Closed returns the number of sessions closed.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
}

func routeKey(target string) string {
	if strings.Contains(target, "://") {
		return target
	}
	return strings.ToLower(target)
}

type session struct {
	fake   *Fake
	closed bool
}

func (s *session) Query(_ context.Context, req *tracker.QueryRequest) (*tracker.QueryResult, error) {
	if s.closed {
		return nil, tracker.ErrSessionClosed
	}
	target := req.Type
	if req.Collection != "" {
		target = req.Collection
	}
	c := Call{Op: "query", Target: target}
	if req.Filter != nil {
		c.Filter = req.Filter.String()
	}
	s.fake.record(c)

	s.fake.mu.Lock()
	fn := s.fake.routes[routeKey(target)]
	s.fake.mu.Unlock()
	if fn == nil {
		return &tracker.QueryResult{Success: true}, nil
	}
	return fn(req)
}

func (s *session) Create(_ context.Context, typeName string, rec tracker.Record) (*tracker.OperationResult, error) {
	if s.closed {
		return nil, tracker.ErrSessionClosed
	}
	s.fake.record(Call{Op: "create", Target: typeName, Record: rec})
	if s.fake.OnCreate == nil {
		return nil, fmt.Errorf("trackertest: unexpected create of %s", typeName)
	}
	return s.fake.OnCreate(typeName, rec)
}

func (s *session) Update(_ context.Context, ref tracker.Ref, rec tracker.Record) (*tracker.OperationResult, error) {
	if s.closed {
		return nil, tracker.ErrSessionClosed
	}
	s.fake.record(Call{Op: "update", Target: string(ref), Record: rec})
	if s.fake.OnUpdate == nil {
		return nil, fmt.Errorf("trackertest: unexpected update of %s", ref)
	}
	return s.fake.OnUpdate(ref, rec)
}

func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.fake.mu.Lock()
	s.fake.closed++
	s.fake.mu.Unlock()
	return nil
}

// --- Canned answers ---

// Found answers every query with recs.
func Found(recs ...tracker.Record) QueryFunc {
	return func(*tracker.QueryRequest) (*tracker.QueryResult, error) {
		return &tracker.QueryResult{Success: true, Results: recs, TotalResultCount: len(recs)}, nil
	}
}

// Match emulates server-side equality filtering: it answers with the recs
// whose field equals the request filter's value, or all recs when unfiltered.
func Match(field string, recs ...tracker.Record) QueryFunc {
	return func(req *tracker.QueryRequest) (*tracker.QueryResult, error) {
		if req.Filter == nil {
			return Found(recs...)(req)
		}
		var out []tracker.Record
		for _, r := range recs {
			if r.String(field) == req.Filter.Value {
				out = append(out, r)
			}
		}
		return Found(out...)(req)
	}
}

// Rejected answers with an unsuccessful result carrying errs.
func Rejected(errs ...string) QueryFunc {
	return func(*tracker.QueryRequest) (*tracker.QueryResult, error) {
		return &tracker.QueryResult{Success: false, Errors: errs}, nil
	}
}

// Fails answers with a transport error.
func Fails(err error) QueryFunc {
	return func(*tracker.QueryRequest) (*tracker.QueryResult, error) {
		return nil, err
	}
}

// Created returns an OnCreate that succeeds with the given reference.
func Created(ref string) func(string, tracker.Record) (*tracker.OperationResult, error) {
	return func(string, tracker.Record) (*tracker.OperationResult, error) {
		return &tracker.OperationResult{Success: true, Object: tracker.Record{"_ref": ref}}, nil
	}
}

// Updated returns an OnUpdate that succeeds, or rejects with errs when given.
func Updated(errs ...string) func(tracker.Ref, tracker.Record) (*tracker.OperationResult, error) {
	return func(ref tracker.Ref, _ tracker.Record) (*tracker.OperationResult, error) {
		if len(errs) > 0 {
			return &tracker.OperationResult{Success: false, Errors: errs}, nil
		}
		return &tracker.OperationResult{Success: true, Object: tracker.Record{"_ref": string(ref)}}, nil
	}
}
