package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
)

// pageSize is the number of records requested per query page (service maximum).
const pageSize = 200

// Opener opens sessions against the tracker. *Client implements it.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Session is one scoped connection to the tracker.
// Close releases it; operations after Close return ErrSessionClosed.
type Session interface {
	Query(ctx context.Context, req *QueryRequest) (*QueryResult, error)
	Create(ctx context.Context, typeName string, rec Record) (*OperationResult, error)
	Update(ctx context.Context, ref Ref, rec Record) (*OperationResult, error)
	Close() error
}

type httpSession struct {
	client *Client
	id     int64
	closed atomic.Bool
}

// Query returns every page of results. It stops at the first page whose
// Errors list is non-empty and returns that page's errors with Success false.
func (s *httpSession) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	target := req.Type
	if req.Collection != "" {
		target = req.Collection
	}
	if target == "" {
		return nil, fmt.Errorf("query: neither type nor collection set")
	}
	operation := "query " + target

	out := &QueryResult{Success: true}
	start := 1
	for {
		params := url.Values{}
		if req.Filter != nil {
			params.Set("query", req.Filter.String())
		}
		if len(req.Fetch) > 0 {
			params.Set("fetch", strings.Join(req.Fetch, ","))
		}
		if req.Workspace != "" {
			params.Set("workspace", string(req.Workspace))
		}
		params.Set("start", strconv.Itoa(start))
		params.Set("pagesize", strconv.Itoa(pageSize))

		u := s.client.endpoint(target)
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}

		var env queryEnvelope
		if err := s.client.doJSON(ctx, "GET", u+sep+params.Encode(), operation, nil, &env); err != nil {
			return nil, err
		}
		page := env.QueryResult
		out.Warnings = append(out.Warnings, page.Warnings...)
		out.TotalResultCount = page.TotalResultCount
		if len(page.Errors) > 0 {
			out.Success = false
			out.Errors = page.Errors
			return out, nil
		}
		out.Results = append(out.Results, page.Results...)
		if len(page.Results) == 0 || start+len(page.Results)-1 >= page.TotalResultCount {
			break
		}
		start += len(page.Results)
	}
	return out, nil
}

// Create posts rec as a new object of typeName.
func (s *httpSession) Create(ctx context.Context, typeName string, rec Record) (*OperationResult, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	payload, err := json.Marshal(map[string]Record{typeName: rec})
	if err != nil {
		return nil, fmt.Errorf("create %s: marshal: %w", typeName, err)
	}

	u := s.client.endpoint(typeName) + "/create"
	var env createEnvelope
	if err := s.client.doJSON(ctx, "POST", u, "create "+typeName, bytes.NewReader(payload), &env); err != nil {
		return nil, err
	}
	return env.CreateResult.result(), nil
}

// Update posts the fields of rec onto the object at ref.
func (s *httpSession) Update(ctx context.Context, ref Ref, rec Record) (*OperationResult, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if ref == "" {
		return nil, fmt.Errorf("update: empty reference")
	}
	payload, err := json.Marshal(map[string]Record{ref.Type(): rec})
	if err != nil {
		return nil, fmt.Errorf("update %s: marshal: %w", ref, err)
	}

	var env updateEnvelope
	if err := s.client.doJSON(ctx, "POST", s.client.endpoint(string(ref)), "update "+string(ref), bytes.NewReader(payload), &env); err != nil {
		return nil, err
	}
	return env.OperationResult.result(), nil
}

// Close releases the session. It is idempotent.
func (s *httpSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.client.logger.Debug("session closed", "session", s.id)
	return nil
}
