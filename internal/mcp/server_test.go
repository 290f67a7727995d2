package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"faultline/internal/config"
	"faultline/internal/defect"
	"faultline/internal/tracker"
	"faultline/internal/tracker/trackertest"
	"faultline/internal/wiring"
)

const attrsURL = "https://tracker.example.com/slm/webservice/v2.0/TypeDefinition/1/Attributes"

func sevURL(label string) string {
	return "https://tracker.example.com/slm/webservice/v2.0/Attr/" + strings.ReplaceAll(label, " ", "") + "/AllowedValues"
}

func newTestServer(t *testing.T) (*Server, *trackertest.Fake) {
	t.Helper()
	fake := trackertest.New().
		Route("workspace", trackertest.Match("Name", tracker.Record{"Name": "VCE", "_ref": "/workspace/1"})).
		Route("project", trackertest.Found(
			tracker.Record{"Name": "Platform", "_ref": "/project/5"},
			tracker.Record{"Name": "Apps", "_ref": "/project/6"},
		)).
		Route("user", trackertest.Match("UserName", tracker.Record{"UserName": "pebuild@example.com", "_ref": "/user/9"})).
		Route("tag", trackertest.Found(tracker.Record{"Name": defect.TagName, "_ref": "/tag/3"})).
		Route("typedefinition", trackertest.Found(tracker.Record{"Name": "Defect", "Attributes": map[string]any{"_ref": attrsURL}})).
		Route(attrsURL, trackertest.Found(
			tracker.Record{"Name": "Severity", "AllowedValues": map[string]any{"_ref": sevURL("Severity")}},
		)).
		Route(sevURL("Severity"), trackertest.Found(
			tracker.Record{"StringValue": "Minor Problem"},
			tracker.Record{"StringValue": `"Crash/Data Loss"`},
		))
	fake.OnCreate = trackertest.Created("/defect/77")
	fake.OnUpdate = trackertest.Updated()

	cfg := config.Default()
	cfg.APIKey = "k"
	cfg.Workspace = "VCE"
	cfg.Defect = defect.Settings{Project: "Platform", SubmittedBy: "pebuild@example.com", TitlePrefix: "REL"}
	app := wiring.FromOpener(cfg, fake, "https://tracker.example.com")
	return NewServer(app, "test"), fake
}

func connectInMemory(t *testing.T, ctx context.Context, srv *Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	if _, err := srv.MCPServer.Connect(ctx, t1, nil); err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
			}
		}
		t.Fatalf("CallTool(%s) returned error", name)
	}
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			if err := json.Unmarshal([]byte(tc.Text), out); err != nil {
				t.Fatalf("unmarshal tool result: %v (text: %s)", err, tc.Text)
			}
			return
		}
	}
	t.Fatalf("no text content in tool result")
}

func callToolExpectError(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return err.Error()
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				return tc.Text
			}
		}
		return "unknown error"
	}
	t.Fatal("expected error but got success")
	return ""
}

func TestListTools(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	want := []string{"allowed_values", "check_user", "get_submissions", "list_projects", "submit_defect"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitDefect_Created(t *testing.T) {
	ctx := context.Background()
	srv, fake := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var out submitDefectOutput
	callTool(t, ctx, session, "submit_defect", map[string]any{
		"job": "MyJob #42", "build": 42, "status": "FAILURE", "url": "https://ci/42/console",
	}, &out)

	if out.Outcome != string(defect.Created) || out.Tag != string(defect.TagAttached) {
		t.Fatalf("unexpected output: %+v", out)
	}
	if out.Title != "REL MyJob build 42 is at status FAILURE" {
		t.Errorf("Title = %q", out.Title)
	}
	if out.DetailURL != "https://tracker.example.com/#/5/detail/defect/77" {
		t.Errorf("DetailURL = %q", out.DetailURL)
	}
	if out.Index != 0 || srv.History.Len() != 1 {
		t.Errorf("history index=%d len=%d", out.Index, srv.History.Len())
	}
	if n := len(fake.Calls("create")); n != 1 {
		t.Errorf("expected 1 create, got %d", n)
	}
}

func TestSubmitDefect_UnstableFollowsFlag(t *testing.T) {
	ctx := context.Background()
	srv, fake := newTestServer(t)
	session := connectInMemory(t, ctx, srv)
	args := map[string]any{"job": "MyJob #43", "build": 43, "status": "unstable", "url": "u"}

	var skipped submitDefectOutput
	callTool(t, ctx, session, "submit_defect", args, &skipped)
	if skipped.Outcome != string(defect.NotCreated) {
		t.Fatalf("Outcome = %q", skipped.Outcome)
	}
	if n := len(fake.Calls("")); n != 0 {
		t.Fatalf("expected no tracker calls, got %d", n)
	}

	args["create_if_unstable"] = true
	var filed submitDefectOutput
	callTool(t, ctx, session, "submit_defect", args, &filed)
	if filed.Outcome != string(defect.Created) {
		t.Errorf("Outcome = %q", filed.Outcome)
	}
}

func TestSubmitDefect_TrackerRejectionIsNotAToolError(t *testing.T) {
	ctx := context.Background()
	srv, fake := newTestServer(t)
	fake.OnCreate = func(string, tracker.Record) (*tracker.OperationResult, error) {
		return &tracker.OperationResult{Errors: []string{"Invalid Priority"}}, nil
	}
	session := connectInMemory(t, ctx, srv)

	var out submitDefectOutput
	callTool(t, ctx, session, "submit_defect", map[string]any{
		"job": "MyJob #1", "build": 1, "status": "FAILURE", "url": "u",
	}, &out)
	if out.Outcome != string(defect.CreationFailed) {
		t.Fatalf("Outcome = %q", out.Outcome)
	}
	if diff := cmp.Diff([]string{"Invalid Priority"}, out.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitDefect_InvalidInput(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	msg := callToolExpectError(t, ctx, session, "submit_defect", map[string]any{
		"job": "MyJob #1", "build": 1, "status": "EXPLODED", "url": "u",
	})
	if !strings.Contains(msg, "unknown build status") {
		t.Errorf("unexpected error: %s", msg)
	}
}

func TestAllowedValues_Field(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var out allowedValuesOutput
	callTool(t, ctx, session, "allowed_values", map[string]any{"field": "severity"}, &out)
	if out.Field != "Severity" || out.Type != "Defect" {
		t.Errorf("unexpected output: %+v", out)
	}
	if diff := cmp.Diff([]string{"Crash/Data Loss", "Minor Problem"}, out.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestAllowedValues_Catalog(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var out allowedValuesOutput
	callTool(t, ctx, session, "allowed_values", map[string]any{}, &out)
	if len(out.Fields) != 8 {
		t.Fatalf("expected 8 catalog fields, got %d", len(out.Fields))
	}
	if out.Fields[1].Field.Label != "Severity" || len(out.Fields[1].Values) != 2 {
		t.Errorf("unexpected severity entry: %+v", out.Fields[1])
	}
}

func TestAllowedValues_OtherTypeNeedsField(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)
	if msg := callToolExpectError(t, ctx, session, "allowed_values", map[string]any{"type": "UserStory"}); !strings.Contains(msg, "field is required") {
		t.Errorf("unexpected error: %s", msg)
	}
}

func TestListProjects(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var out listProjectsOutput
	callTool(t, ctx, session, "list_projects", map[string]any{}, &out)
	if diff := cmp.Diff(listProjectsOutput{Workspace: "VCE", Projects: []string{"Apps", "Platform"}}, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckUser(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var out checkUserOutput
	callTool(t, ctx, session, "check_user", map[string]any{"login": "ab"}, &out)
	if out.Severity != "warning" {
		t.Errorf("Severity = %q (%s)", out.Severity, out.Message)
	}
}

func TestGetSubmissions(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	session := connectInMemory(t, ctx, srv)

	var empty getSubmissionsOutput
	callTool(t, ctx, session, "get_submissions", map[string]any{}, &empty)
	if empty.Total != 0 || len(empty.Submissions) != 0 {
		t.Fatalf("unexpected output: %+v", empty)
	}

	var last submitDefectOutput
	for _, n := range []int{1, 2} {
		callTool(t, ctx, session, "submit_defect", map[string]any{
			"job": "MyJob", "build": n, "status": "FAILURE", "url": "u",
		}, &last)
	}

	var out getSubmissionsOutput
	callTool(t, ctx, session, "get_submissions", map[string]any{"since": last.Index}, &out)
	if out.Total != 2 || len(out.Submissions) != 1 || out.Submissions[0].Build != 2 {
		t.Errorf("unexpected output: %+v", out)
	}
}

// --- History ---

func TestHistory_SinceClamps(t *testing.T) {
	h := &History{}
	h.Record(defect.Build{DisplayName: "a", Number: 1}, &defect.Result{Outcome: defect.NotCreated})
	if got := h.Since(-5); len(got) != 1 {
		t.Errorf("Since(-5) = %v", got)
	}
	if got := h.Since(3); got != nil {
		t.Errorf("Since(3) = %v", got)
	}
}

func TestHistory_RecordReturnsOwnIndex(t *testing.T) {
	h := &History{}
	for n := 1; n <= 3; n++ {
		idx := h.Record(defect.Build{DisplayName: "job", Number: n}, &defect.Result{Outcome: defect.Created})
		if idx != n-1 {
			t.Errorf("Record #%d returned %d, want %d", n, idx, n-1)
		}
		got := h.Since(idx)
		if len(got) != 1 || got[0].Build != n {
			t.Errorf("Since(%d) = %+v, want the entry just recorded", idx, got)
		}
	}
}

// --- Watchdog ---

func TestWatchParent_CancelsWhenParentChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ppid atomic.Int64
	ppid.Store(100)
	watchParent(ctx, cancel, func() int { return int(ppid.Load()) }, 5*time.Millisecond)

	ppid.Store(1)
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog did not cancel after parent change")
	}
}

func TestWatchParent_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	watchParent(ctx, cancel, func() int { calls.Add(1); return 100 }, time.Millisecond)
	cancel()

	time.Sleep(20 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != settled {
		t.Error("watchdog kept polling after cancel")
	}
}
