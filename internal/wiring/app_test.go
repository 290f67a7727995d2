package wiring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"faultline/internal/config"
	"faultline/internal/defect"
	"faultline/internal/resolve"
	"faultline/internal/tracker"
	"faultline/internal/tracker/trackertest"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.APIKey = "k"
	cfg.Workspace = "VCE"
	cfg.Defect = defect.Settings{Project: "Platform", SubmittedBy: "pebuild@example.com", Priority: "Low"}
	return cfg
}

func newFakeApp() (*App, *trackertest.Fake) {
	fake := trackertest.New().
		Route("workspace", trackertest.Match("Name", tracker.Record{"Name": "VCE", "_ref": "/workspace/1"})).
		Route("project", trackertest.Found(
			tracker.Record{"Name": "Platform", "_ref": "/project/5"},
			tracker.Record{"Name": "Apps", "_ref": "/project/6"},
		)).
		Route("user", trackertest.Match("UserName", tracker.Record{"UserName": "pebuild@example.com", "_ref": "/user/9"})).
		Route("tag", trackertest.Found(tracker.Record{"Name": defect.TagName, "_ref": "/tag/3"}))
	fake.OnCreate = trackertest.Created("/defect/77")
	fake.OnUpdate = trackertest.Updated()
	return FromOpener(testConfig(), fake, "https://tracker.example.com"), fake
}

func TestNew_RejectsIncompleteConfig(t *testing.T) {
	cfg := config.Default()
	if _, err := New(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNew_BuildsHTTPApp(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("ZSESSIONID")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"QueryResult":{"Errors":[],"Warnings":[],"TotalResultCount":1,"Results":[{"Name":"VCE","_ref":"` +
			"http://" + r.Host + `/slm/webservice/v2.0/workspace/123"}]}}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BaseURL = server.URL
	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ws, err := app.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace: %v", err)
	}
	if ws != "/workspace/123" {
		t.Errorf("workspace = %q", ws)
	}
	if gotKey != "k" {
		t.Errorf("ZSESSIONID = %q", gotKey)
	}
}

func TestApp_Notify(t *testing.T) {
	app, fake := newFakeApp()
	res := app.Notify(context.Background(), app.Settings(), defect.Build{
		DisplayName: "nightly #3", Number: 3, Status: defect.StatusFailure, ConsoleURL: "https://ci/3/console",
	})
	if res.Outcome != defect.Created || res.Tag != defect.TagAttached {
		t.Fatalf("result = %q/%q (%s)", res.Outcome, res.Tag, res.Message)
	}
	if res.DetailURL != "https://tracker.example.com/#/5/detail/defect/77" {
		t.Errorf("DetailURL = %q", res.DetailURL)
	}
	if fake.Opened() != fake.Closed() {
		t.Errorf("sessions opened=%d closed=%d", fake.Opened(), fake.Closed())
	}
}

func TestApp_WorkspaceIsCachedAcrossOperations(t *testing.T) {
	app, fake := newFakeApp()
	ctx := context.Background()
	if _, err := app.Projects(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := app.AllowedValues(ctx, "Defect", "Severity"); err != nil {
		t.Fatal(err)
	}
	if n := fake.QueriesFor("workspace"); n != 1 {
		t.Errorf("expected 1 workspace query, got %d", n)
	}
}

func TestApp_Projects(t *testing.T) {
	app, _ := newFakeApp()
	got, err := app.Projects(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Apps", "Platform"}, got); diff != "" {
		t.Errorf("projects mismatch (-want +got):\n%s", diff)
	}
}

func TestApp_UnknownWorkspace(t *testing.T) {
	app, _ := newFakeApp()
	app.Config.Workspace = "Elsewhere"
	if _, err := app.Catalog(context.Background()); !resolve.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestApp_CheckUser(t *testing.T) {
	app, _ := newFakeApp()
	if c := app.CheckUser(context.Background(), "pebuild@example.com"); c.Severity != resolve.SeverityOK {
		t.Errorf("check = %+v", c)
	}
	if c := app.CheckUser(context.Background(), ""); !strings.Contains(c.Message, "Please set") {
		t.Errorf("check = %+v", c)
	}
}
