// Package mcp exposes defect filing and the tracker lookups as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"faultline/internal/defect"
	"faultline/internal/logging"
	"faultline/internal/schema"
	"faultline/internal/wiring"
)

// Server wraps the MCP SDK server around an assembled App.
type Server struct {
	MCPServer *sdkmcp.Server
	History   *History

	app *wiring.App
	log *slog.Logger
}

// NewServer creates an MCP server with the faultline tools registered.
func NewServer(app *wiring.App, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "faultline", Version: version}, nil),
		History:   &History{},
		app:       app,
		log:       logging.New("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "submit_defect",
		Description: "File a tracker defect for a finished CI build. Failed builds always file; unstable builds file only when create_if_unstable is set. Never fails on tracker-side problems: the outcome field reports them.",
	}, s.handleSubmitDefect)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "allowed_values",
		Description: "List the allowed values of an enumerated field on a tracker type. Without a field, lists every configurable defect field.",
	}, s.handleAllowedValues)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the project names of the configured workspace, sorted.",
	}, s.handleListProjects)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_user",
		Description: "Check that a login names a tracker user who can submit defects.",
	}, s.handleCheckUser)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_submissions",
		Description: "Read the submissions made through this server. Returns all, or those since a given index.",
	}, s.handleGetSubmissions)
}

// --- Tool input/output types ---

type submitDefectInput struct {
	Job              string `json:"job" jsonschema:"build display name, e.g. 'MyJob #42'"`
	Build            int    `json:"build" jsonschema:"numeric build id"`
	Status           string `json:"status" jsonschema:"final build status (FAILURE, UNSTABLE, SUCCESS, ABORTED, NOT_BUILT)"`
	URL              string `json:"url" jsonschema:"console log URL linked from the description"`
	CreateIfUnstable *bool  `json:"create_if_unstable,omitempty" jsonschema:"file for unstable builds (default from configuration)"`
	Project          string `json:"project,omitempty" jsonschema:"override the configured project"`
	TitlePrefix      string `json:"title_prefix,omitempty" jsonschema:"override the configured title prefix"`
}

type submitDefectOutput struct {
	Outcome   string   `json:"outcome"`
	Summary   string   `json:"summary"`
	Title     string   `json:"title,omitempty"`
	Defect    string   `json:"defect,omitempty"`
	DetailURL string   `json:"detail_url,omitempty"`
	Tag       string   `json:"tag,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	TagErrors []string `json:"tag_errors,omitempty"`
	Index     int      `json:"index" jsonschema:"0-based history index of this submission; pass as get_submissions.since to read from it"`
}

type allowedValuesInput struct {
	Type  string `json:"type,omitempty" jsonschema:"tracker type name (default Defect)"`
	Field string `json:"field,omitempty" jsonschema:"field label, e.g. Severity; empty lists the defect field catalog"`
}

type allowedValuesOutput struct {
	Type   string               `json:"type"`
	Field  string               `json:"field,omitempty"`
	Values []string             `json:"values,omitempty"`
	Fields []schema.FieldValues `json:"fields,omitempty"`
}

type listProjectsInput struct{}

type listProjectsOutput struct {
	Workspace string   `json:"workspace"`
	Projects  []string `json:"projects"`
}

type checkUserInput struct {
	Login string `json:"login" jsonschema:"tracker login of the submitter"`
}

type checkUserOutput struct {
	Login    string `json:"login"`
	Severity string `json:"severity"`
	Message  string `json:"message,omitempty"`
}

type getSubmissionsInput struct {
	Since int `json:"since,omitempty" jsonschema:"return submissions from this index onward (0-based)"`
}

type getSubmissionsOutput struct {
	Submissions []Entry `json:"submissions"`
	Total       int     `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleSubmitDefect(ctx context.Context, _ *sdkmcp.CallToolRequest, input submitDefectInput) (*sdkmcp.CallToolResult, submitDefectOutput, error) {
	status, err := defect.ParseStatus(input.Status)
	if err != nil {
		return nil, submitDefectOutput{}, err
	}
	if input.Job == "" {
		return nil, submitDefectOutput{}, errors.New("job is required")
	}

	settings := s.app.Settings()
	if input.CreateIfUnstable != nil {
		settings.CreateIfUnstable = *input.CreateIfUnstable
	}
	if input.Project != "" {
		settings.Project = input.Project
	}
	if input.TitlePrefix != "" {
		settings.TitlePrefix = input.TitlePrefix
	}

	build := defect.Build{DisplayName: input.Job, Number: input.Build, Status: status, ConsoleURL: input.URL}
	res := s.app.Notify(ctx, settings, build)
	idx := s.History.Record(build, &res)
	s.log.InfoContext(ctx, "submit_defect", "job", input.Job, "build", input.Build, "outcome", res.Outcome)

	return nil, submitDefectOutput{
		Outcome:   string(res.Outcome),
		Summary:   res.Summary(),
		Title:     res.Title,
		Defect:    string(res.Defect),
		DetailURL: res.DetailURL,
		Tag:       string(res.Tag),
		Errors:    res.Errors,
		TagErrors: res.TagErrors,
		Index:     idx,
	}, nil
}

func (s *Server) handleAllowedValues(ctx context.Context, _ *sdkmcp.CallToolRequest, input allowedValuesInput) (*sdkmcp.CallToolResult, allowedValuesOutput, error) {
	objectType := input.Type
	if objectType == "" {
		objectType = schema.DefectType
	}

	if input.Field == "" {
		if objectType != schema.DefectType {
			return nil, allowedValuesOutput{}, fmt.Errorf("field is required for type %s", objectType)
		}
		fields, err := s.app.Catalog(ctx)
		if err != nil {
			return nil, allowedValuesOutput{}, err
		}
		return nil, allowedValuesOutput{Type: objectType, Fields: fields}, nil
	}

	label := input.Field
	if f, ok := schema.LookupField(label); ok {
		label = f.Label
	}
	values, err := s.app.AllowedValues(ctx, objectType, label)
	if err != nil {
		return nil, allowedValuesOutput{}, err
	}
	return nil, allowedValuesOutput{Type: objectType, Field: label, Values: values}, nil
}

func (s *Server) handleListProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listProjectsInput) (*sdkmcp.CallToolResult, listProjectsOutput, error) {
	projects, err := s.app.Projects(ctx)
	if err != nil {
		return nil, listProjectsOutput{}, err
	}
	return nil, listProjectsOutput{Workspace: s.app.Settings().Workspace, Projects: projects}, nil
}

func (s *Server) handleCheckUser(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkUserInput) (*sdkmcp.CallToolResult, checkUserOutput, error) {
	c := s.app.CheckUser(ctx, input.Login)
	return nil, checkUserOutput{Login: input.Login, Severity: string(c.Severity), Message: c.Message}, nil
}

func (s *Server) handleGetSubmissions(_ context.Context, _ *sdkmcp.CallToolRequest, input getSubmissionsInput) (*sdkmcp.CallToolResult, getSubmissionsOutput, error) {
	entries := s.History.Since(input.Since)
	if entries == nil {
		entries = []Entry{}
	}
	return nil, getSubmissionsOutput{Submissions: entries, Total: s.History.Len()}, nil
}
