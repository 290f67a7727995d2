// Package wiring assembles the tracker client, resolvers and submitter from
// a configuration. The CLI and the MCP server share one App.
package wiring

import (
	"context"
	"fmt"

	"faultline/internal/config"
	"faultline/internal/defect"
	"faultline/internal/logging"
	"faultline/internal/refcache"
	"faultline/internal/resolve"
	"faultline/internal/schema"
	"faultline/internal/tracker"
)

// App is the assembled pipeline. The workspace cache lives as long as the App.
type App struct {
	Config    *config.Config
	Refs      *resolve.Resolver
	Schema    *schema.Resolver
	Submitter *defect.Submitter
}

// New validates cfg and builds an App on an HTTP tracker client. Extra
// client options are applied after those cfg implies.
func New(cfg *config.Config, opts ...tracker.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts = append(append(cfg.ClientOptions(), tracker.WithLogger(logging.New("tracker"))), opts...)
	client, err := tracker.New(cfg.BaseURL, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("tracker client: %w", err)
	}
	return FromOpener(cfg, client, client.BaseURL()), nil
}

// FromOpener builds an App on any tracker.Opener. baseURL is used only for
// defect detail links.
func FromOpener(cfg *config.Config, opener tracker.Opener, baseURL string) *App {
	refs := resolve.New(opener, refcache.New())
	return &App{
		Config:    cfg,
		Refs:      refs,
		Schema:    schema.New(opener),
		Submitter: defect.NewSubmitter(opener, refs, baseURL),
	}
}

// Settings returns the configured defect settings.
func (a *App) Settings() defect.Settings { return a.Config.Settings() }

// Notify files a defect for build with the configured settings.
func (a *App) Notify(ctx context.Context, settings defect.Settings, build defect.Build) defect.Result {
	return a.Submitter.Submit(ctx, settings, build)
}

// Workspace resolves the configured workspace.
func (a *App) Workspace(ctx context.Context) (tracker.Ref, error) {
	return a.Refs.Workspace(ctx, a.Settings().Workspace)
}

// Projects lists the projects of the configured workspace.
func (a *App) Projects(ctx context.Context) ([]string, error) {
	ws, err := a.Workspace(ctx)
	if err != nil {
		return nil, err
	}
	return a.Schema.ListProjects(ctx, ws)
}

// AllowedValues lists the allowed values of one field of objectType in the
// configured workspace.
func (a *App) AllowedValues(ctx context.Context, objectType, label string) ([]string, error) {
	ws, err := a.Workspace(ctx)
	if err != nil {
		return nil, err
	}
	return a.Schema.AllowedValues(ctx, objectType, label, ws)
}

// Catalog lists the allowed values of every configurable defect field.
func (a *App) Catalog(ctx context.Context) ([]schema.FieldValues, error) {
	ws, err := a.Workspace(ctx)
	if err != nil {
		return nil, err
	}
	return a.Schema.Catalog(ctx, ws)
}

// CheckUser validates a submitter login.
func (a *App) CheckUser(ctx context.Context, login string) resolve.Check {
	return a.Refs.CheckLogin(ctx, login)
}
