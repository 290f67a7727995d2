package main

import (
	"fmt"
	"os"

	"faultline/internal/config"
	"faultline/internal/tracker"
	"faultline/internal/wiring"
)

// loadConfig reads the configuration sources and applies the global flag
// overrides on top.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	var dotenv []string
	if opts.envFile != "" {
		dotenv = append(dotenv, opts.envFile)
	}
	cfg, err := config.Load(opts.configPath, dotenv...)
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.workspace != "" {
		cfg.Workspace = opts.workspace
		cfg.Defect.Workspace = ""
	}
	if opts.apiKeyFile != "" {
		if err := checkKeyFile(opts.apiKeyFile); err != nil {
			return nil, err
		}
		key, err := tracker.ReadAPIKey(opts.apiKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read API key: %w", err)
		}
		cfg.APIKey = key
	}
	return cfg, nil
}

// newApp loads the configuration and assembles the pipeline.
func newApp(opts *rootOptions) (*wiring.App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return wiring.New(cfg)
}

func checkKeyFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("tracker API key file not found: %s\n\n"+
			"To get a tracker API key:\n"+
			"  1. Log in to the tracker and open the API Keys page\n"+
			"  2. Create a key with full access\n"+
			"  3. Save it:  echo '<YOUR_KEY>' > %s && chmod 600 %s\n", path, path, path)
	}
	if err != nil {
		return fmt.Errorf("check key file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0o044 != 0 {
		fmt.Fprintf(os.Stderr, "WARNING: %s is readable by group/others (mode %04o). Run: chmod 600 %s\n", path, perm, path)
	}
	return nil
}
