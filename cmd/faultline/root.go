package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faultline/internal/format"
	"faultline/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// rootOptions holds the flags every command shares.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
	output     string

	baseURL    string
	apiKeyFile string
	workspace  string

	mode format.Mode
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "faultline",
		Short: "File tracker defects for failed CI builds",
		Long: "faultline files a defect in the work tracker when a CI build fails\n" +
			"(or ends unstable, when configured), tags it for the build team, and\n" +
			"answers the lookups needed to configure it.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			logFormat, err := logging.ParseFormat(opts.logFormat)
			if err != nil {
				return err
			}
			logging.Init(level, logFormat, cmd.ErrOrStderr())
			opts.mode, err = format.ParseMode(opts.output)
			return err
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	f.StringVar(&opts.envFile, "env-file", "", "Load environment overrides from this file (default .env if present)")
	f.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	f.StringVarP(&opts.output, "output", "o", "table", "Report format (table, markdown)")
	f.StringVar(&opts.baseURL, "base-url", "", "Tracker base URL (overrides config)")
	f.StringVar(&opts.apiKeyFile, "api-key-file", "", "Read the tracker API key from this file (overrides config)")
	f.StringVarP(&opts.workspace, "workspace", "w", "", "Tracker workspace name (overrides config)")

	cmd.AddCommand(newNotifyCmd(opts))
	cmd.AddCommand(newProjectsCmd(opts))
	cmd.AddCommand(newValuesCmd(opts))
	cmd.AddCommand(newCheckUserCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.Version = version
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
