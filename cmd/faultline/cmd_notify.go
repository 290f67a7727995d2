package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"faultline/internal/defect"
	"faultline/internal/format"
	"faultline/internal/logging"
	"faultline/internal/wiring"
)

type notifyFlags struct {
	job              string
	build            int
	status           string
	url              string
	createIfUnstable bool

	project     string
	priority    string
	severity    string
	submittedBy string
	titlePrefix string
}

func newNotifyCmd(opts *rootOptions) *cobra.Command {
	var fl notifyFlags
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "File a defect for a finished build",
		Long: `Run as the last step of a CI job. A FAILURE build always files a defect; an
UNSTABLE build files only with --create-if-unstable (or create_if_unstable in
the config). Tracker-side problems are reported but never fail the command,
so a tracker outage cannot fail the build.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNotify(cmd, opts, &fl)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&fl.job, "job", "j", "", "Build display name, e.g. 'MyJob #42' (required)")
	f.IntVarP(&fl.build, "build", "b", 0, "Numeric build id (required)")
	f.StringVarP(&fl.status, "status", "s", "", "Final build status: FAILURE, UNSTABLE, SUCCESS, ABORTED, NOT_BUILT (required)")
	f.StringVarP(&fl.url, "url", "u", "", "Console log URL linked from the defect description")
	f.BoolVar(&fl.createIfUnstable, "create-if-unstable", false, "File a defect for unstable builds too")
	f.StringVar(&fl.project, "project", "", "Project to file in (overrides config)")
	f.StringVar(&fl.priority, "priority", "", "Defect priority (overrides config)")
	f.StringVar(&fl.severity, "severity", "", "Defect severity (overrides config)")
	f.StringVar(&fl.submittedBy, "submitted-by", "", "Submitter login (overrides config)")
	f.StringVar(&fl.titlePrefix, "title-prefix", "", "Defect title prefix (overrides config)")

	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("build")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func runNotify(cmd *cobra.Command, opts *rootOptions, fl *notifyFlags) error {
	status, err := defect.ParseStatus(fl.status)
	if err != nil {
		return err
	}
	build := defect.Build{DisplayName: fl.job, Number: fl.build, Status: status, ConsoleURL: fl.url}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	settings := cfg.Settings()
	if cmd.Flags().Changed("create-if-unstable") {
		settings.CreateIfUnstable = fl.createIfUnstable
	}
	for _, o := range []struct {
		dst *string
		val string
	}{
		{&settings.Project, fl.project},
		{&settings.Priority, fl.priority},
		{&settings.Severity, fl.severity},
		{&settings.SubmittedBy, fl.submittedBy},
		{&settings.TitlePrefix, fl.titlePrefix},
	} {
		if o.val != "" {
			*o.dst = o.val
		}
	}

	out := cmd.OutOrStdout()
	if !defect.ShouldFile(status, settings.CreateIfUnstable) {
		fmt.Fprintf(out, "... Build is at status %s; no defect created\n", status)
		return nil
	}

	app, err := wiring.New(cfg)
	if err != nil {
		return err
	}
	res := app.Notify(cmd.Context(), settings, build)
	fmt.Fprint(out, format.Submission(&res, opts.mode))
	if res.Outcome != defect.Created {
		logging.New("notify").Warn("defect not filed", "outcome", res.Outcome, "job", fl.job, "build", fl.build)
	}
	return nil
}
