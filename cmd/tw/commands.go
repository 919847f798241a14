package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/compliance"
	"github.com/tagwarden/tagwarden/internal/config"
	"github.com/tagwarden/tagwarden/internal/engine"
	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/notify"
	"github.com/tagwarden/tagwarden/internal/output"
	"github.com/tagwarden/tagwarden/internal/policy"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
	"github.com/tagwarden/tagwarden/internal/providers/aws/ec2tags"
	"github.com/tagwarden/tagwarden/internal/providers/aws/s3tags"
	"github.com/tagwarden/tagwarden/internal/scheduler"
	"github.com/tagwarden/tagwarden/internal/version"
)

// defaultPolicyFile is used when neither --policy nor the app config names
// a policy file.
const defaultPolicyFile = "./tagwarden.yaml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tw",
		Short: "Tag Warden — AWS tag compliance and enforcement",
	}
	root.AddCommand(newApplyCmd())
	root.AddCommand(newAuditCmd())
	root.AddCommand(newDaemonCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// runFlags are the options shared by apply, audit, and daemon.
type runFlags struct {
	profile     string
	allProfiles bool
	regions     []string
	policyPath  string
	configPath  string
	reportFmt   string
	summary     bool
	output      string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile name (default: uses environment / default profile)")
	cmd.Flags().BoolVar(&f.allProfiles, "all-profiles", false, "Run across all configured AWS profiles")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "AWS region(s) to cover (default: policy regions, then all active regions)")
	cmd.Flags().StringVar(&f.policyPath, "policy", "", "Tag policy file (default: config setting, then ./tagwarden.yaml)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "App config file (default: ~/.config/tagwarden/config.yaml)")
	cmd.Flags().StringVar(&f.reportFmt, "report", "table", "Output format: json or table")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Print compact summary: totals and severity breakdown")
	cmd.Flags().StringVar(&f.output, "output", "", "Write full JSON report to this file path (in addition to stdout output)")
}

// runSetup is everything a run command needs after config and policy
// resolution.
type runSetup struct {
	cfg    *config.Config
	policy *policy.Policy
	engine engine.Engine
}

// setup loads the app config, resolves and validates the tag policy, and
// wires the engine.
func (f *runFlags) setup() (*runSetup, error) {
	cfg, err := config.NewFileLoader(f.configPath).Load()
	if err != nil {
		return nil, err
	}

	policyPath := f.policyPath
	if policyPath == "" {
		policyPath = cfg.Policy.Path
	}
	if policyPath == "" {
		policyPath = defaultPolicyFile
	}

	pol, err := policy.Load(policyPath)
	if err != nil {
		return nil, fmt.Errorf("load tag policy: %w", err)
	}
	if errs := policy.Validate(pol); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "policy: %v\n", e)
		}
		return nil, fmt.Errorf("tag policy %s failed validation with %d error(s)", policyPath, len(errs))
	}

	if f.profile == "" {
		f.profile = cfg.AWS.DefaultProfile
	}

	limiter := common.NewAPILimiter()
	eng := engine.NewTagEngine(
		common.NewDefaultAWSClientProvider(),
		ec2tags.NewProvider(limiter),
		s3tags.NewProvider(limiter),
		compliance.NewStandardRegistry(),
		pol,
	)

	return &runSetup{cfg: cfg, policy: pol, engine: eng}, nil
}

func (f *runFlags) runOptions(mode engine.Mode, dryRun bool) engine.RunOptions {
	return engine.RunOptions{
		Mode:        mode,
		Profile:     f.profile,
		AllProfiles: f.allProfiles,
		Regions:     f.regions,
		DryRun:      dryRun,
	}
}

func newApplyCmd() *cobra.Command {
	var (
		flags  runFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply the tag policy to EC2 instances and S3 buckets",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.setup()
			if err != nil {
				return err
			}

			report, err := s.engine.Run(cmd.Context(), flags.runOptions(engine.ModeApply, dryRun))
			if err != nil {
				return fmt.Errorf("apply failed: %w", err)
			}
			return flags.render(report)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report tag changes without applying them")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:           "audit",
		Short:         "Audit tag compliance without changing anything",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.setup()
			if err != nil {
				return err
			}

			report, err := s.engine.Run(cmd.Context(), flags.runOptions(engine.ModeAudit, false))
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}
			if err := flags.render(report); err != nil {
				return err
			}
			if policy.ShouldFail(report.Findings, s.policy) {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newDaemonCmd() *cobra.Command {
	var (
		flags    runFlags
		interval string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the tag policy on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.setup()
			if err != nil {
				return err
			}

			effective := s.policy.Schedule.EffectiveInterval()
			if s.cfg.Daemon.Interval > 0 {
				effective = s.cfg.Daemon.Interval.Std()
			}
			if interval != "" {
				effective, err = parseInterval(interval)
				if err != nil {
					return err
				}
			}

			var notifier notify.Notifier = notify.Noop{}
			if s.cfg.Notify.WebhookURL != "" {
				notifier = notify.NewWebhook(s.cfg.Notify.WebhookURL)
			}

			runOnStart := s.policy.Schedule.RunOnStart || s.cfg.Daemon.RunOnStart
			job := newDaemonJob(s.engine, notifier, flags.runOptions(engine.ModeApply, false), cmd.OutOrStdout())

			err = scheduler.New(effective, runOnStart, job).Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&interval, "interval", "", `Pass interval like "30m" (default: policy schedule, then 1h)`)
	return cmd
}

// newDaemonJob builds one scheduled pass: run the engine, print the summary
// line, and deliver the report to the notifier. A run-level failure is
// delivered as a failure payload before the error is returned, so the webhook
// sees unsuccessful passes too.
func newDaemonJob(eng engine.Engine, notifier notify.Notifier, opts engine.RunOptions, out io.Writer) scheduler.Job {
	return func(ctx context.Context) error {
		report, err := eng.Run(ctx, opts)
		if err != nil {
			if nerr := notifier.NotifyFailure(ctx, err); nerr != nil {
				log.WithError(nerr).Error("failure notification not delivered")
			}
			return err
		}
		fmt.Fprintln(out, notify.SummaryLine(report))
		return notifier.Notify(ctx, report)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// parseInterval parses a --interval flag value.
func parseInterval(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--interval must be positive, got %q", s)
	}
	return d, nil
}

// render writes the report per the shared output flags.
func (f *runFlags) render(report *models.RunReport) error {
	if f.output != "" {
		if err := writeReportToFile(f.output, report); err != nil {
			return err
		}
	}
	if f.summary {
		printSummary(os.Stdout, report)
		return nil
	}
	if engine.ReportFormat(f.reportFmt) == engine.ReportFormatJSON {
		return printJSON(report)
	}
	printTable(os.Stdout, report, f.allProfiles)
	return nil
}

// printJSON writes the report as indented JSON to stdout.
func printJSON(report *models.RunReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReportToFile serialises report as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

// printSummary renders a compact summary view to w:
//   - Account / profile / region header
//   - Per-status resource counts
//   - Per-severity finding counts
//
// It reuses the already-computed RunReport; no engine logic is duplicated.
func printSummary(w io.Writer, report *models.RunReport) {
	s := report.Summary

	fmt.Fprintf(w, "Account:  %s\n", report.AccountID)
	fmt.Fprintf(w, "Profile:  %s\n", report.Profile)
	fmt.Fprintf(w, "Regions:  %d\n", len(report.Regions))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Resources Scanned:  %d\n", s.ResourcesScanned)
	fmt.Fprintf(w, "  %-10s  %d\n", "compliant", s.Compliant)
	fmt.Fprintf(w, "  %-10s  %d\n", "tagged", s.Tagged)
	fmt.Fprintf(w, "  %-10s  %d\n", "planned", s.Planned)
	fmt.Fprintf(w, "  %-10s  %d\n", "blocked", s.Blocked)
	fmt.Fprintf(w, "  %-10s  %d\n", "failed", s.Failed)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Findings:  %d\n", s.TotalFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "HIGH", s.HighFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "MEDIUM", s.MediumFindings)
	fmt.Fprintf(w, "  %-10s  %d\n", "LOW", s.LowFindings)
}

// printTable renders a one-line header, the per-resource results table, and,
// when findings exist, the compliance findings table.
func printTable(w io.Writer, report *models.RunReport, includeProfile bool) {
	s := report.Summary
	fmt.Fprintf(w,
		"Profile: %-20s  Account: %-14s  Regions: %d  Scanned: %d  Findings: %d\n",
		report.Profile,
		report.AccountID,
		len(report.Regions),
		s.ResourcesScanned,
		s.TotalFindings,
	)
	fmt.Fprintln(w)

	opts := output.TableOptions{IncludeProfile: includeProfile}
	output.RenderResults(w, report.Results, opts)

	if len(report.Findings) > 0 {
		fmt.Fprintln(w)
		output.RenderFindings(w, report.Findings, opts)
	}
}
