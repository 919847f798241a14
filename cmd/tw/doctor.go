package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tagwarden/tagwarden/internal/config"
	"github.com/tagwarden/tagwarden/internal/notify"
	"github.com/tagwarden/tagwarden/internal/policy"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// DoctorResult is the structured output of tw doctor. It can be serialised to
// JSON via --format=json or rendered as a human-readable table (default).
type DoctorResult struct {
	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		RegionsOK   bool   `json:"regions_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Policy struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	Config struct {
		Path    string `json:"path"`
		Present bool   `json:"present"`
		Valid   bool   `json:"valid"`
		Error   string `json:"error,omitempty"`
	} `json:"config"`

	Notify struct {
		Configured bool   `json:"configured"`
		URL        string `json:"url,omitempty"`
		Reachable  bool   `json:"reachable"`
		Error      string `json:"error,omitempty"`
	} `json:"notify"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")
			policyPath, _ := cmd.Flags().GetString("policy")
			configPath, _ := cmd.Flags().GetString("config")
			result, err := runDoctor(
				cmd.Context(),
				common.NewDefaultAWSClientProvider(),
				cmd.OutOrStdout(),
				format,
				profile,
				policyPath,
				configPath,
			)
			if err != nil {
				// Rendering failure — let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to use (default: credential chain)")
	cmd.Flags().String("policy", "", "Tag policy file (default: config setting, then ./tagwarden.yaml)")
	cmd.Flags().String("config", "", "App config file (default: ~/.config/tagwarden/config.yaml)")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy to determine whether the
// environment is healthy; runDoctor itself never returns an error for an
// unhealthy result so that no error text leaks to callers (such as main).
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, format, profile, policyPath, configPath string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, profile, policyPath, configPath)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a DoctorResult.
// It performs no rendering; callers decide how to present the result.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, profile, policyPath, configPath string) DoctorResult {
	var result DoctorResult

	// App config: missing file is fine, unreadable or malformed is not.
	loader := config.NewFileLoader(configPath)
	result.Config.Path = loader.ConfigPath()
	if _, statErr := os.Stat(loader.ConfigPath()); statErr == nil {
		result.Config.Present = true
	}
	cfg, err := loader.Load()
	if err != nil {
		result.Config.Error = err.Error()
		cfg = &config.Config{}
	} else {
		result.Config.Valid = true
	}

	// AWS: credentials → STS account ID → region discovery.
	// An empty profile string selects the default credential chain.
	if profile == "" {
		profile = cfg.AWS.DefaultProfile
	}
	if profile != "" {
		result.AWS.Profile = profile
	}
	profileCfg, err := awsProvider.LoadProfile(ctx, profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
		_, err = awsProvider.GetActiveRegions(ctx, profileCfg)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.RegionsOK = true
		}
	}

	// Policy: required for every run, so a missing file is unhealthy.
	if policyPath == "" {
		policyPath = cfg.Policy.Path
	}
	if policyPath == "" {
		policyPath = defaultPolicyFile
	}
	result.Policy.Path = policyPath
	if _, statErr := os.Stat(policyPath); statErr == nil {
		result.Policy.Present = true
		pol, loadErr := policy.Load(policyPath)
		if loadErr != nil {
			result.Policy.Errors = []string{loadErr.Error()}
		} else if errs := policy.Validate(pol); len(errs) > 0 {
			for _, e := range errs {
				result.Policy.Errors = append(result.Policy.Errors, e.Error())
			}
		} else {
			result.Policy.Valid = true
		}
	}

	// Notifier: only checked when a webhook is configured.
	if cfg.Notify.WebhookURL != "" {
		result.Notify.Configured = true
		result.Notify.URL = cfg.Notify.WebhookURL
		if err := notify.NewWebhook(cfg.Notify.WebhookURL).Check(ctx); err != nil {
			result.Notify.Error = err.Error()
		} else {
			result.Notify.Reachable = true
		}
	}

	result.OverallHealthy = result.AWS.Credentials &&
		result.AWS.RegionsOK &&
		result.Policy.Present &&
		result.Policy.Valid &&
		result.Config.Error == "" &&
		(!result.Notify.Configured || result.Notify.Reachable)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if !result.AWS.Credentials {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
		doctorPrint(w, "Regions API", "FAIL", "skipped")
	} else {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		if result.AWS.RegionsOK {
			doctorPrint(w, "Regions API", "OK", "")
		} else {
			doctorPrint(w, "Regions API", "FAIL", result.AWS.Error)
		}
	}

	fmt.Fprintln(w, "\nTag Policy:")
	if !result.Policy.Present {
		doctorPrint(w, result.Policy.Path, "Not found", "")
	} else {
		doctorPrint(w, result.Policy.Path, "Present", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}

	fmt.Fprintln(w, "\nApp Config:")
	if !result.Config.Present {
		doctorPrint(w, result.Config.Path, "Not found (optional)", "")
	} else if result.Config.Error != "" {
		doctorPrint(w, result.Config.Path, "FAIL", result.Config.Error)
	} else {
		doctorPrint(w, result.Config.Path, "OK", "")
	}

	fmt.Fprintln(w, "\nNotifier:")
	if !result.Notify.Configured {
		doctorPrint(w, "Webhook", "Not configured (optional)", "")
	} else if result.Notify.Reachable {
		doctorPrint(w, "Webhook", "OK", result.Notify.URL)
	} else {
		doctorPrint(w, "Webhook", "FAIL", result.Notify.Error)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
