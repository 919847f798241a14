package engine

import (
	"context"

	"github.com/tagwarden/tagwarden/internal/models"
)

// Mode selects what a run does with the computed tag plans.
type Mode string

const (
	// ModeApply writes the planned tags (unless DryRun is set).
	ModeApply Mode = "apply"

	// ModeAudit evaluates compliance only and never mutates anything.
	ModeAudit Mode = "audit"
)

// ReportFormat controls the CLI output format.
type ReportFormat string

const (
	ReportFormatJSON  ReportFormat = "json"
	ReportFormatTable ReportFormat = "table"
)

// RunOptions configures a single tagging or audit run.
// It is the sole input to Engine.Run.
type RunOptions struct {
	// Mode selects apply or audit behaviour.
	Mode Mode

	// Profile is the named AWS profile to use. Empty means the default
	// credential chain.
	Profile string

	// AllProfiles, when true, runs the pass across every configured AWS profile.
	AllProfiles bool

	// Regions is an explicit region list overriding the policy. When both are
	// empty the engine discovers and iterates all opted-in regions.
	Regions []string

	// DryRun computes and reports plans without applying them.
	// Only meaningful with ModeApply; ModeAudit never applies.
	DryRun bool
}

// Engine is the central orchestration interface. It coordinates resource
// collection, delta planning, compliance evaluation, and tag application,
// returning a fully populated RunReport.
//
// Engine must not construct AWS SDK clients directly; it delegates to the
// provider and tagging interfaces.
type Engine interface {
	Run(ctx context.Context, opts RunOptions) (*models.RunReport, error)
}
