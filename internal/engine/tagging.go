package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/sync/errgroup"

	"github.com/tagwarden/tagwarden/internal/compliance"
	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/plan"
	"github.com/tagwarden/tagwarden/internal/policy"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// ec2Provider abstracts per-region EC2 tag collection and application.
// Storing interfaces decouples TagEngine from the concrete providers and
// allows stub injection in tests.
type ec2Provider interface {
	Collect(ctx context.Context, cfg aws.Config, region string) ([]models.ResourceTagState, error)
	Apply(ctx context.Context, cfg aws.Config, plans []plan.Plan) []models.ApplyResult
}

// s3Provider abstracts account-global S3 bucket tag collection and
// application.
type s3Provider interface {
	Collect(ctx context.Context, cfg aws.Config, regions []string) ([]models.ResourceTagState, error)
	Apply(ctx context.Context, cfg aws.Config, plans []plan.Plan) []models.ApplyResult
}

// TagEngine is the production implementation of Engine.
// It coordinates collection, planning, compliance evaluation, and tag
// application. It never constructs AWS SDK clients directly.
type TagEngine struct {
	provider common.AWSClientProvider
	ec2      ec2Provider
	s3       s3Provider
	checks   compliance.Registry
	policy   *policy.Policy
}

// NewTagEngine constructs a TagEngine wired to the supplied provider,
// tagging providers, check registry, and tag policy.
func NewTagEngine(
	provider common.AWSClientProvider,
	ec2 ec2Provider,
	s3 s3Provider,
	checks compliance.Registry,
	p *policy.Policy,
) *TagEngine {
	return &TagEngine{
		provider: provider,
		ec2:      ec2,
		s3:       s3,
		checks:   checks,
		policy:   p,
	}
}

// maxConcurrentProfiles caps the number of profiles processed in parallel.
// Keeps outbound AWS API concurrency predictable when many profiles are configured.
const maxConcurrentProfiles = 3

// maxConcurrentRegions caps per-region EC2 collection parallelism.
const maxConcurrentRegions = 5

// Run implements Engine. It loads the requested AWS profile(s), resolves the
// target regions, collects resource tag state, plans deltas, evaluates
// compliance checks, applies actionable plans (ModeApply without DryRun),
// and returns a fully populated RunReport.
func (e *TagEngine) Run(ctx context.Context, opts RunOptions) (*models.RunReport, error) {
	if opts.Mode != ModeApply && opts.Mode != ModeAudit {
		return nil, fmt.Errorf("unsupported run mode: %q", opts.Mode)
	}
	if e.policy == nil {
		return nil, fmt.Errorf("no tag policy loaded")
	}

	if opts.AllProfiles {
		return e.runAllProfiles(ctx, opts)
	}
	return e.runSingleProfile(ctx, opts)
}

// runSingleProfile executes one pass for one AWS profile.
func (e *TagEngine) runSingleProfile(ctx context.Context, opts RunOptions) (*models.RunReport, error) {
	profile, err := e.provider.LoadProfile(ctx, opts.Profile)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", opts.Profile, err)
	}

	regions, err := e.resolveRegions(ctx, profile, opts.Regions)
	if err != nil {
		return nil, fmt.Errorf("resolve regions for profile %q: %w", profile.ProfileName, err)
	}

	results, findings, err := e.runProfile(ctx, profile, regions, opts)
	if err != nil {
		return nil, err
	}

	return buildReport(opts, profile.ProfileName, profile.AccountID, regions, results, findings), nil
}

// runAllProfiles loads every configured AWS profile and runs each one in
// parallel (max maxConcurrentProfiles at a time), merging all results into a
// single report. The report-level Profile field is set to "multi"; each
// finding carries its own Profile and AccountID.
// Fail-fast: the first profile error cancels all remaining profile goroutines.
func (e *TagEngine) runAllProfiles(ctx context.Context, opts RunOptions) (*models.RunReport, error) {
	profiles, err := e.provider.LoadAllProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load all profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no AWS profiles found")
	}

	sem := make(chan struct{}, maxConcurrentProfiles)
	var (
		mu          sync.Mutex
		allResults  []models.ApplyResult
		allFindings []models.Finding
		allRegions  []string
		seenRegions = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)

PROFILES:
	for _, profile := range profiles {
		profile := profile
		select {
		case sem <- struct{}{}: // acquire slot; blocks when at capacity
		case <-gctx.Done():
			break PROFILES // cancelled by a prior goroutine error
		}

		g.Go(func() error {
			defer func() { <-sem }()

			regions, err := e.resolveRegions(gctx, profile, opts.Regions)
			if err != nil {
				return fmt.Errorf("resolve regions for profile %q: %w", profile.ProfileName, err)
			}

			results, findings, err := e.runProfile(gctx, profile, regions, opts)
			if err != nil {
				return err
			}

			mu.Lock()
			allResults = append(allResults, results...)
			allFindings = append(allFindings, findings...)
			for _, r := range regions {
				if _, seen := seenRegions[r]; !seen {
					seenRegions[r] = struct{}{}
					allRegions = append(allRegions, r)
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildReport(opts, "multi", "", allRegions, allResults, allFindings), nil
}

// runProfile collects, plans, evaluates, and (for apply mode) tags all
// in-scope resources for one loaded profile.
func (e *TagEngine) runProfile(
	ctx context.Context,
	profile *common.ProfileConfig,
	regions []string,
	opts RunOptions,
) ([]models.ApplyResult, []models.Finding, error) {
	resources, err := e.collect(ctx, profile, regions)
	if err != nil {
		return nil, nil, fmt.Errorf("collect resources for profile %q: %w", profile.ProfileName, err)
	}

	plans := plan.BuildAll(resources, e.policy.Tags, e.policy.Excluded)

	findings := e.checks.EvaluateAll(compliance.CheckContext{
		AccountID: profile.AccountID,
		Profile:   profile.ProfileName,
		Plans:     plans,
	})
	sortFindings(findings)

	results := e.dispatch(ctx, profile, plans, opts)
	sortResults(results)

	log.WithField("profile", profile.ProfileName).
		WithField("resources", len(plans)).
		WithField("findings", len(findings)).
		Info("pass complete")

	return results, findings, nil
}

// collect gathers resource tag states: EC2 per region in parallel (bounded by
// maxConcurrentRegions) and S3 once globally. A collection failure in any
// region fails the pass; without a complete inventory the compliance property
// cannot be asserted.
func (e *TagEngine) collect(
	ctx context.Context,
	profile *common.ProfileConfig,
	regions []string,
) ([]models.ResourceTagState, error) {
	var (
		mu        sync.Mutex
		resources []models.ResourceTagState
	)

	g, gctx := errgroup.WithContext(ctx)

	if e.policy.Resources.EC2Enabled() {
		sem := make(chan struct{}, maxConcurrentRegions)
	REGIONS:
		for _, region := range regions {
			region := region
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				break REGIONS
			}

			regionalCfg := e.provider.ConfigForRegion(profile, region)
			g.Go(func() error {
				defer func() { <-sem }()

				log.WithField("region", region).Debug("collecting EC2 instances")
				states, err := e.ec2.Collect(gctx, regionalCfg, region)
				if err != nil {
					return fmt.Errorf("collect EC2 instances in %s: %w", region, err)
				}
				mu.Lock()
				resources = append(resources, states...)
				mu.Unlock()
				return nil
			})
		}
	}

	if e.policy.Resources.S3Enabled() {
		g.Go(func() error {
			log.Debug("collecting S3 buckets")
			states, err := e.s3.Collect(gctx, profile.Config, regions)
			if err != nil {
				return fmt.Errorf("collect S3 buckets: %w", err)
			}
			mu.Lock()
			resources = append(resources, states...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resources, nil
}

// dispatch turns plans into results. Compliant and blocked plans never reach
// the taggers. In audit or dry-run mode actionable plans are reported as
// planned; otherwise they are applied per kind (EC2 grouped by region, S3 in
// one global pass).
func (e *TagEngine) dispatch(
	ctx context.Context,
	profile *common.ProfileConfig,
	plans []plan.Plan,
	opts RunOptions,
) []models.ApplyResult {
	var (
		results    []models.ApplyResult
		ec2Pending = make(map[string][]plan.Plan) // region → plans
		s3Pending  []plan.Plan
	)

	for _, pl := range plans {
		switch {
		case pl.Compliant():
			results = append(results, resultFor(pl, models.StatusCompliant, nil))
		case pl.ExceedsTagLimit():
			results = append(results, resultFor(pl, models.StatusBlocked, pl.Keys()))
		case opts.Mode == ModeAudit || opts.DryRun:
			results = append(results, resultFor(pl, models.StatusPlanned, pl.Keys()))
		case pl.Resource.Kind == models.ResourceEC2Instance:
			ec2Pending[pl.Resource.Region] = append(ec2Pending[pl.Resource.Region], pl)
		case pl.Resource.Kind == models.ResourceS3Bucket:
			s3Pending = append(s3Pending, pl)
		}
	}

	for region, pending := range ec2Pending {
		regionalCfg := e.provider.ConfigForRegion(profile, region)
		log.WithField("region", region).WithField("instances", len(pending)).Info("tagging EC2 instances")
		results = append(results, e.ec2.Apply(ctx, regionalCfg, pending)...)
	}
	if len(s3Pending) > 0 {
		log.WithField("buckets", len(s3Pending)).Info("tagging S3 buckets")
		results = append(results, e.s3.Apply(ctx, profile.Config, s3Pending)...)
	}

	return results
}

// resultFor builds an ApplyResult for a plan that did not go through a tagger.
func resultFor(pl plan.Plan, status models.ApplyStatus, keys []string) models.ApplyResult {
	return models.ApplyResult{
		ResourceID:  pl.Resource.ResourceID,
		Kind:        pl.Resource.Kind,
		Region:      pl.Resource.Region,
		Status:      status,
		TagsApplied: keys,
	}
}

// resolveRegions returns, in order of precedence: the explicit CLI region
// list, the policy's region list, or the account's opted-in regions.
func (e *TagEngine) resolveRegions(
	ctx context.Context,
	profile *common.ProfileConfig,
	explicit []string,
) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if len(e.policy.Regions) > 0 {
		return e.policy.Regions, nil
	}
	return e.provider.GetActiveRegions(ctx, profile)
}
