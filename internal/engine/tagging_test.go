package engine

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/tagwarden/tagwarden/internal/compliance"
	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/plan"
	"github.com/tagwarden/tagwarden/internal/policy"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubProvider struct {
	profiles      []*common.ProfileConfig
	activeRegions []string
	loadErr       error
}

func (s *stubProvider) LoadProfile(ctx context.Context, name string) (*common.ProfileConfig, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.profiles[0], nil
}

func (s *stubProvider) LoadAllProfiles(ctx context.Context) ([]*common.ProfileConfig, error) {
	return s.profiles, nil
}

func (s *stubProvider) GetActiveRegions(ctx context.Context, cfg *common.ProfileConfig) ([]string, error) {
	return s.activeRegions, nil
}

func (s *stubProvider) ConfigForRegion(cfg *common.ProfileConfig, region string) aws.Config {
	c := cfg.Config
	c.Region = region
	return c
}

type stubEC2 struct {
	mu       sync.Mutex
	byRegion map[string][]models.ResourceTagState
	applied  [][]plan.Plan
}

func (s *stubEC2) Collect(ctx context.Context, cfg aws.Config, region string) ([]models.ResourceTagState, error) {
	return s.byRegion[region], nil
}

func (s *stubEC2) Apply(ctx context.Context, cfg aws.Config, plans []plan.Plan) []models.ApplyResult {
	s.mu.Lock()
	s.applied = append(s.applied, plans)
	s.mu.Unlock()
	results := make([]models.ApplyResult, len(plans))
	for i, pl := range plans {
		results[i] = models.ApplyResult{
			ResourceID:  pl.Resource.ResourceID,
			Kind:        pl.Resource.Kind,
			Region:      pl.Resource.Region,
			Status:      models.StatusTagged,
			TagsApplied: pl.Keys(),
		}
	}
	return results
}

type stubS3 struct {
	mu      sync.Mutex
	buckets []models.ResourceTagState
	applied [][]plan.Plan
}

func (s *stubS3) Collect(ctx context.Context, cfg aws.Config, regions []string) ([]models.ResourceTagState, error) {
	return s.buckets, nil
}

func (s *stubS3) Apply(ctx context.Context, cfg aws.Config, plans []plan.Plan) []models.ApplyResult {
	s.mu.Lock()
	s.applied = append(s.applied, plans)
	s.mu.Unlock()
	results := make([]models.ApplyResult, len(plans))
	for i, pl := range plans {
		results[i] = models.ApplyResult{
			ResourceID:  pl.Resource.ResourceID,
			Kind:        pl.Resource.Kind,
			Region:      pl.Resource.Region,
			Status:      models.StatusTagged,
			TagsApplied: pl.Keys(),
		}
	}
	return results
}

func testProfile(name, account string) *common.ProfileConfig {
	return &common.ProfileConfig{
		ProfileName: name,
		AccountID:   account,
		Region:      "us-east-1",
		Config:      aws.Config{Region: "us-east-1"},
	}
}

func testPolicy() *policy.Policy {
	return &policy.Policy{
		Version: 1,
		Tags:    map[string]string{"owner": "platform", "env": "prod"},
	}
}

func instance(id, region string, tags map[string]string) models.ResourceTagState {
	return models.ResourceTagState{ResourceID: id, Kind: models.ResourceEC2Instance, Region: region, Tags: tags}
}

func bucket(id, region string, tags map[string]string) models.ResourceTagState {
	return models.ResourceTagState{ResourceID: id, Kind: models.ResourceS3Bucket, Region: region, Tags: tags}
}

func newTestEngine(provider *stubProvider, ec2 *stubEC2, s3 *stubS3, p *policy.Policy) *TagEngine {
	return NewTagEngine(provider, ec2, s3, compliance.NewStandardRegistry(), p)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRun_RejectsUnknownMode(t *testing.T) {
	e := newTestEngine(&stubProvider{profiles: []*common.ProfileConfig{testProfile("default", "1")}}, &stubEC2{}, &stubS3{}, testPolicy())
	if _, err := e.Run(context.Background(), RunOptions{Mode: "destroy"}); err == nil {
		t.Fatal("want error for unknown mode")
	}
}

func TestRun_RequiresPolicy(t *testing.T) {
	e := newTestEngine(&stubProvider{}, &stubEC2{}, &stubS3{}, nil)
	if _, err := e.Run(context.Background(), RunOptions{Mode: ModeApply}); err == nil {
		t.Fatal("want error when no policy is loaded")
	}
}

func TestRun_ApplyPass(t *testing.T) {
	compliant := map[string]string{"owner": "platform", "env": "prod"}

	ec2 := &stubEC2{byRegion: map[string][]models.ResourceTagState{
		"eu-west-1": {
			instance("i-ok", "eu-west-1", compliant),
			instance("i-missing", "eu-west-1", nil),
		},
		"us-east-1": {
			instance("i-drift", "us-east-1", map[string]string{"owner": "old", "env": "prod"}),
		},
	}}
	s3 := &stubS3{buckets: []models.ResourceTagState{
		bucket("logs", "eu-west-1", nil),
		bucket("data", "us-east-1", compliant),
	}}
	provider := &stubProvider{profiles: []*common.ProfileConfig{testProfile("default", "111122223333")}}

	e := newTestEngine(provider, ec2, s3, testPolicy())
	report, err := e.Run(context.Background(), RunOptions{
		Mode:    ModeApply,
		Regions: []string{"eu-west-1", "us-east-1"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := report.Summary
	if s.ResourcesScanned != 5 || s.Compliant != 2 || s.Tagged != 3 || s.Failed != 0 {
		t.Errorf("summary: %+v", s)
	}

	// Only actionable plans reach the taggers.
	var ec2Applied int
	for _, batch := range ec2.applied {
		ec2Applied += len(batch)
	}
	if ec2Applied != 2 {
		t.Errorf("ec2 applied: got %d plans, want 2", ec2Applied)
	}
	if len(s3.applied) != 1 || len(s3.applied[0]) != 1 || s3.applied[0][0].Resource.ResourceID != "logs" {
		t.Errorf("s3 applied: %+v", s3.applied)
	}

	// Findings: i-missing and logs missing both keys (HIGH), i-drift (MEDIUM).
	if s.TotalFindings != 3 || s.HighFindings != 2 || s.MediumFindings != 1 {
		t.Errorf("findings summary: %+v", s)
	}
	// Sorted: HIGH before MEDIUM.
	if report.Findings[len(report.Findings)-1].CheckID != "TAG_VALUE_DRIFT" {
		t.Errorf("findings not sorted by severity: %+v", report.Findings)
	}

	if report.Mode != "apply" || report.AccountID != "111122223333" || report.Profile != "default" {
		t.Errorf("report header: %+v", report)
	}
}

func TestRun_DryRunNeverApplies(t *testing.T) {
	ec2 := &stubEC2{byRegion: map[string][]models.ResourceTagState{
		"eu-west-1": {instance("i-missing", "eu-west-1", nil)},
	}}
	s3 := &stubS3{buckets: []models.ResourceTagState{bucket("logs", "eu-west-1", nil)}}
	provider := &stubProvider{profiles: []*common.ProfileConfig{testProfile("default", "1")}}

	e := newTestEngine(provider, ec2, s3, testPolicy())
	report, err := e.Run(context.Background(), RunOptions{
		Mode:    ModeApply,
		DryRun:  true,
		Regions: []string{"eu-west-1"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ec2.applied) != 0 || len(s3.applied) != 0 {
		t.Error("dry run must not call Apply")
	}
	if report.Summary.Planned != 2 || report.Summary.Tagged != 0 {
		t.Errorf("summary: %+v", report.Summary)
	}
	if !report.DryRun {
		t.Error("report must carry the dry-run flag")
	}
}

func TestRun_AuditNeverApplies(t *testing.T) {
	ec2 := &stubEC2{byRegion: map[string][]models.ResourceTagState{
		"eu-west-1": {instance("i-missing", "eu-west-1", nil)},
	}}
	s3 := &stubS3{}
	provider := &stubProvider{profiles: []*common.ProfileConfig{testProfile("default", "1")}}

	e := newTestEngine(provider, ec2, s3, testPolicy())
	report, err := e.Run(context.Background(), RunOptions{Mode: ModeAudit, Regions: []string{"eu-west-1"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ec2.applied) != 0 {
		t.Error("audit must not call Apply")
	}
	if report.Summary.Planned != 1 || report.Summary.TotalFindings != 1 {
		t.Errorf("summary: %+v", report.Summary)
	}
}

func TestRun_ExclusionsSkipped(t *testing.T) {
	p := testPolicy()
	p.Exclusions = []string{"i-skip"}

	ec2 := &stubEC2{byRegion: map[string][]models.ResourceTagState{
		"eu-west-1": {
			instance("i-skip-001", "eu-west-1", nil),
			instance("i-keep", "eu-west-1", nil),
		},
	}}
	provider := &stubProvider{profiles: []*common.ProfileConfig{testProfile("default", "1")}}

	e := newTestEngine(provider, ec2, &stubS3{}, p)
	report, err := e.Run(context.Background(), RunOptions{Mode: ModeAudit, Regions: []string{"eu-west-1"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.ResourcesScanned != 1 {
		t.Errorf("excluded resource must not be scanned: %+v", report.Summary)
	}
	if report.Results[0].ResourceID != "i-keep" {
		t.Errorf("wrong resource kept: %+v", report.Results)
	}
}

func TestResolveRegions_Precedence(t *testing.T) {
	provider := &stubProvider{
		profiles:      []*common.ProfileConfig{testProfile("default", "1")},
		activeRegions: []string{"discovered-1", "discovered-2"},
	}
	p := testPolicy()
	p.Regions = []string{"policy-region"}
	e := newTestEngine(provider, &stubEC2{}, &stubS3{}, p)

	// Explicit CLI list wins.
	got, err := e.resolveRegions(context.Background(), provider.profiles[0], []string{"cli-region"})
	if err != nil || !reflect.DeepEqual(got, []string{"cli-region"}) {
		t.Errorf("explicit: got %v, %v", got, err)
	}

	// Policy list next.
	got, err = e.resolveRegions(context.Background(), provider.profiles[0], nil)
	if err != nil || !reflect.DeepEqual(got, []string{"policy-region"}) {
		t.Errorf("policy: got %v, %v", got, err)
	}

	// Discovery as the fallback.
	p.Regions = nil
	got, err = e.resolveRegions(context.Background(), provider.profiles[0], nil)
	if err != nil || !reflect.DeepEqual(got, []string{"discovered-1", "discovered-2"}) {
		t.Errorf("discovered: got %v, %v", got, err)
	}
}

func TestRun_AllProfilesMerges(t *testing.T) {
	provider := &stubProvider{profiles: []*common.ProfileConfig{
		testProfile("staging", "1111"),
		testProfile("prod", "2222"),
	}}
	ec2 := &stubEC2{byRegion: map[string][]models.ResourceTagState{
		"eu-west-1": {instance("i-1", "eu-west-1", nil)},
	}}

	e := newTestEngine(provider, ec2, &stubS3{}, testPolicy())
	report, err := e.Run(context.Background(), RunOptions{
		Mode:        ModeAudit,
		AllProfiles: true,
		Regions:     []string{"eu-west-1"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Profile != "multi" {
		t.Errorf("profile: got %q, want multi", report.Profile)
	}
	// Both profiles see the same stubbed instance.
	if report.Summary.ResourcesScanned != 2 {
		t.Errorf("scanned: got %d, want 2", report.Summary.ResourcesScanned)
	}
	// Shared region list is deduplicated.
	if !reflect.DeepEqual(report.Regions, []string{"eu-west-1"}) {
		t.Errorf("regions: got %v", report.Regions)
	}
}

func TestRun_LoadProfileError(t *testing.T) {
	provider := &stubProvider{loadErr: errors.New("no credentials")}
	e := newTestEngine(provider, &stubEC2{}, &stubS3{}, testPolicy())
	if _, err := e.Run(context.Background(), RunOptions{Mode: ModeApply}); err == nil {
		t.Fatal("want error when profile cannot load")
	}
}
