package common

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultAWSClientProvider is the production implementation of
// AWSClientProvider. It reads credentials from the standard AWS shared config
// files (~/.aws/config and ~/.aws/credentials) via the AWS SDK v2.
//
// Inject a custom ClientFactory via NewDefaultAWSClientProviderWithFactory to
// replace real SDK clients with mocks in unit tests.
type DefaultAWSClientProvider struct {
	factory ClientFactory
}

// NewDefaultAWSClientProvider returns a provider backed by the real AWS SDK.
func NewDefaultAWSClientProvider() *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: NewClientSet}
}

// NewDefaultAWSClientProviderWithFactory returns a provider that uses f to
// create its ClientSet. Pass a mock factory in tests.
func NewDefaultAWSClientProviderWithFactory(f ClientFactory) *DefaultAWSClientProvider {
	return &DefaultAWSClientProvider{factory: f}
}

// LoadProfile loads the AWS SDK config for the named profile and returns a
// fully populated ProfileConfig with the resolved account ID and service
// clients. Pass an empty string for the default credential chain.
func (p *DefaultAWSClientProvider) LoadProfile(ctx context.Context, profile string) (*ProfileConfig, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS profile %q: %w", profileDisplayName(profile), err)
	}

	// Profiles without a region still need constructible SDK clients.
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	clients := p.factory(cfg)

	out, err := clients.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("resolve account ID for profile %q: %w", profileDisplayName(profile), err)
	}
	if out.Account == nil {
		return nil, fmt.Errorf("STS GetCallerIdentity returned nil account for profile %q", profileDisplayName(profile))
	}

	return &ProfileConfig{
		ProfileName: profileDisplayName(profile),
		AccountID:   aws.ToString(out.Account),
		Region:      cfg.Region,
		Config:      cfg,
		Clients:     clients,
	}, nil
}

// LoadAllProfiles discovers every profile defined in the shared AWS config
// files and loads each one. Profiles that fail to load (expired or missing
// credentials) are skipped so one bad profile does not block the rest.
func (p *DefaultAWSClientProvider) LoadAllProfiles(ctx context.Context) ([]*ProfileConfig, error) {
	names, err := discoverProfileNames()
	if err != nil {
		return nil, fmt.Errorf("discover AWS profiles: %w", err)
	}

	var profiles []*ProfileConfig
	for _, name := range names {
		arg := name
		if name == "default" {
			arg = ""
		}
		pc, loadErr := p.LoadProfile(ctx, arg)
		if loadErr != nil {
			continue
		}
		profiles = append(profiles, pc)
	}
	return profiles, nil
}

// GetActiveRegions returns all AWS regions the account has opted into, via
// EC2 DescribeRegions. The call is global and works from any home region.
func (p *DefaultAWSClientProvider) GetActiveRegions(ctx context.Context, cfg *ProfileConfig) ([]string, error) {
	out, err := cfg.Clients.EC2.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		// AllRegions false returns only opted-in regions.
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions for profile %q: %w", cfg.ProfileName, err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if r.RegionName != nil {
			regions = append(regions, *r.RegionName)
		}
	}
	return regions, nil
}

// ConfigForRegion returns a copy of cfg.Config with Region set to region.
func (p *DefaultAWSClientProvider) ConfigForRegion(cfg *ProfileConfig, region string) aws.Config {
	regional := cfg.Config
	regional.Region = region
	return regional
}

// profileDisplayName normalises the empty string (default credential chain)
// to "default" for reports and error messages.
func profileDisplayName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

// discoverProfileNames merges the profile names found in ~/.aws/credentials
// and ~/.aws/config, deduplicated in first-seen order.
func discoverProfileNames() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	credProfiles, err := profilesFromINI(filepath.Join(home, ".aws", "credentials"), false)
	if err != nil {
		return nil, err
	}
	// ~/.aws/config prefixes non-default sections with "profile ".
	cfgProfiles, err := profilesFromINI(filepath.Join(home, ".aws", "config"), true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// profilesFromINI extracts the section headers from an AWS shared config
// file. A missing file yields nil without an error. When stripPrefix is true
// the "profile " prefix used by ~/.aws/config is removed.
func profilesFromINI(path string, stripPrefix bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var profiles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}
		name := strings.TrimSpace(line[1 : len(line)-1])
		if stripPrefix && name != "default" {
			name = strings.TrimPrefix(name, "profile ")
		}
		profiles = append(profiles, strings.TrimSpace(name))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return profiles, nil
}
