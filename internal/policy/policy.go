package policy

import (
	"time"

	"github.com/tagwarden/tagwarden/internal/config"
)

// Policy is the tag-compliance policy loaded from YAML. It declares which
// tags every resource must carry, which regions to cover, which resource
// kinds to manage, and how runs are scheduled and enforced.
//
// The Tags map is treated as immutable for the duration of a run.
type Policy struct {
	Version int `yaml:"version"`

	// Tags is the desired tag set: every managed resource must carry each
	// key with exactly this value.
	Tags map[string]string `yaml:"tags"`

	// Regions lists the AWS regions to cover. Empty means every region the
	// account has opted into (discovered via EC2 DescribeRegions).
	Regions []string `yaml:"regions"`

	Resources   ResourcesConfig   `yaml:"resources"`
	Exclusions  []string          `yaml:"exclusions"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

// ResourcesConfig toggles resource kinds on and off. Pointer fields
// distinguish "unset" (default true) from an explicit false.
type ResourcesConfig struct {
	EC2 *bool `yaml:"ec2,omitempty"`
	S3  *bool `yaml:"s3,omitempty"`
}

// EC2Enabled reports whether EC2 instances are in scope. Defaults to true.
func (r ResourcesConfig) EC2Enabled() bool { return r.EC2 == nil || *r.EC2 }

// S3Enabled reports whether S3 buckets are in scope. Defaults to true.
func (r ResourcesConfig) S3Enabled() bool { return r.S3 == nil || *r.S3 }

// EnforcementConfig controls audit exit behaviour.
type EnforcementConfig struct {
	// FailOnNoncompliant makes `tw audit` exit non-zero when any finding
	// at or above MinSeverity is present.
	FailOnNoncompliant bool `yaml:"fail_on_noncompliant"`

	// MinSeverity is the lowest severity that triggers enforcement.
	// Empty means any finding triggers it.
	MinSeverity string `yaml:"min_severity,omitempty"`
}

// ScheduleConfig configures the daemon loop.
type ScheduleConfig struct {
	// Interval between tagging passes, written as a Go duration string such
	// as "30m". Zero means the default of one hour.
	Interval config.Duration `yaml:"interval"`

	// RunOnStart triggers a pass immediately when the daemon starts instead
	// of waiting for the first tick.
	RunOnStart bool `yaml:"run_on_start"`
}

// EffectiveInterval returns the configured interval, defaulting to one hour.
func (s ScheduleConfig) EffectiveInterval() time.Duration {
	if s.Interval <= 0 {
		return time.Hour
	}
	return s.Interval.Std()
}

// Excluded reports whether resourceID matches any configured exclusion
// prefix. Exclusions apply to instance IDs and bucket names alike.
func (p *Policy) Excluded(resourceID string) bool {
	for _, prefix := range p.Exclusions {
		if prefix != "" && len(resourceID) >= len(prefix) && resourceID[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
