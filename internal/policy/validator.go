package policy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// AWS tag constraints. Keys and values share the same character set; the
// "aws:" key prefix is reserved for AWS-internal tags and cannot be written.
const (
	maxTagKeyLen   = 128
	maxTagValueLen = 256

	// MaxTagsPerResource is the AWS limit on user tags for both EC2
	// instances and S3 buckets.
	MaxTagsPerResource = 50
)

// tagCharset matches the characters AWS accepts in tag keys and values.
var tagCharset = regexp.MustCompile(`^[\pL\pN _.:/=+\-@]*$`)

// validSeverities is the set of allowed enforcement severity strings
// (upper-case canonical form).
var validSeverities = map[string]struct{}{
	"HIGH":   {},
	"MEDIUM": {},
	"LOW":    {},
	"INFO":   {},
}

// Validate checks p for semantic correctness and returns all validation
// errors found. An empty slice means the policy is valid.
//
// Checks performed:
//   - version must be 1
//   - tags must be non-empty (an empty tag map makes every run a no-op)
//   - tag keys: length, charset, reserved "aws:" prefix
//   - tag values: length, charset
//   - tag count must not exceed the per-resource limit
//   - enforcement min_severity must be a recognised severity if set
//
// All errors are collected before returning; Validate never stops at the
// first error.
func Validate(p *Policy) []error {
	if p == nil {
		return []error{fmt.Errorf("policy is nil")}
	}

	var errs []error

	if p.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", p.Version))
	}

	if len(p.Tags) == 0 {
		errs = append(errs, fmt.Errorf("tags: at least one tag is required"))
	}
	if len(p.Tags) > MaxTagsPerResource {
		errs = append(errs, fmt.Errorf("tags: %d tags configured; AWS allows at most %d per resource", len(p.Tags), MaxTagsPerResource))
	}

	for key, value := range p.Tags {
		if key == "" {
			errs = append(errs, fmt.Errorf("tags: empty tag key"))
			continue
		}
		// AWS limits are in characters, not bytes.
		if utf8.RuneCountInString(key) > maxTagKeyLen {
			errs = append(errs, fmt.Errorf("tags.%s: key exceeds %d characters", key, maxTagKeyLen))
		}
		if strings.HasPrefix(strings.ToLower(key), "aws:") {
			errs = append(errs, fmt.Errorf("tags.%s: the aws: key prefix is reserved by AWS", key))
		}
		if !tagCharset.MatchString(key) {
			errs = append(errs, fmt.Errorf("tags.%s: key contains characters AWS does not accept", key))
		}
		if utf8.RuneCountInString(value) > maxTagValueLen {
			errs = append(errs, fmt.Errorf("tags.%s: value exceeds %d characters", key, maxTagValueLen))
		}
		if !tagCharset.MatchString(value) {
			errs = append(errs, fmt.Errorf("tags.%s: value contains characters AWS does not accept", key))
		}
	}

	if p.Enforcement.MinSeverity != "" {
		upper := strings.ToUpper(p.Enforcement.MinSeverity)
		if _, ok := validSeverities[upper]; !ok {
			errs = append(errs, fmt.Errorf("enforcement.min_severity: invalid value %q; valid values: HIGH, MEDIUM, LOW, INFO", p.Enforcement.MinSeverity))
		}
	}

	return errs
}
