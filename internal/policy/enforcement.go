package policy

import (
	"strings"

	"github.com/tagwarden/tagwarden/internal/models"
)

// severityRank orders severities for enforcement comparison.
var severityRank = map[models.Severity]int{
	models.SeverityHigh:   4,
	models.SeverityMedium: 3,
	models.SeverityLow:    2,
	models.SeverityInfo:   1,
}

// ShouldFail reports whether an audit run must exit non-zero under p's
// enforcement configuration.
//
// It returns false when:
//   - p is nil (no policy loaded)
//   - fail_on_noncompliant is off
//   - findings is empty
//   - no finding reaches the configured min_severity
//
// An empty min_severity means any finding triggers enforcement.
func ShouldFail(findings []models.Finding, p *Policy) bool {
	if p == nil || !p.Enforcement.FailOnNoncompliant {
		return false
	}
	if p.Enforcement.MinSeverity == "" {
		return len(findings) > 0
	}
	threshold, ok := severityRank[models.Severity(strings.ToUpper(p.Enforcement.MinSeverity))]
	if !ok {
		return false
	}
	for _, f := range findings {
		if r, ok := severityRank[f.Severity]; ok && r >= threshold {
			return true
		}
	}
	return false
}
