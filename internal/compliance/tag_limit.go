package compliance

import (
	"fmt"
	"time"

	"github.com/tagwarden/tagwarden/internal/models"
)

// TagLimitCheck flags resources whose merged tag set would exceed the AWS
// per-resource tag limit. Such resources cannot be brought into compliance
// without first removing existing tags, which this tool never does.
type TagLimitCheck struct{}

func (c TagLimitCheck) ID() string   { return "TAG_LIMIT_EXCEEDED" }
func (c TagLimitCheck) Name() string { return "Tag Limit Exceeded" }

// Evaluate returns one HIGH finding per resource where applying the plan
// would exceed the 50-tag limit. Compliant resources are never flagged even
// when they sit exactly at the limit.
func (c TagLimitCheck) Evaluate(ctx CheckContext) []models.Finding {
	var findings []models.Finding
	for _, p := range ctx.Plans {
		if p.Compliant() || !p.ExceedsTagLimit() {
			continue
		}
		findings = append(findings, models.Finding{
			ID:          fmt.Sprintf("%s-%s", c.ID(), p.Resource.ResourceID),
			CheckID:     c.ID(),
			ResourceID:  p.Resource.ResourceID,
			Kind:        p.Resource.Kind,
			Region:      p.Resource.Region,
			AccountID:   ctx.AccountID,
			Profile:     ctx.Profile,
			Severity:    models.SeverityHigh,
			Explanation: fmt.Sprintf("Applying the required tags would result in %d tags, above the AWS per-resource limit; existing tags must be pruned manually.", len(p.Merged)),
			Keys:        p.Keys(),
			DetectedAt:  time.Now().UTC(),
		})
	}
	return findings
}
