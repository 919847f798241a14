package compliance

import (
	"fmt"
	"time"

	"github.com/tagwarden/tagwarden/internal/models"
)

// MissingTagCheck flags resources that lack one or more required tag keys
// entirely. Untagged resources escape cost attribution and ownership
// tracking, so missing keys rank above value drift.
type MissingTagCheck struct{}

func (c MissingTagCheck) ID() string   { return "MISSING_TAG" }
func (c MissingTagCheck) Name() string { return "Required Tag Missing" }

// Evaluate returns one HIGH finding per resource that is missing at least one
// required key. The finding's Keys field lists every missing key.
func (c MissingTagCheck) Evaluate(ctx CheckContext) []models.Finding {
	var findings []models.Finding
	for _, p := range ctx.Plans {
		var missing []string
		for _, d := range p.Deltas {
			if d.Action == models.DeltaCreate {
				missing = append(missing, d.Key)
			}
		}
		if len(missing) == 0 {
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
			Explanation: fmt.Sprintf("Resource is missing %d required tag(s).", len(missing)),
			Keys:        missing,
			DetectedAt:  time.Now().UTC(),
		})
	}
	return findings
}
