package compliance

import (
	"fmt"
	"time"

	"github.com/tagwarden/tagwarden/internal/models"
)

// ValueDriftCheck flags resources that carry a required tag key with a value
// other than the configured one. The resource is tagged but the metadata is
// stale or wrong.
type ValueDriftCheck struct{}

func (c ValueDriftCheck) ID() string   { return "TAG_VALUE_DRIFT" }
func (c ValueDriftCheck) Name() string { return "Tag Value Drift" }

// Evaluate returns one MEDIUM finding per resource with at least one drifted
// value. The finding's Keys field lists every drifted key.
func (c ValueDriftCheck) Evaluate(ctx CheckContext) []models.Finding {
	var findings []models.Finding
	for _, p := range ctx.Plans {
		var drifted []string
		for _, d := range p.Deltas {
			if d.Action == models.DeltaUpdate {
				drifted = append(drifted, d.Key)
			}
		}
		if len(drifted) == 0 {
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
			Severity:    models.SeverityMedium,
			Explanation: fmt.Sprintf("%d required tag(s) carry a value other than the configured one.", len(drifted)),
			Keys:        drifted,
			DetectedAt:  time.Now().UTC(),
		})
	}
	return findings
}
