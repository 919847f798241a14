// Package plan computes the tag changes required to bring collected
// resources in line with the desired tag set. Planning is pure: it never
// touches the AWS API, which keeps it trivially testable and makes dry runs
// exact previews of real runs.
package plan

import (
	"sort"

	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/policy"
)

// Plan is the computed change set for a single resource.
type Plan struct {
	Resource models.ResourceTagState

	// Deltas lists the tag writes needed, ordered by key. Empty means the
	// resource is already compliant and a pass must not touch it.
	Deltas []models.TagDelta

	// Merged is the resource's current tags overlaid with the desired set.
	// S3 PutBucketTagging replaces the whole tag set, so the tagger must
	// write Merged rather than just the deltas to preserve unrelated tags.
	Merged map[string]string
}

// Compliant reports whether the resource already carries every desired tag
// with the desired value.
func (p Plan) Compliant() bool { return len(p.Deltas) == 0 }

// ExceedsTagLimit reports whether applying the plan would push the resource
// past the AWS per-resource tag limit, making compliance unreachable.
func (p Plan) ExceedsTagLimit() bool { return len(p.Merged) > policy.MaxTagsPerResource }

// Keys returns the delta keys in order. Used for reporting.
func (p Plan) Keys() []string {
	keys := make([]string, len(p.Deltas))
	for i, d := range p.Deltas {
		keys[i] = d.Key
	}
	return keys
}

// Build computes the plan for one resource against the desired tag set.
func Build(res models.ResourceTagState, desired map[string]string) Plan {
	keys := make([]string, 0, len(desired))
	for k := range desired {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make(map[string]string, len(res.Tags)+len(desired))
	for k, v := range res.Tags {
		merged[k] = v
	}

	var deltas []models.TagDelta
	for _, k := range keys {
		want := desired[k]
		got, ok := res.Tags[k]
		switch {
		case !ok:
			deltas = append(deltas, models.TagDelta{Key: k, Desired: want, Action: models.DeltaCreate})
		case got != want:
			deltas = append(deltas, models.TagDelta{Key: k, Desired: want, Actual: got, Action: models.DeltaUpdate})
		}
		merged[k] = want
	}

	return Plan{Resource: res, Deltas: deltas, Merged: merged}
}

// BuildAll plans every resource in resources, skipping those the policy
// excludes. The result preserves input order.
func BuildAll(resources []models.ResourceTagState, desired map[string]string, excluded func(string) bool) []Plan {
	plans := make([]Plan, 0, len(resources))
	for _, res := range resources {
		if excluded != nil && excluded(res.ResourceID) {
			continue
		}
		plans = append(plans, Build(res, desired))
	}
	return plans
}
