package ec2tags

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/plan"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// Apply writes the delta tags via CreateTags. CreateTags is additive per key,
// so only the delta keys are sent; tags outside the desired set are never
// touched. Plans with an identical delta share one call, since CreateTags
// accepts multiple resource IDs.
//
// Failures are per-batch: a failed CreateTags call marks every resource in
// that batch failed and the pass continues. Throttling is retried with
// backoff.
func (p *Provider) Apply(ctx context.Context, cfg aws.Config, plans []plan.Plan) []models.ApplyResult {
	client := p.factory(cfg)

	results := make([]models.ApplyResult, 0, len(plans))
	for _, batch := range batchByDelta(plans) {
		ids := make([]string, len(batch))
		for i, pl := range batch {
			ids[i] = pl.Resource.ResourceID
		}

		err := common.CallWithRetry(ctx, p.limiter, func() error {
			_, callErr := client.CreateTags(ctx, &ec2svc.CreateTagsInput{
				Resources: ids,
				Tags:      deltaTags(batch[0].Deltas),
			})
			return callErr
		})

		for _, pl := range batch {
			result := models.ApplyResult{
				ResourceID:  pl.Resource.ResourceID,
				Kind:        pl.Resource.Kind,
				Region:      pl.Resource.Region,
				Status:      models.StatusTagged,
				TagsApplied: pl.Keys(),
			}
			if err != nil {
				result.Status = models.StatusFailed
				result.TagsApplied = nil
				result.Error = common.WrapAPIError("CreateTags", pl.Resource.ResourceID, err).Error()
			}
			results = append(results, result)
		}
	}
	return results
}

// batchByDelta groups plans whose deltas are identical, preserving first-seen
// order. Deltas are emitted in sorted key order, so the signature is stable.
func batchByDelta(plans []plan.Plan) [][]plan.Plan {
	var (
		order   []string
		batches = make(map[string][]plan.Plan)
	)
	for _, pl := range plans {
		sig := deltaSignature(pl.Deltas)
		if _, seen := batches[sig]; !seen {
			order = append(order, sig)
		}
		batches[sig] = append(batches[sig], pl)
	}
	out := make([][]plan.Plan, len(order))
	for i, sig := range order {
		out[i] = batches[sig]
	}
	return out
}

func deltaSignature(deltas []models.TagDelta) string {
	var b strings.Builder
	for _, d := range deltas {
		b.WriteString(d.Key)
		b.WriteByte(0)
		b.WriteString(d.Desired)
		b.WriteByte(0)
	}
	return b.String()
}

// deltaTags converts plan deltas to the SDK tag format.
func deltaTags(deltas []models.TagDelta) []ec2types.Tag {
	tags := make([]ec2types.Tag, len(deltas))
	for i, d := range deltas {
		tags[i] = ec2types.Tag{
			Key:   aws.String(d.Key),
			Value: aws.String(d.Desired),
		}
	}
	return tags
}
