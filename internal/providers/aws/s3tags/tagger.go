package s3tags

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/plan"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// Apply writes each plan's merged tag set via PutBucketTagging. The merged
// set, not the delta, must be sent because PutBucketTagging replaces the
// bucket's whole tag set; sending only the delta would erase unrelated tags.
//
// Failures are per-bucket: a failed call is recorded in that plan's result
// and the pass continues. Throttling is retried with backoff.
func (p *Provider) Apply(ctx context.Context, cfg aws.Config, plans []plan.Plan) []models.ApplyResult {
	// One client per region touched by the plans.
	clients := make(map[string]s3API)

	results := make([]models.ApplyResult, 0, len(plans))
	for _, pl := range plans {
		region := pl.Resource.Region
		client, ok := clients[region]
		if !ok {
			regional := cfg
			regional.Region = region
			client = p.factory(regional)
			clients[region] = client
		}

		result := models.ApplyResult{
			ResourceID:  pl.Resource.ResourceID,
			Kind:        pl.Resource.Kind,
			Region:      region,
			Status:      models.StatusTagged,
			TagsApplied: pl.Keys(),
		}

		err := common.CallWithRetry(ctx, p.limiter, func() error {
			_, callErr := client.PutBucketTagging(ctx, &s3svc.PutBucketTaggingInput{
				Bucket:  aws.String(pl.Resource.ResourceID),
				Tagging: &s3types.Tagging{TagSet: mapToTagSet(pl.Merged)},
			})
			return callErr
		})
		if err != nil {
			result.Status = models.StatusFailed
			result.TagsApplied = nil
			result.Error = common.WrapAPIError("PutBucketTagging", pl.Resource.ResourceID, err).Error()
		}
		results = append(results, result)
	}
	return results
}

// mapToTagSet converts a tag map to the SDK tag set, ordered by key for
// deterministic requests.
func mapToTagSet(tags map[string]string) []s3types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make([]s3types.Tag, len(keys))
	for i, k := range keys {
		set[i] = s3types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		}
	}
	return set
}
