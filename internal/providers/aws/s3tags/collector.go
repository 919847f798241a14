// Package s3tags collects S3 bucket tag state and applies tag deltas.
//
// ListBuckets is account-global, so buckets are listed once and placed into
// their owning region via GetBucketLocation; only buckets inside the
// configured region set are collected. PutBucketTagging replaces a bucket's
// entire tag set, so writes always send the merged set (existing tags
// overlaid with the desired ones) to keep unrelated tags intact.
package s3tags

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"

	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// Provider is the production S3 tagging provider.
//
// Inject a custom clientFactory via NewProviderWithFactory to replace real
// SDK clients with mocks in unit tests.
type Provider struct {
	factory clientFactory
	limiter *rate.Limiter
}

// NewProvider returns a provider backed by the real AWS SDK, paced by
// limiter. A nil limiter disables pacing.
func NewProvider(limiter *rate.Limiter) *Provider {
	return &Provider{factory: newDefaultClient, limiter: limiter}
}

// NewProviderWithFactory returns a provider that uses f to create its S3
// clients. Pass a mock factory in tests.
func NewProviderWithFactory(f clientFactory, limiter *rate.Limiter) *Provider {
	return &Provider{factory: f, limiter: limiter}
}

// Collect lists every bucket in the account, resolves each bucket's region,
// and returns the tag state of the buckets that live inside regions. Buckets
// outside the region set are skipped, not errors.
func (p *Provider) Collect(ctx context.Context, cfg aws.Config, regions []string) ([]models.ResourceTagState, error) {
	client := p.factory(cfg)

	inScope := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		inScope[r] = struct{}{}
	}

	var out *s3svc.ListBucketsOutput
	err := common.CallWithRetry(ctx, p.limiter, func() error {
		var callErr error
		out, callErr = client.ListBuckets(ctx, &s3svc.ListBucketsInput{})
		return callErr
	})
	if err != nil {
		return nil, common.WrapAPIError("ListBuckets", "", err)
	}

	var states []models.ResourceTagState
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)

		region, err := p.bucketRegion(ctx, client, name)
		if err != nil {
			return nil, err
		}
		if _, ok := inScope[region]; !ok {
			continue
		}

		tags, err := p.bucketTags(ctx, cfg, region, name)
		if err != nil {
			return nil, err
		}

		states = append(states, models.ResourceTagState{
			ResourceID: name,
			Kind:       models.ResourceS3Bucket,
			Region:     region,
			Tags:       tags,
		})
	}
	return states, nil
}

// bucketRegion resolves the owning region of a bucket. GetBucketLocation
// reports us-east-1 as an empty location constraint.
func (p *Provider) bucketRegion(ctx context.Context, client s3API, name string) (string, error) {
	var out *s3svc.GetBucketLocationOutput
	err := common.CallWithRetry(ctx, p.limiter, func() error {
		var callErr error
		out, callErr = client.GetBucketLocation(ctx, &s3svc.GetBucketLocationInput{
			Bucket: aws.String(name),
		})
		return callErr
	})
	if err != nil {
		return "", common.WrapAPIError("GetBucketLocation", name, err)
	}
	if out.LocationConstraint == "" {
		return "us-east-1", nil
	}
	return string(out.LocationConstraint), nil
}

// bucketTags fetches a bucket's current tag set using a client scoped to the
// bucket's own region. A bucket without tags (NoSuchTagSet) yields nil.
func (p *Provider) bucketTags(ctx context.Context, cfg aws.Config, region, name string) (map[string]string, error) {
	regional := cfg
	regional.Region = region
	client := p.factory(regional)

	var out *s3svc.GetBucketTaggingOutput
	err := common.CallWithRetry(ctx, p.limiter, func() error {
		var callErr error
		out, callErr = client.GetBucketTagging(ctx, &s3svc.GetBucketTaggingInput{
			Bucket: aws.String(name),
		})
		return callErr
	})
	if err != nil {
		if isNoSuchTagSet(err) {
			return nil, nil
		}
		return nil, common.WrapAPIError("GetBucketTagging", name, err)
	}
	return tagsToMap(out.TagSet), nil
}

// isNoSuchTagSet reports whether err means the bucket simply has no tags.
func isNoSuchTagSet(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet"
}

// tagsToMap converts an S3 tag set to a plain string map.
func tagsToMap(tags []s3types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			m[*t.Key] = *t.Value
		}
	}
	return m
}
