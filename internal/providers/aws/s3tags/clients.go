package s3tags

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API covers the S3 operations required for bucket tag collection and
// application. A single *s3.Client satisfies it. Replace with a stub struct
// in unit tests.
type s3API interface {
	ListBuckets(
		ctx context.Context,
		params *s3svc.ListBucketsInput,
		optFns ...func(*s3svc.Options),
	) (*s3svc.ListBucketsOutput, error)

	GetBucketLocation(
		ctx context.Context,
		params *s3svc.GetBucketLocationInput,
		optFns ...func(*s3svc.Options),
	) (*s3svc.GetBucketLocationOutput, error)

	GetBucketTagging(
		ctx context.Context,
		params *s3svc.GetBucketTaggingInput,
		optFns ...func(*s3svc.Options),
	) (*s3svc.GetBucketTaggingOutput, error)

	PutBucketTagging(
		ctx context.Context,
		params *s3svc.PutBucketTaggingInput,
		optFns ...func(*s3svc.Options),
	) (*s3svc.PutBucketTaggingOutput, error)
}

// clientFactory creates an s3API from an aws.Config. The provider calls it
// once per region so every bucket operation is signed for the bucket's own
// region. Injection point: tests replace this with a function returning fakes.
type clientFactory func(cfg aws.Config) s3API

// newDefaultClient is the production clientFactory.
func newDefaultClient(cfg aws.Config) s3API {
	return s3svc.NewFromConfig(cfg)
}
