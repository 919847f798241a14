package ec2tags

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ec2API covers the EC2 operations required for tag collection and
// application. A single *ec2.Client satisfies it; the DescribeInstances
// method also satisfies ec2.DescribeInstancesAPIClient, enabling the SDK v2
// paginator. Replace with a stub struct in unit tests.
type ec2API interface {
	DescribeInstances(
		ctx context.Context,
		params *ec2svc.DescribeInstancesInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.DescribeInstancesOutput, error)

	CreateTags(
		ctx context.Context,
		params *ec2svc.CreateTagsInput,
		optFns ...func(*ec2svc.Options),
	) (*ec2svc.CreateTagsOutput, error)
}

// clientFactory creates an ec2API from a region-scoped aws.Config.
// Injection point: tests replace this with a function returning fakes.
type clientFactory func(cfg aws.Config) ec2API

// newDefaultClient is the production clientFactory.
func newDefaultClient(cfg aws.Config) ec2API {
	return ec2svc.NewFromConfig(cfg)
}
