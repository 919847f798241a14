// Package ec2tags collects EC2 instance tag state and applies tag deltas.
package ec2tags

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"golang.org/x/time/rate"

	"github.com/tagwarden/tagwarden/internal/models"
	"github.com/tagwarden/tagwarden/internal/providers/aws/common"
)

// Provider is the production EC2 tagging provider. It uses AWS SDK v2 to
// enumerate instances per region and apply tag deltas.
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

// NewProviderWithFactory returns a provider that uses f to create its EC2
// client. Pass a mock factory in tests.
func NewProviderWithFactory(f clientFactory, limiter *rate.Limiter) *Provider {
	return &Provider{factory: f, limiter: limiter}
}

// Collect pages through every non-terminated EC2 instance in region and
// returns its tag state. Terminated and shutting-down instances are excluded:
// the EC2 API rejects tagging them and their tags are about to disappear
// anyway.
func (p *Provider) Collect(ctx context.Context, cfg aws.Config, region string) ([]models.ResourceTagState, error) {
	client := p.factory(cfg)

	input := &ec2svc.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"pending", "running", "stopping", "stopped"},
			},
		},
	}
	paginator := ec2svc.NewDescribeInstancesPaginator(client, input)

	var states []models.ResourceTagState
	for paginator.HasMorePages() {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, common.WrapAPIError("DescribeInstances", "", fmt.Errorf("region %s: %w", region, err))
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				states = append(states, toTagState(inst, region))
			}
		}
	}
	return states, nil
}

// toTagState converts an SDK EC2 instance to the internal tag state model.
func toTagState(inst ec2types.Instance, region string) models.ResourceTagState {
	return models.ResourceTagState{
		ResourceID: aws.ToString(inst.InstanceId),
		Kind:       models.ResourceEC2Instance,
		Region:     region,
		Tags:       tagsToMap(inst.Tags),
	}
}

// tagsToMap converts EC2 SDK tags to a plain string map.
func tagsToMap(tags []ec2types.Tag) map[string]string {
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
