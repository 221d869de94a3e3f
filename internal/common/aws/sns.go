// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSClient sends candidate SMS. It satisfies notify.SMSSender.
type SNSClient struct {
	client   *sns.Client
	senderID string
}

// NewSNSClient builds an SNS client for the region. senderID is the
// alphanumeric SMS sender id shown to candidates; empty leaves the
// account default.
func NewSNSClient(ctx context.Context, region, senderID string) (*SNSClient, error) {
	if region == "" {
		return nil, fmt.Errorf("aws region is required for sns")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), senderID: senderID}, nil
}

// Publish sends one SMS. The configured sender id is attached unless the
// caller set its own message attributes.
func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	if s.senderID != "" && input.MessageAttributes == nil {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(s.senderID),
			},
		}
	}
	return s.client.Publish(ctx, input)
}
