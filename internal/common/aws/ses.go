// internal/common/aws/ses.go

// Package aws wraps the AWS SDK clients the notification dispatcher
// sends candidate email and SMS through.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// SESClient sends candidate email. It satisfies notify.EmailSender.
type SESClient struct {
	client *ses.Client
}

// NewSESClient builds an SES client for the region. Credentials come from
// the default chain (env, shared config, instance role).
func NewSESClient(ctx context.Context, region string) (*SESClient, error) {
	if region == "" {
		return nil, fmt.Errorf("aws region is required for ses")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input)
}
