// internal/common/aws/aws.go

// Package aws wraps the SDK clients behind the applicant notification
// channels: SES for transactional email, SNS for SMS.
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// loadConfig resolves credentials from the default chain, pinned to the
// configured region.
func loadConfig(ctx context.Context, region string) (awssdk.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}
