// Package awsconf builds aws.Config values for the backend and bucket clients
// from explicit settings, never from package-level state.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Options selects region, credentials and retry budget. Empty credentials fall
// back to the SDK default chain (environment, shared config, instance role).
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	MaxRetries      int
}

// Load resolves an aws.Config for opts.
func Load(ctx context.Context, opts Options) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
		// MaxAttempts counts the first call.
		awsconfig.WithRetryMaxAttempts(opts.MaxRetries + 1),
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
