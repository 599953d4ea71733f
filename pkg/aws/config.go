package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"timetrack.service/internal/config"
)

// Static credentials accepted by LocalStack.
const (
	localAccessKey = "test"
	localSecretKey = "test"
)

// NewAWSConfig loads the SDK configuration for the SQS and SES clients. In local
// development every service is routed to AWS_ENDPOINT with static credentials;
// elsewhere the default credential chain applies.
func NewAWSConfig(ctx context.Context, appConfig config.Config) (aws.Config, error) {
	return awsConfig.LoadDefaultConfig(ctx, loadOptions(appConfig)...)
}

func loadOptions(appConfig config.Config) []func(*awsConfig.LoadOptions) error {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(appConfig.AWSRegion),
	}
	if !appConfig.IsLocalDev {
		log.Info().Str("region", appConfig.AWSRegion).Msg("Using standard AWS credential chain")
		return opts
	}

	log.Info().Str("endpoint", appConfig.AWSEndpoint).Msg("Local development mode detected. Routing AWS calls to LocalStack.")
	opts = append(opts, awsConfig.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(localAccessKey, localSecretKey, ""),
	))
	if appConfig.AWSEndpoint != "" {
		opts = append(opts, awsConfig.WithBaseEndpoint(appConfig.AWSEndpoint))
	}
	return opts
}
