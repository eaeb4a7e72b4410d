package aws

import (
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// WithLogger sets a custom slog.Logger instance for the Controller struct to use for logging operations.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Controller) {
		a.logger = logger
	}
}

// WithConfig sets the AWS configuration used to build the service clients.
func WithConfig(cfg *aws.Config) Option {
	return func(a *Controller) {
		a.config = cfg
	}
}

// WithSSMClient overrides the SSM client.
func WithSSMClient(client SSMAPI) Option {
	return func(a *Controller) {
		a.ssmClient = client
	}
}

// WithS3Client overrides the S3 client.
func WithS3Client(client S3API) Option {
	return func(a *Controller) {
		a.s3Client = client
	}
}

// WithLambdaClient overrides the Lambda client.
func WithLambdaClient(client LambdaAPI) Option {
	return func(a *Controller) {
		a.lambdaClient = client
	}
}
