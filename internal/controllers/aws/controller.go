// Package aws provides the Controller struct that wraps the SSM, S3 and Lambda clients used for token storage,
// webhook archiving and agent job handoff.
package aws

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/logging"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/pkg/errors"
)

// ErrParameterNotFound is returned by GetSecret when the parameter does not exist.
var ErrParameterNotFound = errors.New("SSM parameter not found")

// SSMAPI is the subset of the SSM client used by the Controller.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// S3API is the subset of the S3 client used by the Controller.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// LambdaAPI is the subset of the Lambda client used by the Controller.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Controller wraps the SSM, S3 and Lambda clients with logging support.
type Controller struct {
	logger *slog.Logger

	config       *aws.Config
	s3Client     S3API
	ssmClient    SSMAPI
	lambdaClient LambdaAPI
}

// Option defines a function type used to configure an instance of the Controller struct.
type Option func(*Controller)

// NewController initializes a Controller with customizable options and default configurations if unspecified.
// The AWS configuration is only loaded when at least one client was not supplied.
func NewController(ctx context.Context, opts ...Option) (*Controller, error) {
	_inst := &Controller{}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "aws")

	if _inst.s3Client != nil && _inst.ssmClient != nil && _inst.lambdaClient != nil {
		return _inst, nil
	}
	if _inst.config == nil {
		_inst.logger.Debug("loading default AWS configuration...")
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS configuration")
		}
		cfg.Logger = newAWSLogger(_inst.logger)
		_inst.config = &cfg
	}
	if _inst.s3Client == nil {
		_inst.s3Client = s3.NewFromConfig(*_inst.config)
	}
	if _inst.ssmClient == nil {
		_inst.ssmClient = ssm.NewFromConfig(*_inst.config)
	}
	if _inst.lambdaClient == nil {
		_inst.lambdaClient = lambda.NewFromConfig(*_inst.config)
	}
	return _inst, nil
}

// GetSecret retrieves a parameter value from SSM Parameter Store.
// If encrypted is true, the value is returned decrypted.
// A missing parameter is reported as ErrParameterNotFound.
func (a *Controller) GetSecret(ctx context.Context, key string, encrypted bool) (string, error) {
	a.logger.Debug("fetching SSM parameter...", slog.String("key", key))
	out, err := a.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(key),
		WithDecryption: aws.Bool(encrypted),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", errors.Wrap(ErrParameterNotFound, key)
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", errors.Wrapf(err, "failed to load SSM parameter (%s)", apiErr.ErrorCode())
		}
		return "", errors.Wrap(err, "failed to load SSM parameter")
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.Wrap(ErrParameterNotFound, key)
	}
	return *out.Parameter.Value, nil
}

// PutSecret stores value as a SecureString parameter, overwriting any previous version.
func (a *Controller) PutSecret(ctx context.Context, key string, value string) error {
	a.logger.Debug("storing SSM parameter...", slog.String("key", key))
	_, err := a.ssmClient.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(key),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return errors.Wrap(err, "failed to store SSM parameter")
	}
	return nil
}

// PutS3Object uploads a JSON object to the specified S3 bucket under key.
// An empty bucket makes the call a no-op.
func (a *Controller) PutS3Object(ctx context.Context, key string, bucket string, body []byte) error {
	if bucket == "" {
		return nil
	}
	a.logger.Debug("uploading S3 object...", slog.String("bucket", bucket), slog.String("key", key))
	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(err, "failed to put object to S3")
	}
	return nil
}

// InvokeAsync queues an Event invocation of functionName with payload and returns without waiting for it to run.
func (a *Controller) InvokeAsync(ctx context.Context, functionName string, payload []byte) error {
	a.logger.Debug("invoking Lambda function asynchronously...", slog.String("function", functionName))
	out, err := a.lambdaClient.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return errors.Wrapf(err, "failed to invoke Lambda function (%s)", apiErr.ErrorCode())
		}
		return errors.Wrap(err, "failed to invoke Lambda function")
	}
	if out.StatusCode != http.StatusAccepted {
		return errors.Errorf("asynchronous invocation of %s returned status %d", functionName, out.StatusCode)
	}
	return nil
}

type awsLogger struct {
	logger *slog.Logger
}

func newAWSLogger(logger *slog.Logger) *awsLogger {
	return &awsLogger{logger}
}

func (a *awsLogger) Logf(classification logging.Classification, format string, args ...any) {
	a.logger.Debug(fmt.Sprintf("[%v] %s", classification, fmt.Sprintf(format, args...)))
}
