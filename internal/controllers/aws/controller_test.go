package aws_test

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
	"github.com/isometry/linear-agent-app/internal/controllers/aws"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	params map[string]string
	err    error
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.params[*in.Name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{}
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Name: in.Name, Value: &v}}, nil
}

func (f *fakeSSM) PutParameter(_ context.Context, in *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if in.Type != ssmtypes.ParameterTypeSecureString || in.Overwrite == nil || !*in.Overwrite {
		return nil, errors.New("expected overwritable SecureString")
	}
	f.params[*in.Name] = *in.Value
	return &ssm.PutParameterOutput{}, nil
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = body
	return &s3.PutObjectOutput{}, nil
}

type fakeLambda struct {
	inputs     []*lambda.InvokeInput
	statusCode int32
	err        error
}

func (f *fakeLambda) Invoke(_ context.Context, in *lambda.InvokeInput, _ ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &lambda.InvokeOutput{StatusCode: f.statusCode}, nil
}

func newController(t *testing.T, ssmClient aws.SSMAPI, s3Client aws.S3API) *aws.Controller {
	t.Helper()
	_inst, err := aws.NewController(context.Background(),
		aws.WithSSMClient(ssmClient),
		aws.WithS3Client(s3Client),
		aws.WithLambdaClient(&fakeLambda{statusCode: 202}))
	require.NoError(t, err)
	return _inst
}

func TestController_Secrets(t *testing.T) {
	ctx := context.Background()
	ssmClient := &fakeSSM{params: map[string]string{}}
	_inst := newController(t, ssmClient, &fakeS3{objects: map[string][]byte{}})

	_, err := _inst.GetSecret(ctx, "/tokens/org-1", true)
	assert.ErrorIs(t, err, aws.ErrParameterNotFound)

	require.NoError(t, _inst.PutSecret(ctx, "/tokens/org-1", "value"))
	v, err := _inst.GetSecret(ctx, "/tokens/org-1", true)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
}

func TestController_GetSecretAPIError(t *testing.T) {
	ssmClient := &fakeSSM{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "denied"}}
	_inst := newController(t, ssmClient, &fakeS3{})

	_, err := _inst.GetSecret(context.Background(), "/tokens/org-1", true)
	require.Error(t, err)
	assert.NotErrorIs(t, err, aws.ErrParameterNotFound)
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

func TestController_PutS3Object(t *testing.T) {
	testCases := []struct {
		Name     string
		Bucket   string
		Expected map[string][]byte
	}{
		{
			Name:     "upload",
			Bucket:   "archive",
			Expected: map[string][]byte{"archive/webhooks/a.json": []byte(`{}`)},
		},
		{
			Name:     "no_bucket",
			Expected: map[string][]byte{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			s3Client := &fakeS3{objects: map[string][]byte{}}
			_inst := newController(t, &fakeSSM{params: map[string]string{}}, s3Client)
			require.NoError(t, _inst.PutS3Object(context.Background(), "webhooks/a.json", tc.Bucket, []byte(`{}`)))
			assert.Equal(t, tc.Expected, s3Client.objects)
		})
	}
}

func TestController_InvokeAsync(t *testing.T) {
	testCases := []struct {
		Name          string
		Client        *fakeLambda
		ExpectedError string
	}{
		{
			Name:   "queued",
			Client: &fakeLambda{statusCode: 202},
		},
		{
			Name:          "unexpected_status",
			Client:        &fakeLambda{statusCode: 200},
			ExpectedError: "returned status 200",
		},
		{
			Name:          "api_error",
			Client:        &fakeLambda{err: &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "throttled"}},
			ExpectedError: "TooManyRequestsException",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			_inst, err := aws.NewController(context.Background(),
				aws.WithSSMClient(&fakeSSM{}),
				aws.WithS3Client(&fakeS3{}),
				aws.WithLambdaClient(tc.Client))
			require.NoError(t, err)

			err = _inst.InvokeAsync(context.Background(), "linear-agent", []byte(`{"linearAgentJob":{}}`))
			if tc.ExpectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.ExpectedError)
				return
			}
			require.NoError(t, err)
			require.Len(t, tc.Client.inputs, 1)
			assert.Equal(t, "linear-agent", *tc.Client.inputs[0].FunctionName)
			assert.Equal(t, lambdatypes.InvocationTypeEvent, tc.Client.inputs[0].InvocationType)
			assert.JSONEq(t, `{"linearAgentJob":{}}`, string(tc.Client.inputs[0].Payload))
		})
	}
}
