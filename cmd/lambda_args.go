package cmd

import (
	"github.com/isometry/linear-agent-app/internal/config"
	"github.com/isometry/linear-agent-app/internal/helpers"
)

var lambdaEnvMapString = map[*string]boundEnvVar[string]{
	&config.Lambda.PayloadType: {
		Name:        "lambda-payload-type",
		Description: "The payload type to expect when running in Lambda mode. Supported values are 'api-gateway-v1', 'api-gateway-v2' and 'lambda-url'",
	},
	&config.Lambda.FunctionName: {
		Name:        "lambda-function-name",
		Description: "The function invoked asynchronously to run agent jobs (defaults to the running function)",
		Env:         helpers.Ptr("AWS_LAMBDA_FUNCTION_NAME"),
	},
}
