package cmd

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/isometry/linear-agent-app/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use: "lambda",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLambda(cmd.Context())
		},
	}

	bindEnvMap(cmd, lambdaEnvMapString)

	return cmd
}

func runLambda(ctx context.Context) error {
	app, err := setup(ctx, true)
	if err != nil {
		return errors.Wrap(err, "failed to setup lambda")
	}

	logger.Info("lambda starting...", "payloadType", config.Lambda.PayloadType)
	lambda.StartWithOptions(app.runtime.HandleEvent,
		lambda.WithContext(ctx),
		lambda.WithEnableSIGTERM(func() {
			_ = app.Close()
		}))
	return nil
}
