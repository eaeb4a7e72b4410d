// Package cmd provides the entrypoint for the linear-agent-app cli.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/isometry/linear-agent-app/internal/config"
	"github.com/isometry/linear-agent-app/internal/helpers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFileEnv = "LINEAR_AGENT_CONFIG"

var (
	configFilePath string
	logger         = helpers.NewNoopLogger()
)

type boundEnvVar[T argType] struct {
	Name, Description string
	Env, Short        *string
	Hidden            bool
}

// New returns the root command for the linear-agent-app.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "linear-agent-app",
		Short:        "Receives Linear agent session webhooks and hands them to an LLM agent",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			config.Global.Mode = strings.TrimSpace(config.Global.Mode)
			switch cmd.Name() {
			case config.ModeService, config.ModeLambda:
				config.Global.Mode = cmd.Name()
			}
			logger = helpers.NewJSONLogger(os.Stdout,
				config.Global.Logging.Verbosity,
				config.Global.Logging.CallerTrace).With("mode", config.Global.Mode)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch config.Global.Mode {
			case config.ModeService:
				return runService(cmd.Context())
			case config.ModeLambda:
				return runLambda(cmd.Context())
			default:
				return fmt.Errorf("invalid mode: %s", config.Global.Mode)
			}
		},
	}

	// Root command flags
	configFilePath = "config.yaml"
	if v, ok := os.LookupEnv(configFileEnv); ok {
		configFilePath = v
	}
	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", configFilePath,
		fmt.Sprintf("[%s] path to the configuration file", configFileEnv))

	// Configuration loading & defaults
	if err := errors.Join(
		config.LoadFromFile(configFilePath),
		config.SetDefaults(),
	); err != nil {
		panic(err)
	}

	// Dynamic flags
	setupDynamicFlags(cmd)

	// Subcommands
	cmd.AddCommand(
		cmdLambda(),
		cmdService(),
	)

	return cmd
}

func setupDynamicFlags(cmd *cobra.Command) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(replacer)

	bindEnvMap(cmd, envMapString)
	bindEnvMap(cmd, envMapBool)
	bindEnvMap(cmd, envMapCount)
	bindEnvMap(cmd, envMapUint)
	bindEnvMap(cmd, envMapDuration)
	bindEnvMap(cmd, envMapStringSlice)
}

func componentLogger(component string) *slog.Logger {
	return logger.With("component", component)
}
