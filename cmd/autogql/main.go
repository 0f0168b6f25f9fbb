package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// envPrefix namespaces every setting in the environment, e.g. AUTOGQL_LISTEN
const envPrefix = "AUTOGQL"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "autogql",
		Short: "Serve a GraphQL API derived from a relational database",
		Long: `autogql introspects a PostgreSQL, MySQL or SQLite database and serves a GraphQL API
derived from its tables, relations and functions. It also exports the schema, generates
typed Go documents for client code and runs the demo front-end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "",
		"Configuration file. Takes precedence over default values, but is "+
			"overridden to values set with environment variables and flags.")
	root.PersistentFlags().String("log-format", "json", "Log format: json or console")

	root.AddCommand(
		newServeCmd(),
		newWebCmd(),
		newExportSchemaCmd(),
		newIntrospectCmd(),
		newCodegenCmd(),
	)
	return root
}

// loadConfig layers flags over AUTOGQL_* env vars over the --config file
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	conf := viper.New()
	if err := conf.BindPFlags(cmd.Flags()); err != nil {
		return nil, errors.Wrap(err, "binding flags")
	}
	if err := conf.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, errors.Wrap(err, "binding flags")
	}
	conf.SetEnvPrefix(envPrefix)
	conf.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	conf.AutomaticEnv()
	if cmd.Flags().Lookup("database-url") != nil {
		if err := conf.BindEnv("database-url", "DATABASE_URL"); err != nil {
			return nil, errors.Wrap(err, "binding DATABASE_URL")
		}
	}

	if path := conf.GetString("config"); path != "" {
		conf.SetConfigFile(path)
		if err := conf.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config")
		}
	}
	return conf, nil
}

func newLogger(format string) (*zap.Logger, error) {
	switch format {
	case "", "json":
		return zap.NewProduction()
	case "console":
		return zap.NewDevelopment()
	default:
		return nil, errors.Errorf("invalid log format: %s (must be 'json' or 'console')", format)
	}
}

// withConfig adapts a run function that needs the layered configuration
func withConfig(run func(cmd *cobra.Command, conf *viper.Viper) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cmd, conf)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
