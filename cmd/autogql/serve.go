package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/gateway"
	"github.com/tordrt/autogql/internal/server"
)

func addDatabaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("database-url", "",
		"postgres://, mysql:// or sqlite:// URL of the store (env DATABASE_URL)")
	cmd.Flags().StringP("schema", "s", "",
		"Database schema name (default: public for PostgreSQL, the URL's database for MySQL)")
}

func addGatewayFlags(cmd *cobra.Command) {
	def := gateway.DefaultOptions()
	cmd.Flags().StringSlice("plugins", []string{"simplify", "aggregates", "many-to-many"},
		"Schema plugins: simplify, aggregates, many-to-many")
	cmd.Flags().Bool("subscriptions", def.Subscriptions, "Add the Subscription root and accept graphql-ws upgrades")
	cmd.Flags().Bool("dynamic-json", def.DynamicJSON, "Expose JSON columns as structured values instead of strings")
	cmd.Flags().Bool("setof-functions-contain-nulls", def.SetofFunctionsContainNulls, "Allow nulls in lists returned by set-returning functions")
	cmd.Flags().Bool("ignore-privileges", def.IgnorePrivileges, "Expose every table regardless of the connected role's privileges")
	cmd.Flags().String("legacy-relations", def.LegacyRelations, "Legacy relation fields: omit, deprecated or only")
}

func gatewayOptions(conf *viper.Viper, serving bool) (gateway.Options, error) {
	opts := gateway.DefaultOptions()
	opts.Plugins = nil
	for _, name := range conf.GetStringSlice("plugins") {
		p, err := gateway.PluginByName(name)
		if err != nil {
			return opts, err
		}
		opts.Plugins = append(opts.Plugins, p)
	}
	opts.Subscriptions = conf.GetBool("subscriptions")
	opts.DynamicJSON = conf.GetBool("dynamic-json")
	opts.SetofFunctionsContainNulls = conf.GetBool("setof-functions-contain-nulls")
	opts.IgnorePrivileges = conf.GetBool("ignore-privileges")
	opts.LegacyRelations = conf.GetString("legacy-relations")

	// serve-only settings keep their defaults for the other commands
	if serving {
		opts.MountPath = conf.GetString("mount-path")
		opts.WatchSchema = conf.GetBool("watch")
		opts.WatchInterval = conf.GetDuration("watch-interval")
		opts.ExportSchemaPath = conf.GetString("export-schema")
		opts.GraphiQL = conf.GetBool("graphiql")
		opts.EnhanceGraphiQL = conf.GetBool("enhance-graphiql")
		opts.EnableQueryBatching = conf.GetBool("batching")
		opts.ShowErrorStack = conf.GetString("show-error-stack")
		opts.ExtendedErrors = conf.GetStringSlice("extended-errors")
	}
	return opts, opts.Validate()
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL gateway",
		Long: `Run the api app: the GraphQL endpoint at the mount path, the root greeting,
/health and /metrics. The schema is re-derived when the database changes.`,
		Args: cobra.NoArgs,
		RunE: withConfig(runServe),
	}
	def := gateway.DefaultOptions()
	addDatabaseFlags(cmd)
	addGatewayFlags(cmd)
	cmd.Flags().String("listen", ":3000", "Address to listen on")
	cmd.Flags().Duration("shutdown-timeout", 0, "Grace period for in-flight requests on shutdown (default 30s)")
	cmd.Flags().String("mount-path", def.MountPath, "HTTP path of the GraphQL endpoint")
	cmd.Flags().Bool("watch", def.WatchSchema, "Re-derive the schema when the database changes")
	cmd.Flags().Duration("watch-interval", def.WatchInterval, "Poll period of the schema watcher")
	cmd.Flags().String("export-schema", def.ExportSchemaPath, "Write the SDL here after every derivation; empty disables export")
	cmd.Flags().Bool("graphiql", def.GraphiQL, "Serve the exploration UI on GET with an HTML Accept header")
	cmd.Flags().Bool("enhance-graphiql", def.EnhanceGraphiQL, "Serve the enhanced exploration UI")
	cmd.Flags().Bool("batching", def.EnableQueryBatching, "Accept an array of operations in one request")
	cmd.Flags().String("show-error-stack", def.ShowErrorStack, "Add stacks to errors: empty, true (string) or json (array)")
	cmd.Flags().StringSlice("extended-errors", def.ExtendedErrors, "Error extensions lifted to the top level: hint, detail, errcode")
	return cmd
}

func runServe(cmd *cobra.Command, conf *viper.Viper) error {
	url := conf.GetString("database-url")
	if url == "" {
		return errors.New("DATABASE_URL is required")
	}
	opts, err := gatewayOptions(conf, true)
	if err != nil {
		return err
	}
	logger, err := newLogger(conf.GetString("log-format"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("failed to close database connection", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := gateway.NewMetrics(reg)
	if err != nil {
		return err
	}

	gw, err := gateway.New(ctx, conn, conf.GetString("schema"), opts, logger, metrics)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Module{
		Gateway: &server.GatewayController{Gateway: gw},
		Controllers: []server.Controller{
			&server.AppController{Ping: conn.Ping},
			&server.MetricsController{Gatherer: reg},
		},
		Providers: []server.Provider{server.ProviderFunc(gw.Watch)},
	}, server.Config{
		Listen:          conf.GetString("listen"),
		ShutdownTimeout: conf.GetDuration("shutdown-timeout"),
	}, logger)
	if err != nil {
		return err
	}
	return srv.Start(ctx, nil)
}

// openGateway derives the schema once, without serving or watching
func openGateway(ctx context.Context, conf *viper.Viper, opts gateway.Options) (*gateway.Gateway, func(), error) {
	url := conf.GetString("database-url")
	if url == "" {
		return nil, nil, errors.New("DATABASE_URL is required")
	}
	conn, err := db.Open(ctx, url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}
	closeConn := func() {
		if err := conn.Close(); err != nil {
			_, _ = os.Stderr.WriteString("warning: failed to close database connection: " + err.Error() + "\n")
		}
	}

	opts.WatchSchema = false
	gw, err := gateway.New(ctx, conn, conf.GetString("schema"), opts, nil, nil)
	if err != nil {
		closeConn()
		return nil, nil, err
	}
	return gw, closeConn, nil
}
