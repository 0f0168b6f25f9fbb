package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tordrt/autogql/internal/client"
	"github.com/tordrt/autogql/internal/server"
	"github.com/tordrt/autogql/internal/web"
)

func newWebCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Run the front-end that renders MyQuery",
		Args:  cobra.NoArgs,
		RunE:  withConfig(runWeb),
	}
	cmd.Flags().String("listen", ":3001", "Address to listen on")
	cmd.Flags().String("endpoint", "http://localhost:3000/graphql", "GraphQL endpoint of the gateway")
	cmd.Flags().Duration("timeout", 10*time.Second, "Timeout of one gateway request")
	cmd.Flags().Duration("shutdown-timeout", 0, "Grace period for in-flight requests on shutdown (default 30s)")
	return cmd
}

func runWeb(cmd *cobra.Command, conf *viper.Viper) error {
	logger, err := newLogger(conf.GetString("log-format"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	hc := &http.Client{Timeout: conf.GetDuration("timeout")}
	c := client.New(conf.GetString("endpoint"), client.WithHTTPClient(hc))
	page, err := web.NewPage(c, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Module{
		Controllers: []server.Controller{page},
	}, server.Config{
		Listen:          conf.GetString("listen"),
		ShutdownTimeout: conf.GetDuration("shutdown-timeout"),
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx, nil)
}
