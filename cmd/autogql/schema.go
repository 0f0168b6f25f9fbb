package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/derive"
	"github.com/tordrt/autogql/internal/formatter"
	"github.com/tordrt/autogql/internal/gateway"
	"github.com/tordrt/autogql/internal/schema"
)

func newExportSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-schema",
		Short: "Derive the GraphQL schema once and write its SDL",
		Args:  cobra.NoArgs,
		RunE:  withConfig(runExportSchema),
	}
	addDatabaseFlags(cmd)
	addGatewayFlags(cmd)
	cmd.Flags().StringP("output", "o", gateway.DefaultOptions().ExportSchemaPath, "SDL file to write, - for stdout")
	return cmd
}

func runExportSchema(cmd *cobra.Command, conf *viper.Viper) error {
	opts, err := gatewayOptions(conf, false)
	if err != nil {
		return err
	}
	output := conf.GetString("output")
	opts.ExportSchemaPath = output
	if output == "-" {
		opts.ExportSchemaPath = ""
	}

	gw, closeConn, err := openGateway(cmd.Context(), conf, opts)
	if err != nil {
		return err
	}
	defer closeConn()

	if output == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), gw.SDL())
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d tables)\n", output, len(gw.Source().Tables))
	return nil
}

func newIntrospectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Print the relational model with the GraphQL names derived from it",
		Long: `Print the introspected tables, columns, relations and functions in a compact text
or markdown format, annotated with the GraphQL names the gateway derives from them.`,
		Args: cobra.NoArgs,
		RunE: withConfig(runIntrospect),
	}
	addDatabaseFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringP("tables", "t", "", "Specific tables (comma-separated, optional)")
	cmd.Flags().StringP("exclude", "x", "", "Tables to leave out (comma-separated, optional)")
	cmd.Flags().StringP("format", "f", "text", "Output format: text or markdown")
	cmd.Flags().StringSlice("plugins", []string{"simplify"}, "Plugins whose naming the annotations follow")
	return cmd
}

func runIntrospect(cmd *cobra.Command, conf *viper.Viper) error {
	ctx := cmd.Context()

	format := conf.GetString("format")
	if format != "text" && format != "markdown" {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'markdown')", format)
	}
	var plugins []derive.Plugin
	for _, name := range conf.GetStringSlice("plugins") {
		p, err := gateway.PluginByName(name)
		if err != nil {
			return err
		}
		plugins = append(plugins, p)
	}

	url := conf.GetString("database-url")
	if url == "" {
		return errors.New("DATABASE_URL is required")
	}
	conn, err := db.Open(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close database connection: %v\n", err)
		}
	}()

	extractor, err := db.NewSchemaExtractor(conn, conf.GetString("schema"))
	if err != nil {
		return err
	}
	extracted, err := extractor.ExtractSchema(ctx, parseTableList(conf.GetString("tables")))
	if err != nil {
		return fmt.Errorf("failed to extract schema: %w", err)
	}
	filterExcludedTables(extracted, parseTableList(conf.GetString("exclude")))

	writer := cmd.OutOrStdout()
	if path := conf.GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close output file: %v\n", err)
			}
		}()
		writer = f
	}

	names := derive.InflectorFor(plugins)
	if format == "markdown" {
		err = formatter.NewMarkdownFormatter(writer, names).Format(extracted)
	} else {
		err = formatter.NewTextFormatter(writer, names).Format(extracted)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func parseTableList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	tables := strings.Split(s, ",")
	for i, t := range tables {
		tables[i] = strings.TrimSpace(t)
	}
	return tables
}

// filterExcludedTables drops the named tables in place, keeping order
func filterExcludedTables(s *schema.Schema, exclude []string) {
	if len(exclude) == 0 {
		return
	}
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}
	kept := s.Tables[:0]
	for _, t := range s.Tables {
		if !skip[t.Name] {
			kept = append(kept, t)
		}
	}
	s.Tables = kept
}
