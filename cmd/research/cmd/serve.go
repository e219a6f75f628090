package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/quorum-research/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve research runs over a REST API, with Prometheus metrics on /metrics
and per-run progress as Server-Sent Events.`,
	Example: `  research serve
  research serve --addr 0.0.0.0:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "address to listen on (default from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, appOptions{needModel: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(a.engine, a.bus,
		api.WithLogger(a.logger.Logger),
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
