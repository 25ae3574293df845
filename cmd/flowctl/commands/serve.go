package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/garyjia/lottery-onboarding/internal/application/dispatcher"
	httpapi "github.com/garyjia/lottery-onboarding/internal/interfaces/http"
)

// serve: run the HTTP API with the background workers until interrupted.
func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flow over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := startApp(ctx, true)
			if err != nil {
				return err
			}
			defer closeApp(c)

			if port == 0 {
				port = cfg.Server.Port
			}
			srv := httpapi.NewServer(httpapi.ServerConfig{
				Host:         cfg.Server.Host,
				Port:         port,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				Mode:         cfg.Server.Mode,
			}, c.Flow().Service, c.History(), dispatcher.NewZapLogger(logger.Named("http")))

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	return cmd
}
