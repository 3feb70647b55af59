package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/projector/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		Long: `Serve the catalog as projected documents.

Routes:
  GET /movies        every movie
  GET /movies/{id}   one movie
  GET /actors/{id}   one actor
  GET /users/{id}    one user
  GET /health        record counts

Query parameters:
  fields=name,actors(first_name)    sparse field selection
  no_links=true                     omit links
  params[conditionals_off]=yes      parameters passed to conditions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			handlers := server.NewHandlers(a.store, a.serializers, a.defaults(), a.logger)
			srv, err := server.New(server.DefaultConfig(cfg.Server.Address(), handlers.Router(cfg.Server.APIPrefix)))
			if err != nil {
				a.Close()
				return err
			}
			if err := srv.Listen(); err != nil {
				a.Close()
				return err
			}

			gs := server.NewGracefulShutdown(srv, &server.ShutdownConfig{
				Timeout: cfg.Server.ShutdownTimeout,
				Logger:  a.logger,
			})
			gs.RegisterHook(func(ctx context.Context) error {
				return a.Close()
			})

			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Serving on http://%s%s\n", srv.Addr(), cfg.Server.APIPrefix)
			if err := gs.Start(cmd.Context()); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to listen on (overrides server.port)")
	cmd.Flags().StringVar(&host, "host", "localhost", "Host to bind (overrides server.host)")
	return cmd
}
