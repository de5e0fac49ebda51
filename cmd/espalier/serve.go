package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/cli"
	httpAdapter "github.com/aretw0/espalier/pkg/adapters/http"
	"github.com/aretw0/espalier/pkg/typecheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Serves the graph over a JSON API. Request bodies are overlaid on the configuration given by flags.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		reg := prometheus.NewRegistry()
		s, err := openSession(cmd, reg)
		if err != nil {
			return err
		}
		defer s.Close()

		serverOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(s.logger),
			httpAdapter.WithBaseConfig(s.engine.Config()),
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithVersion(strings.TrimSpace(espalier.Version)),
		}
		if s.opts.Enforce {
			serverOpts = append(serverOpts, httpAdapter.WithHandlers(typecheck.Enforce()))
		}
		srv := &http.Server{
			Addr:    addr,
			Handler: httpAdapter.NewHandler(s.engine.Graph(), serverOpts...),
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		serverErrors := make(chan error, 1)
		go func() {
			s.logger.Info("server listening", "addr", srv.Addr, "graph", s.opts.GraphPath)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			s.logger.Info("shutting down", "signal", ctx.Signal())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		s.logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}
