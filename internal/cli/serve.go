package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkruijt/linkmap/internal/api"
	"github.com/mkruijt/linkmap/pkg/pipeline"
)

// newServeCmd creates the serve command: the HTTP API backed by the
// configured cache and session store.
func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map construction HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			opts, err := a.pipelineOptions(cmd, "", "")
			if err != nil {
				return err
			}

			store := a.buildCache(ctx, false, logger)
			defer store.Close()

			sessions, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer sessions.Close(context.Background())

			runner := pipeline.NewRunner(nil, store, nil, logger)
			server := api.New(runner, sessions, opts, logger)

			listen := a.cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				listen = addr
			}
			srv := &http.Server{
				Addr:              listen,
				Handler:           server.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			logger.Info("serving", "addr", listen)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
				return ctx.Err()
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
