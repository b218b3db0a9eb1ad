package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/slackpanel/internal/adapters/driven/config/file"
	"github.com/custodia-labs/slackpanel/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/slackpanel/internal/logger"
)

var serveFlags struct {
	port      int
	scheduler bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger",
	Long: `Start the HTTP server that triggers pipeline runs.

Routes:
  POST /{members|channels|all}  run a pipeline (JSON body or query params)
  GET  /runs                    recent run reports
  GET  /runs/{id}               one run report
  GET  /healthz                 liveness
  GET  /metrics                 Prometheus metrics

With --scheduler (or scheduler.enabled in the config) the "all" pipeline
also runs on the configured interval.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&serveFlags.port, "port", "p", 0, "listen port (default from config or $PORT)")
	serveCmd.Flags().BoolVar(&serveFlags.scheduler, "scheduler", false, "run the pipeline on the configured interval")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := appFor(cmd)
	if err != nil {
		return err
	}

	server := a.Config.Server
	if serveFlags.port > 0 {
		server.Port = serveFlags.port
	}
	addr := server.Addr()

	api := httpapi.NewServer(a.Runner, httpapi.Options{
		Runs:     a.Runs,
		Gatherer: a.Gatherer,
		Debug:    a.Config.Environment != file.EnvProduction,
	})

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
		return api.ListenAndServe(ctx, addr)
	})

	if (serveFlags.scheduler || a.Config.Scheduler.Enabled) && a.Scheduler != nil {
		logger.Info("scheduler: running every %s", a.Config.Scheduler.Interval.Duration)
		g.Go(func() error {
			err := a.Scheduler.Start(ctx)
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		})
		defer func() {
			if err := a.Scheduler.Stop(); err != nil {
				logger.Warn("scheduler: stop: %v", err)
			}
		}()
	}

	return g.Wait()
}
