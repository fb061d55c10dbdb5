package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/carrel-io/ferry/pkg/api"
	"github.com/carrel-io/ferry/pkg/events"
	"github.com/carrel-io/ferry/pkg/health"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/orchestrator"
	"github.com/carrel-io/ferry/pkg/types"
	"github.com/carrel-io/ferry/pkg/worker"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the orchestration service",
	Long: `Listen starts the deposit orchestration service: the event ingress,
the submission and deposit listener pools, the deposit worker pool, and
the periodic retry/refresh jobs. The service runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runListen())
	},
}

func runListen() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, code := bootstrap(ctx)
	if code != exitOK {
		return code
	}
	defer a.close()
	logger := log.WithComponent("main")

	broker := events.NewBroker()
	broker.Start()

	subPool := events.NewListenerPool(broker, types.EntityTypeSubmission,
		a.cfg.ListenerConcurrency, a.cfg.HTTPAgent, a.orch.HandleSubmissionEvent)
	depPool := events.NewListenerPool(broker, types.EntityTypeDeposit,
		a.cfg.ListenerConcurrency, a.cfg.HTTPAgent, a.orch.HandleDepositEvent)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return subPool.Run(gctx) })
	g.Go(func() error { return depPool.Run(gctx) })

	a.pool.Start(ctx)

	jobs := orchestrator.NewJobs(a.orch, a.cfg.JobsInterval)
	jobs.Start(ctx)

	admin := api.NewServer(a.cfg.AdminAddr, broker,
		health.NewUpstreamChecker(a.client, a.cfg.UpstreamTimeout))
	admin.Start()

	logger.Info().Str("admin", a.cfg.AdminAddr).Msg("ferry listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	code = exitOK
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-gctx.Done():
		if err := context.Cause(gctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("listener pool failed")
			code = exitRuntime
		}
	}

	// Stop intake first, then let in-flight work finish.
	jobs.Stop()
	broker.Stop()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("listener pool failed")
		code = exitRuntime
	}
	a.pool.Drain(worker.DefaultDrainTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := admin.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin server shutdown incomplete")
	}

	return code
}
