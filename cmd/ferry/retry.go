package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/worker"
)

var retryURI string

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-enqueue failed deposits",
	Long: `Retry re-enqueues deposits whose transfer failed, or that never
started. With --uri it targets a single deposit; without, every failed
deposit found upstream.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runRetry())
	},
}

func init() {
	retryCmd.Flags().StringVar(&retryURI, "uri", "", "Deposit identifier to retry (default: all failed)")
}

func runRetry() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, code := bootstrap(ctx)
	if code != exitOK {
		return code
	}
	defer a.close()
	logger := log.WithComponent("main")

	a.pool.Start(ctx)

	n, err := a.orch.RetryFailed(ctx, retryURI)
	if err != nil {
		logger.Error().Err(err).Msg("retry pass failed")
		return exitRuntime
	}
	a.pool.Drain(worker.DefaultDrainTimeout)

	logger.Info().Int("deposits", n).Msg("retry pass complete")
	return exitOK
}
