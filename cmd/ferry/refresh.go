package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/carrel-io/ferry/pkg/log"
)

var refreshURI string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-poll submitted deposits' status references",
	Long: `Refresh polls the status reference of deposits stuck in the
submitted state and resolves their outcome. With --uri it targets a
single deposit; without, every submitted deposit found upstream.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runRefresh())
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshURI, "uri", "", "Deposit identifier to refresh (default: all submitted)")
}

func runRefresh() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, code := bootstrap(ctx)
	if code != exitOK {
		return code
	}
	defer a.close()
	logger := log.WithComponent("main")

	n, err := a.orch.RefreshSubmitted(ctx, refreshURI)
	if err != nil {
		logger.Error().Err(err).Msg("refresh pass failed")
		return exitRuntime
	}

	logger.Info().Int("deposits", n).Msg("refresh pass complete")
	return exitOK
}
