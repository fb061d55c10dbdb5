package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/carrel-io/ferry/pkg/config"
	"github.com/carrel-io/ferry/pkg/cse"
	"github.com/carrel-io/ferry/pkg/faults"
	"github.com/carrel-io/ferry/pkg/journal"
	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/orchestrator"
	"github.com/carrel-io/ferry/pkg/packager"
	"github.com/carrel-io/ferry/pkg/repository"
	"github.com/carrel-io/ferry/pkg/status"
	"github.com/carrel-io/ferry/pkg/worker"
)

// app is the assembled service: configuration, upstream client, target
// registry, and the orchestrator with its collaborators.
type app struct {
	cfg      *config.Config
	client   *repository.HTTPClient
	registry *packager.Registry
	engine   *cse.Engine
	pool     *worker.Pool
	sink     *faults.Handler
	journal  *journal.Journal
	orch     *orchestrator.Orchestrator
}

// bootstrap builds the service from the environment. The exit code
// distinguishes configuration faults from an unreachable upstream so
// operators can tell a bad deployment from a down dependency.
func bootstrap(ctx context.Context) (*app, int) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, exitConfig
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("main")

	client, err := repository.NewHTTPClient(repository.HTTPConfig{
		BaseURL:   cfg.UpstreamURL,
		UserAgent: cfg.HTTPAgent,
		Username:  cfg.UpstreamUsername,
		Password:  cfg.UpstreamPassword,
		Timeout:   cfg.UpstreamTimeout,
	})
	if err != nil {
		logger.Error().Err(err).Str("category", "config").Msg("invalid upstream configuration")
		return nil, exitConfig
	}
	if err := client.Ping(ctx); err != nil {
		logger.Error().Err(err).Str("url", cfg.UpstreamURL).Msg("upstream repository unreachable")
		return nil, exitUpstream
	}

	doc, err := packager.LoadDocumentURI(cfg.RepositoryConfiguration)
	if err != nil {
		logger.Error().Err(err).Str("category", "config").
			Str("uri", cfg.RepositoryConfiguration).Msg("cannot load repository configuration")
		return nil, exitConfig
	}
	registry, err := packager.BuildRegistry(doc, driverFactories())
	if err != nil {
		logger.Error().Err(err).Str("category", "config").Msg("cannot build packager registry")
		return nil, exitConfig
	}

	a := &app{
		cfg:      cfg,
		client:   client,
		registry: registry,
		engine:   cse.New(client),
		pool:     worker.NewPool(cfg.WorkersConcurrency, 0),
	}
	a.sink = faults.NewHandler(a.engine)

	if cfg.DataDir != "" {
		j, err := journal.Open(cfg.DataDir)
		if err != nil {
			logger.Error().Err(err).Str("category", "config").
				Str("dir", cfg.DataDir).Msg("cannot open dispatch journal")
			return nil, exitConfig
		}
		a.journal = j
	}

	a.orch = orchestrator.New(orchestrator.Config{
		Client:       client,
		Engine:       a.engine,
		Registry:     registry,
		Pool:         a.pool,
		Sink:         a.sink,
		Journal:      a.journal,
		RefreshDelay: cfg.SwordSleep,
	})

	logger.Info().
		Str("upstream", cfg.UpstreamURL).
		Int("targets", len(registry.Keys())).
		Int("workers", cfg.WorkersConcurrency).
		Msg("ferry assembled")
	return a, exitOK
}

// close releases the app's resources
func (a *app) close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

// driverFactories binds the in-tree drivers. Network transports and
// additional packaging specifications register here.
func driverFactories() packager.Factories {
	httpc := &http.Client{}
	zip := packager.NewZipAssembler(httpc)
	return packager.Factories{
		Assemblers: map[string]packager.Assembler{
			"simple-zip": zip,
			"http://purl.org/net/sword/package/SimpleZip": zip,
		},
		Transports: map[string]packager.Transport{
			packager.ProtocolFilesystem: packager.NewFilesystemTransport(),
		},
		Processors: map[string]packager.StatusProcessor{
			status.BeanNameMapping: status.NewMappingProcessor(httpc),
		},
	}
}
