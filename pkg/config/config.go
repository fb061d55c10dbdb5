package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied when the corresponding environment variable is
// unset.
const (
	DefaultWorkersConcurrency  = 4
	DefaultListenerConcurrency = 4
	DefaultJobsIntervalMS      = 600000
	DefaultSwordSleepMS        = 10000
	DefaultHTTPAgent           = "ferry"
	DefaultAdminAddr           = ":2112"
	DefaultUpstreamTimeout     = 30 * time.Second
)

// Config captures the process configuration. Every field binds to an
// ORCH_-prefixed environment variable; none of them require a file.
type Config struct {
	// WorkersConcurrency bounds the deposit worker pool
	// (ORCH_WORKERS_CONCURRENCY).
	WorkersConcurrency int

	// ListenerConcurrency sets the per-entity-type event listener pool
	// size (ORCH_LISTENER_CONCURRENCY).
	ListenerConcurrency int

	// JobsInterval is the period of the background retry/refresh loop
	// (ORCH_JOBS_DEFAULT_INTERVAL_MS).
	JobsInterval time.Duration

	// SwordSleep is the minimum wait between a successful transfer and
	// the first poll of its status reference
	// (ORCH_SWORDV2_SLEEP_TIME_MS).
	SwordSleep time.Duration

	// HTTPAgent is the User-Agent the upstream client sends and the
	// attribution the listeners suppress (ORCH_HTTP_AGENT).
	HTTPAgent string

	// RepositoryConfiguration locates the packager configuration
	// document, as a path or URI (ORCH_REPOSITORY_CONFIGURATION).
	RepositoryConfiguration string

	// Upstream repository connection (ORCH_UPSTREAM_URL,
	// ORCH_UPSTREAM_USERNAME, ORCH_UPSTREAM_PASSWORD,
	// ORCH_UPSTREAM_TIMEOUT).
	UpstreamURL      string
	UpstreamUsername string
	UpstreamPassword string
	UpstreamTimeout  time.Duration

	// AdminAddr is the bind address of the health and metrics server
	// (ORCH_ADMIN_ADDR).
	AdminAddr string

	// DataDir holds the dispatch journal (ORCH_DATA_DIR). Empty
	// disables the journal.
	DataDir string

	// LogLevel and LogJSON control log output (ORCH_LOG_LEVEL,
	// ORCH_LOG_JSON).
	LogLevel string
	LogJSON  bool
}

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workers.concurrency", DefaultWorkersConcurrency)
	v.SetDefault("listener.concurrency", DefaultListenerConcurrency)
	v.SetDefault("jobs.default.interval.ms", DefaultJobsIntervalMS)
	v.SetDefault("swordv2.sleep.time.ms", DefaultSwordSleepMS)
	v.SetDefault("http.agent", DefaultHTTPAgent)
	v.SetDefault("admin.addr", DefaultAdminAddr)
	v.SetDefault("upstream.timeout", DefaultUpstreamTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	cfg := &Config{
		WorkersConcurrency:      v.GetInt("workers.concurrency"),
		ListenerConcurrency:     v.GetInt("listener.concurrency"),
		JobsInterval:            time.Duration(v.GetInt64("jobs.default.interval.ms")) * time.Millisecond,
		SwordSleep:              time.Duration(v.GetInt64("swordv2.sleep.time.ms")) * time.Millisecond,
		HTTPAgent:               v.GetString("http.agent"),
		RepositoryConfiguration: v.GetString("repository.configuration"),
		UpstreamURL:             v.GetString("upstream.url"),
		UpstreamUsername:        v.GetString("upstream.username"),
		UpstreamPassword:        v.GetString("upstream.password"),
		UpstreamTimeout:         v.GetDuration("upstream.timeout"),
		AdminAddr:               v.GetString("admin.addr"),
		DataDir:                 v.GetString("data.dir"),
		LogLevel:                v.GetString("log.level"),
		LogJSON:                 v.GetBool("log.json"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot run with
func Validate(cfg *Config) error {
	if cfg.WorkersConcurrency < 1 {
		return fmt.Errorf("config: ORCH_WORKERS_CONCURRENCY must be at least 1, got %d", cfg.WorkersConcurrency)
	}
	if cfg.ListenerConcurrency < 1 {
		return fmt.Errorf("config: ORCH_LISTENER_CONCURRENCY must be at least 1, got %d", cfg.ListenerConcurrency)
	}
	if cfg.JobsInterval <= 0 {
		return fmt.Errorf("config: ORCH_JOBS_DEFAULT_INTERVAL_MS must be positive, got %s", cfg.JobsInterval)
	}
	if cfg.SwordSleep < 0 {
		return fmt.Errorf("config: ORCH_SWORDV2_SLEEP_TIME_MS must not be negative, got %s", cfg.SwordSleep)
	}
	if cfg.UpstreamURL == "" {
		return fmt.Errorf("config: ORCH_UPSTREAM_URL is required")
	}
	if cfg.RepositoryConfiguration == "" {
		return fmt.Errorf("config: ORCH_REPOSITORY_CONFIGURATION is required")
	}
	return nil
}
