package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cache "github.com/krisalay/reviewhub-client"
	"github.com/krisalay/reviewhub-client/config"
	"github.com/krisalay/reviewhub-client/engine"
	"github.com/krisalay/reviewhub-client/expiration"
	"github.com/krisalay/reviewhub-client/logging"
	"github.com/krisalay/reviewhub-client/metrics"
	"github.com/krisalay/reviewhub-client/refresh"
	"github.com/krisalay/reviewhub-client/resource"
	"github.com/krisalay/reviewhub-client/transport"
)

// app carries everything a command needs. It is built once per invocation in PersistentPreRunE.
type app struct {
	cfgPath     string
	jsonOut     bool
	dumpMetrics bool

	out    io.Writer
	errOut io.Writer

	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()
	registry *prometheus.Registry
	metrics  *metrics.Collector
	cache    *cache.QueryCache
	client   *resource.Client
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger, a.closeLog = logger, closeLog

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewCollector(a.registry)
	a.cache = newCache(cfg, a.metrics, logger)

	tc, err := transport.New(transport.Config{
		BaseURL:   cfg.APIURL,
		Tokens:    transport.NewFileTokenStore(cfg.TokenFile),
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimitPerSec,
		Burst:     cfg.RateLimitBurst,
		UserAgent: cfg.UserAgent,
		Logger:    logger.Named("transport"),
	})
	if err != nil {
		return err
	}
	a.client = resource.NewClient(tc, a.cache, logger.Named("resource"))

	logger.Debug("client ready",
		zap.String("api_url", cfg.APIURL),
		zap.Int("shards", cfg.Cache.Shards),
		zap.Duration("stale_time", cfg.Cache.StaleTime),
	)
	return nil
}

// newCache builds the query cache described by cfg.
func newCache(cfg *config.Config, m *metrics.Collector, logger *zap.Logger) *cache.QueryCache {
	eng := engine.NewCacheEngine(
		&expiration.StaleWhileRevalidate{GCTime: cfg.Cache.GCTime},
		refresh.NewBackground(cfg.Cache.RevalidateLimit, logger.Named("refresh")),
		cfg.RetryPolicy(),
		m,
		logger.Named("cache"),
	)
	eng.StaleTime = cfg.Cache.StaleTime
	eng.FetchTimeout = cfg.Cache.FetchTimeout

	return cache.NewQueryCache(cfg.Cache.Shards, cfg.Cache.Capacity, cfg.EvictionPolicy(), eng)
}

func (a *app) teardown() {
	if a.client != nil {
		a.client.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.dumpMetrics && a.registry != nil {
		if err := a.writeMetrics(a.errOut); err != nil {
			fmt.Fprintln(a.errOut, "metrics:", err)
		}
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}

func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// print writes v as indented JSON when --json is set, otherwise calls human.
func (a *app) print(v any, human func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(a.out)
	return nil
}

// newRootCommand returns the command tree and the app it fills in. Call
// app.teardown after Execute, whether or not the command failed.
func newRootCommand(out, errOut io.Writer) (*cobra.Command, *app) {
	a := &app{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Command-line client for the merchant review API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to reviewhub.yaml")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")
	cmd.PersistentFlags().BoolVar(&a.dumpMetrics, "metrics", false, "print cache metrics to stderr on exit")

	cmd.AddCommand(
		newMerchantsCmd(a),
		newReviewsCmd(a),
		newVisitCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newBenchCmd(a),
	)
	return cmd, a
}
