package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/openintents/checkpoint-viewer/internal/chainclient/evm"
	"github.com/openintents/checkpoint-viewer/pkg/chains"
	"github.com/openintents/checkpoint-viewer/pkg/clickhouse"
	"github.com/openintents/checkpoint-viewer/pkg/kafka"
	"github.com/openintents/checkpoint-viewer/pkg/watcher"
)

var (
	ErrNegativeRateLimit = errors.New("rpc-rate-limit must not be negative")
	ErrInvalidPort       = errors.New("http-port must be between 1 and 65535")
)

// Config holds all configuration for the checkpointviewer commands.
type Config struct {
	// Application settings
	Verbose bool
	Network chains.Network

	// Chain access
	RPC             evm.Config
	ProbeAmbiguity  bool
	EnrichCacheSize int

	// HTTP settings
	HTTPHost       string
	HTTPPort       int
	RequestTimeout time.Duration
	DisableProofs  bool

	// Watcher settings
	Watcher watcher.Config

	// Sinks, both optional
	Kafka      kafka.ProducerConfig
	ClickHouse clickhouse.ClickhouseConfig

	// Metrics labels
	Environment   string
	Region        string
	CloudProvider string
}

// HTTPAddr returns the address the API and metrics are served on.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// buildConfig reads the flags shared by every chain command.
func buildConfig(c *cli.Context) (*Config, error) {
	network, err := chains.ParseNetwork(c.String("network"))
	if err != nil {
		return nil, err
	}
	if c.Float64("rpc-rate-limit") < 0 {
		return nil, ErrNegativeRateLimit
	}

	return &Config{
		Verbose: c.Bool("verbose"),
		Network: network,
		RPC: evm.Config{
			CallTimeout:  c.Duration("rpc-timeout"),
			MaxRetries:   max(c.Int("rpc-max-retries"), 0),
			RetryBackoff: c.Duration("rpc-retry-backoff"),
			RateLimit:    c.Float64("rpc-rate-limit"),
			RateBurst:    c.Int("rpc-rate-burst"),
		},
		ProbeAmbiguity:  c.Bool("probe-ambiguity"),
		EnrichCacheSize: c.Int("enrich-cache-size"),
	}, nil
}

// buildServeConfig extends buildConfig with the HTTP, watcher and sink
// settings. Kafka and ClickHouse are read from their KAFKA_* and CLICKHOUSE_*
// variables and stay disabled when no brokers or hosts are set.
func buildServeConfig(c *cli.Context) (*Config, error) {
	cfg, err := buildConfig(c)
	if err != nil {
		return nil, err
	}
	if p := c.Int("http-port"); p < 1 || p > 65535 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidPort, p)
	}

	kafkaCfg, err := kafka.LoadProducerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kafka config: %w", err)
	}
	chCfg, err := clickhouse.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ClickHouse config: %w", err)
	}

	w := watcher.DefaultConfig()
	w.Interval = c.Duration("watch-interval")
	w.Concurrency = c.Int64("watch-concurrency")
	w.PollTimeout = c.Duration("watch-poll-timeout")
	w.MaxBlocksBehind = c.Uint64("max-blocks-behind")

	cfg.HTTPHost = c.String("http-host")
	cfg.HTTPPort = c.Int("http-port")
	cfg.RequestTimeout = c.Duration("request-timeout")
	cfg.DisableProofs = c.Bool("disable-proof-generation")
	cfg.Watcher = w
	cfg.Kafka = kafkaCfg
	cfg.ClickHouse = chCfg
	cfg.Environment = c.String("environment")
	cfg.Region = c.String("region")
	cfg.CloudProvider = c.String("cloud-provider")
	return cfg, nil
}
