package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openintents/checkpoint-viewer/pkg/api"
	"github.com/openintents/checkpoint-viewer/pkg/clickhouse"
	"github.com/openintents/checkpoint-viewer/pkg/data/clickhouse/statushistory"
	"github.com/openintents/checkpoint-viewer/pkg/kafka"
	"github.com/openintents/checkpoint-viewer/pkg/metrics"
	"github.com/openintents/checkpoint-viewer/pkg/utils"
	"github.com/openintents/checkpoint-viewer/pkg/watcher"
)

const shutdownTimeout = 5 * time.Second

func serve(c *cli.Context) error {
	cfg, err := buildServeConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"network", cfg.Network,
		"rpcTimeout", cfg.RPC.CallTimeout,
		"rpcMaxRetries", cfg.RPC.MaxRetries,
		"rpcRateLimit", cfg.RPC.RateLimit,
		"probeAmbiguity", cfg.ProbeAmbiguity,
		"httpAddr", cfg.HTTPAddr(),
		"requestTimeout", cfg.RequestTimeout,
		"proofGeneration", !cfg.DisableProofs,
		"watchInterval", cfg.Watcher.Interval,
		"watchConcurrency", cfg.Watcher.Concurrency,
		"maxBlocksBehind", cfg.Watcher.MaxBlocksBehind,
		"kafkaEnabled", cfg.Kafka.Enabled(),
		"kafkaTopic", cfg.Kafka.Topic,
		"clickhouseEnabled", cfg.ClickHouse.Enabled(),
		"clickhouseDatabase", cfg.ClickHouse.Database,
		"clickhouseTable", cfg.ClickHouse.Table,
		"environment", cfg.Environment,
		"region", cfg.Region,
		"cloudProvider", cfg.CloudProvider,
	)

	// Initialize Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		Network:       string(cfg.Network),
		Environment:   cfg.Environment,
		Region:        cfg.Region,
		CloudProvider: cfg.CloudProvider,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	st, err := newStack(cfg, sugar, m)
	if err != nil {
		return err
	}
	defer st.Close()

	var prover api.Prover
	if !cfg.DisableProofs {
		prover = st.prover
	}
	handler := api.NewHandler(st.registry, prover, sugar, cfg.RequestTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, producer, cleanup, err := openSinks(ctx, cfg, sugar)
	if err != nil {
		return err
	}
	defer cleanup()

	w, err := watcher.New(st.registry, cfg.Watcher, sugar, m, sinks...)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	server := metrics.NewServer(cfg.HTTPAddr(), registry,
		metrics.WithHandler("/api/", handler.Routes()),
		metrics.WithReadiness(w.Ready),
	)
	serverErrCh := server.Start()
	sugar.Infof("serving api and metrics on %s", cfg.HTTPAddr())

	var producerErrCh <-chan error
	if producer != nil {
		producerErrCh = producer.Errors()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-serverErrCh:
			if err != nil {
				return fmt.Errorf("http server failed: %w", err)
			}
			return nil
		}
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-producerErrCh:
			return err
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		sugar.Infow("exiting due to context cancellation")
		err = nil
	} else if err != nil {
		sugar.Errorw("serve failed", "error", err)
	}

	sugar.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		sugar.Warnw("http server shutdown error", "error", serr)
	}

	sugar.Info("shutdown complete")
	return err
}

// openSinks connects the optional Kafka feed and ClickHouse history. The
// returned cleanup closes whatever was opened.
func openSinks(ctx context.Context, cfg *Config, log *zap.SugaredLogger) ([]watcher.Sink, *kafka.Producer, func(), error) {
	var (
		sinks    []watcher.Sink
		producer *kafka.Producer
		closers  []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) ([]watcher.Sink, *kafka.Producer, func(), error) {
		cleanup()
		return nil, nil, func() {}, err
	}

	if cfg.Kafka.Enabled() {
		if err := cfg.Kafka.Validate(); err != nil {
			return fail(fmt.Errorf("invalid kafka config: %w", err))
		}
		admin, err := confluentKafka.NewAdminClient(&confluentKafka.ConfigMap{
			"bootstrap.servers": cfg.Kafka.BootstrapServers,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to create kafka admin client: %w", err))
		}
		err = kafka.EnsureTopic(ctx, admin, cfg.Kafka.TopicConfig(), log)
		admin.Close()
		if err != nil {
			return fail(fmt.Errorf("failed to ensure kafka topic exists: %w", err))
		}

		producer, err = kafka.NewProducer(ctx, cfg.Kafka.ConfigMap(), log)
		if err != nil {
			return fail(fmt.Errorf("failed to create kafka producer: %w", err))
		}
		closers = append(closers, func() { producer.Close(cfg.Kafka.FlushTimeout) })
		sinks = append(sinks, watcher.NewFeed(producer, cfg.Kafka.Topic))
		log.Infow("publishing status snapshots", "topic", cfg.Kafka.Topic)
	}

	if cfg.ClickHouse.Enabled() {
		client, err := clickhouse.New(ctx, cfg.ClickHouse, log)
		if err != nil {
			return fail(fmt.Errorf("failed to create ClickHouse client: %w", err))
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.Warnw("failed to close ClickHouse client", "error", err)
			}
		})
		repo, err := statushistory.NewRepository(ctx, client, cfg.ClickHouse.Cluster, cfg.ClickHouse.Database, cfg.ClickHouse.Table)
		if err != nil {
			return fail(fmt.Errorf("failed to create status history repository: %w", err))
		}
		sinks = append(sinks, repo)
		log.Infow("recording status history", "database", cfg.ClickHouse.Database, "table", cfg.ClickHouse.Table)
	}

	if len(sinks) == 0 {
		log.Info("no status sink configured, the watcher only logs")
	}
	return sinks, producer, cleanup, nil
}
