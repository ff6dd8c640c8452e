package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/openintents/checkpoint-viewer/internal/chainclient/evm"
	"github.com/openintents/checkpoint-viewer/pkg/enrich"
	"github.com/openintents/checkpoint-viewer/pkg/watcher"
)

// commonFlags are shared by every command that talks to chains.
func commonFlags() []cli.Flag {
	rpc := evm.DefaultConfig()
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
		},
		&cli.StringFlag{
			Name:    "network",
			Aliases: []string{"n"},
			Usage:   "The network whose chain defaults to load (mainnet, testnet or devnet)",
			EnvVars: []string{"NETWORK"},
			Value:   "mainnet",
		},
		&cli.DurationFlag{
			Name:    "rpc-timeout",
			Usage:   "Timeout of a single RPC attempt",
			EnvVars: []string{"RPC_TIMEOUT"},
			Value:   rpc.CallTimeout,
		},
		&cli.IntFlag{
			Name:    "rpc-max-retries",
			Usage:   "Retries after a failed RPC attempt",
			EnvVars: []string{"RPC_MAX_RETRIES"},
			Value:   rpc.MaxRetries,
		},
		&cli.DurationFlag{
			Name:    "rpc-retry-backoff",
			Usage:   "Pause between RPC attempts",
			EnvVars: []string{"RPC_RETRY_BACKOFF"},
			Value:   rpc.RetryBackoff,
		},
		&cli.Float64Flag{
			Name:    "rpc-rate-limit",
			Usage:   "Requests per second per endpoint (0 disables limiting)",
			EnvVars: []string{"RPC_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "rpc-rate-burst",
			Usage:   "Burst allowed by the RPC rate limiter",
			EnvVars: []string{"RPC_RATE_BURST"},
			Value:   rpc.RateBurst,
		},
		&cli.BoolFlag{
			Name:    "probe-ambiguity",
			Usage:   "Warn when more than one finalization schema has events in the scan window",
			EnvVars: []string{"PROBE_AMBIGUITY"},
		},
		&cli.IntFlag{
			Name:    "enrich-cache-size",
			Usage:   "Number of committing block timestamps kept in memory",
			EnvVars: []string{"ENRICH_CACHE_SIZE"},
			Value:   enrich.DefaultCacheSize,
		},
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print JSON instead of text",
	}
}

func chainFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "chain",
		Aliases:  []string{"c"},
		Usage:    "The chain ID (taiko, linea, arbitrum)",
		EnvVars:  []string{"CHAIN"},
		Required: required,
	}
}

func directionFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "direction",
		Aliases: []string{"d"},
		Usage:   "The direction (l1ToL2 or l2ToL1)",
		Value:   value,
	}
}

func statusFlags() []cli.Flag {
	return []cli.Flag{chainFlag(false), directionFlag(""), jsonFlag()}
}

func checkpointsFlags() []cli.Flag {
	return []cli.Flag{
		chainFlag(true),
		directionFlag("l2ToL1"),
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "The maximum number of checkpoints to list",
			Value:   10,
		},
		jsonFlag(),
	}
}

func blockFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "block",
		Aliases:  []string{"b"},
		Usage:    "The source-layer block number",
		Required: true,
	}
}

func checkProofFlags() []cli.Flag {
	return []cli.Flag{chainFlag(true), directionFlag("l2ToL1"), blockFlag(), jsonFlag()}
}

func generateProofFlags() []cli.Flag {
	return []cli.Flag{
		chainFlag(true),
		directionFlag("l2ToL1"),
		blockFlag(),
		&cli.StringFlag{
			Name:  "slot",
			Usage: "The storage slot to prove (defaults to the chain's checkpoints slot)",
		},
		&cli.StringFlag{
			Name:  "account",
			Usage: "The account to prove (defaults to the source-layer contract)",
		},
	}
}

func serveFlags() []cli.Flag {
	w := watcher.DefaultConfig()
	return append(commonFlags(),
		&cli.StringFlag{
			Name:    "http-host",
			Usage:   "Host for the HTTP server serving the API and metrics (empty for all interfaces)",
			EnvVars: []string{"HTTP_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "http-port",
			Aliases: []string{"p"},
			Usage:   "Port for the HTTP server serving the API and metrics",
			EnvVars: []string{"HTTP_PORT"},
			Value:   8080,
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Usage:   "Upper bound for a single API request (0 disables it)",
			EnvVars: []string{"REQUEST_TIMEOUT"},
			Value:   30 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "disable-proof-generation",
			Usage:   "Reject POST /api/generate-proof",
			EnvVars: []string{"DISABLE_PROOF_GENERATION"},
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "Deployment environment label for metrics (e.g., production, staging)",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Cloud region label for metrics (e.g., us-east-1)",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "cloud-provider",
			Usage:   "Cloud provider label for metrics (e.g., aws, gcp)",
			EnvVars: []string{"CLOUD_PROVIDER"},
			Value:   "",
		},
		&cli.DurationFlag{
			Name:    "watch-interval",
			Usage:   "Interval between status polls",
			EnvVars: []string{"WATCH_INTERVAL"},
			Value:   w.Interval,
		},
		&cli.Int64Flag{
			Name:    "watch-concurrency",
			Usage:   "Maximum number of concurrent status polls",
			EnvVars: []string{"WATCH_CONCURRENCY"},
			Value:   w.Concurrency,
		},
		&cli.DurationFlag{
			Name:    "watch-poll-timeout",
			Usage:   "Timeout of a single status poll",
			EnvVars: []string{"WATCH_POLL_TIMEOUT"},
			Value:   w.PollTimeout,
		},
		&cli.Uint64Flag{
			Name:    "max-blocks-behind",
			Usage:   "Warn when a direction lags more source blocks than this",
			EnvVars: []string{"MAX_BLOCKS_BEHIND"},
			Value:   w.MaxBlocksBehind,
		},
	)
}

func removeHistoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
		},
		chainFlag(true),
	}
}
