package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Command flags are parsed after Before runs, so values
// from --env-file reach their EnvVars.
func newApp() *cli.App {
	return &cli.App{
		Name:  "checkpointviewer",
		Usage: "Resolve L1/L2 rollup checkpoints and storage proof readiness",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before parsing command flags",
				Value: ".env",
			},
		},
		Before: loadEnvFile,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and run the status watcher",
				Flags:  serveFlags(),
				Action: serve,
			},
			{
				Name:   "chains",
				Usage:  "List the chains of the selected network",
				Flags:  append(commonFlags(), jsonFlag()),
				Action: listChains,
			},
			{
				Name:   "status",
				Usage:  "Show checkpoint lag for one or every chain",
				Flags:  append(commonFlags(), statusFlags()...),
				Action: status,
			},
			{
				Name:   "checkpoints",
				Usage:  "List the most recent checkpoints of a chain",
				Flags:  append(commonFlags(), checkpointsFlags()...),
				Action: checkpoints,
			},
			{
				Name:   "check-proof",
				Usage:  "Check whether a source-layer block is covered by a checkpoint",
				Flags:  append(commonFlags(), checkProofFlags()...),
				Action: checkProof,
			},
			{
				Name:   "generate-proof",
				Usage:  "Resolve the covering checkpoint and fetch a storage proof for it",
				Flags:  append(commonFlags(), generateProofFlags()...),
				Action: generateProof,
			},
			{
				Name:   "remove-history",
				Usage:  "Delete the stored status history of a chain",
				Flags:  removeHistoryFlags(),
				Action: removeHistory,
			},
		},
	}
}

// loadEnvFile keeps variables already set in the process. A missing default
// file is not an error.
func loadEnvFile(c *cli.Context) error {
	path := c.String("env-file")
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !c.IsSet("env-file") {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}
